package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"txguard/internal/ledger"
)

type verifyResult struct {
	ledger.Report
	Algorithm string `json:"algorithm"`
	Reason    string `json:"reason,omitempty"`
}

func newVerifyCommand(g *globalFlags) *cobra.Command {
	var from, to uint64
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Recompute the hash chain",
		Long:  "Recomputes every payload and record hash in the range (the whole ledger by default).\nExits 0 when the chain verifies and 2 at the first broken record.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ranged := cmd.Flags().Changed("from") || cmd.Flags().Changed("to")
			if cmd.Flags().Changed("from") != cmd.Flags().Changed("to") {
				return errors.New("--from and --to must be given together")
			}
			return withLedger(cmd.Context(), g, cmd.ErrOrStderr(), func(l *ledger.Ledger) error {
				var (
					report ledger.Report
					err    error
				)
				if ranged {
					report, err = l.Verify(cmd.Context(), from, to)
				} else {
					report, err = l.VerifyAll(cmd.Context())
				}
				res := verifyResult{Report: report, Algorithm: l.Algorithm()}
				var ie *ledger.IntegrityError
				if err != nil && !errors.As(err, &ie) {
					return err
				}
				if ie != nil {
					res.Reason = ie.Reason
				}

				out := cmd.OutOrStdout()
				switch {
				case g.asJSON:
					if perr := g.printJSON(out, res); perr != nil {
						return perr
					}
				case ie != nil:
					fmt.Fprintf(out, "FAILED at seq %d: %s (%d records verified before it)\n", ie.Seq, ie.Reason, report.Checked)
				default:
					fmt.Fprintf(out, "OK: %d records verified [%d,%d] with %s\n", report.Checked, report.From, report.To, res.Algorithm)
				}
				if ie != nil {
					return &ExitError{Code: ExitIntegrity, Err: ie}
				}
				return nil
			})
		},
	}
	cmd.Flags().Uint64Var(&from, "from", 0, "first sequence number to verify")
	cmd.Flags().Uint64Var(&to, "to", 0, "last sequence number to verify")
	return cmd
}
