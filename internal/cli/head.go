package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"txguard/internal/ledger"
)

type headJSON struct {
	Count       uint64 `json:"count"`
	Seq         uint64 `json:"seq"`
	RecordHash  string `json:"record_hash"`
	Algorithm   string `json:"algorithm"`
	Compromised string `json:"compromised,omitempty"`
}

func newHeadCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "head",
		Short: "Print the committed head",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withLedger(cmd.Context(), g, cmd.ErrOrStderr(), func(l *ledger.Ledger) error {
				h := l.Head()
				view := headJSON{Count: h.Count, Seq: h.Seq, RecordHash: h.RecordHash, Algorithm: l.Algorithm()}
				if ie, bad := l.Compromised(); bad {
					view.Compromised = ie.Error()
				}
				out := cmd.OutOrStdout()
				if g.asJSON {
					return g.printJSON(out, view)
				}
				if h.Empty() {
					fmt.Fprintf(out, "empty ledger (%s)\n", view.Algorithm)
				} else {
					fmt.Fprintf(out, "seq %d of %d records, head %s (%s)\n", h.Seq, h.Count, h.RecordHash, view.Algorithm)
				}
				if view.Compromised != "" {
					fmt.Fprintf(out, "WARNING: %s\n", view.Compromised)
				}
				return nil
			})
		},
	}
}
