package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"txguard/internal/compliance/models"
	"txguard/internal/ledger"
	id "txguard/pkg/domain"
	"txguard/pkg/platform/sentinel"
)

func newShowCommand(g *globalFlags) *cobra.Command {
	var txID string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the audit record for a transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed, err := id.ParseTransactionID(txID)
			if err != nil {
				return err
			}
			return withLedger(cmd.Context(), g, cmd.ErrOrStderr(), func(l *ledger.Ledger) error {
				rec, err := l.GetByTransaction(cmd.Context(), parsed)
				if errors.Is(err, sentinel.ErrNotFound) {
					return fmt.Errorf("no audit record for transaction %q", parsed)
				}
				if err != nil {
					return err
				}
				if g.asJSON {
					return g.printJSON(cmd.OutOrStdout(), recordView(rec))
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "seq:          %d\n", rec.Seq)
				fmt.Fprintf(out, "transaction:  %s\n", rec.TransactionID)
				fmt.Fprintf(out, "timestamp:    %s\n", rec.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z07:00"))
				fmt.Fprintf(out, "payload_hash: %s\n", rec.PayloadHash)
				fmt.Fprintf(out, "prev_hash:    %s\n", rec.PrevHash)
				fmt.Fprintf(out, "record_hash:  %s\n", rec.RecordHash)
				fmt.Fprintf(out, "payload:      %s\n", rec.Payload)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&txID, "tx", "", "transaction id")
	_ = cmd.MarkFlagRequired("tx")
	return cmd
}

type recordJSON struct {
	Seq           uint64           `json:"seq"`
	TransactionID id.TransactionID `json:"transaction_id"`
	PayloadHash   string           `json:"payload_hash"`
	PrevHash      string           `json:"prev_hash"`
	RecordHash    string           `json:"record_hash"`
	Timestamp     string           `json:"timestamp"`
	Payload       string           `json:"payload"`
}

// recordView prints the canonical payload as text rather than base64.
func recordView(rec models.AuditRecord) recordJSON {
	return recordJSON{
		Seq:           rec.Seq,
		TransactionID: rec.TransactionID,
		PayloadHash:   rec.PayloadHash,
		PrevHash:      rec.PrevHash,
		RecordHash:    rec.RecordHash,
		Timestamp:     rec.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z07:00"),
		Payload:       string(rec.Payload),
	}
}
