package handler

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"txguard/internal/compliance/models"
	id "txguard/pkg/domain"
	dErrors "txguard/pkg/domain-errors"
)

const maxIdentifiers = 16

// ScreenRequest is the HTTP request body for POST /v1/transactions/screen.
type ScreenRequest struct {
	TransactionID string       `json:"transaction_id"`
	Timestamp     time.Time    `json:"timestamp"`
	Sender        PartyRequest `json:"sender"`
	Receiver      PartyRequest `json:"receiver"`
	Amount        string       `json:"amount"`
	Currency      string       `json:"currency"`
	Chain         string       `json:"chain,omitempty"`

	// Parsed values (populated by Validate)
	parsed models.Transaction
}

// PartyRequest describes one side of the transfer.
type PartyRequest struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Country     string              `json:"country,omitempty"`
	Identifiers []IdentifierRequest `json:"identifiers,omitempty"`
}

type IdentifierRequest struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Validate parses identifiers and the amount. Business rules (skew, sender
// differs from receiver, currency shape) are checked by the service.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *ScreenRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	txID, err := id.ParseTransactionID(strings.TrimSpace(r.TransactionID))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "transaction_id: "+dErrors.MessageOf(err))
	}

	r.Amount = strings.TrimSpace(r.Amount)
	if r.Amount == "" {
		return dErrors.New(dErrors.CodeValidation, "amount is required")
	}
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "amount must be a decimal string")
	}

	sender, err := r.Sender.parse("sender")
	if err != nil {
		return err
	}
	receiver, err := r.Receiver.parse("receiver")
	if err != nil {
		return err
	}

	r.parsed = models.Transaction{
		ID:        txID,
		Timestamp: r.Timestamp.UTC(),
		Sender:    sender,
		Receiver:  receiver,
		Amount:    amount,
		Currency:  strings.ToUpper(strings.TrimSpace(r.Currency)),
		Chain:     strings.TrimSpace(r.Chain),
	}
	return nil
}

// Transaction returns the parsed domain transaction.
func (r *ScreenRequest) Transaction() models.Transaction {
	return r.parsed
}

func (p PartyRequest) parse(role string) (models.Party, error) {
	if len(p.Identifiers) > maxIdentifiers {
		return models.Party{}, dErrors.New(dErrors.CodeValidation, role+" has too many identifiers")
	}
	partyID, err := id.ParsePartyID(strings.TrimSpace(p.ID))
	if err != nil {
		return models.Party{}, dErrors.Wrap(err, dErrors.CodeValidation, role+".id: "+dErrors.MessageOf(err))
	}
	party := models.Party{
		ID:      partyID,
		Name:    strings.TrimSpace(p.Name),
		Country: strings.ToUpper(strings.TrimSpace(p.Country)),
	}
	for _, ident := range p.Identifiers {
		party.Identifiers = append(party.Identifiers, models.Identifier{
			Type:  strings.ToLower(strings.TrimSpace(ident.Type)),
			Value: strings.TrimSpace(ident.Value),
		})
	}
	return party, nil
}
