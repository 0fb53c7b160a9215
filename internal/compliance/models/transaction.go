package models

import (
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	id "txguard/pkg/domain"
	dErrors "txguard/pkg/domain-errors"
)

// MaxClockSkew is how far in the future a transaction timestamp may be.
const MaxClockSkew = 5 * time.Minute

var (
	currencyPattern = regexp.MustCompile(`^[A-Z0-9]{3,10}$`)
	countryPattern  = regexp.MustCompile(`^[A-Z]{2}$`)
)

// Identifier is a typed party identifier such as a wallet address, LEI or passport number.
type Identifier struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// IdentifierTypeAddress marks on-chain wallet addresses.
const IdentifierTypeAddress = "address"

// Party is a sender or receiver of a transaction.
type Party struct {
	ID          id.PartyID   `json:"id"`
	Name        string       `json:"name"`
	Country     string       `json:"country,omitempty"`
	Identifiers []Identifier `json:"identifiers,omitempty"`
}

// Transaction is immutable once validated.
type Transaction struct {
	ID        id.TransactionID `json:"id"`
	Timestamp time.Time        `json:"timestamp"`
	Sender    Party            `json:"sender"`
	Receiver  Party            `json:"receiver"`
	Amount    decimal.Decimal  `json:"amount"`
	Currency  string           `json:"currency"`
	Chain     string           `json:"chain,omitempty"`
}

// Validate checks the transaction at the ingestion boundary. now bounds the
// accepted clock skew.
func (t Transaction) Validate(now time.Time) error {
	if t.ID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "transaction id is required")
	}
	if t.Timestamp.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "timestamp is required")
	}
	if t.Timestamp.After(now.Add(MaxClockSkew)) {
		return dErrors.New(dErrors.CodeValidation, "timestamp is in the future")
	}
	if err := t.Sender.validate("sender"); err != nil {
		return err
	}
	if err := t.Receiver.validate("receiver"); err != nil {
		return err
	}
	if t.Sender.ID == t.Receiver.ID {
		return dErrors.New(dErrors.CodeValidation, "sender and receiver must differ")
	}
	if !t.Amount.IsPositive() {
		return dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	if !currencyPattern.MatchString(t.Currency) {
		return dErrors.New(dErrors.CodeValidation, "currency must be 3-10 uppercase alphanumerics")
	}
	if len(t.Chain) > 32 {
		return dErrors.New(dErrors.CodeValidation, "chain must be at most 32 characters")
	}
	return nil
}

func (p Party) validate(role string) error {
	if p.ID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, role+".id is required")
	}
	if p.Name == "" && len(p.Identifiers) == 0 {
		return dErrors.New(dErrors.CodeValidation, role+" requires a name or at least one identifier")
	}
	if len(p.Name) > 256 {
		return dErrors.New(dErrors.CodeValidation, role+".name is too long")
	}
	if p.Country != "" && !countryPattern.MatchString(p.Country) {
		return dErrors.New(dErrors.CodeValidation, role+".country must be an ISO-3166 alpha-2 code")
	}
	for _, ident := range p.Identifiers {
		if ident.Type == "" || ident.Value == "" {
			return dErrors.New(dErrors.CodeValidation, role+" identifiers need a type and value")
		}
	}
	return nil
}
