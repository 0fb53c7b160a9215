// Package domain holds identifier primitives shared across bounded contexts.
//
// Transaction and party identifiers arrive from upstream ledgers and chains, so
// they are opaque strings rather than UUIDs. Parsing enforces the shape once at
// the trust boundary; downstream code can rely on the typed value being valid.
package domain

import (
	"unicode"
	"unicode/utf8"

	dErrors "txguard/pkg/domain-errors"
)

// MaxIDLength bounds every identifier accepted at the boundary.
const MaxIDLength = 128

type (
	// TransactionID identifies a transaction submitted for screening.
	TransactionID string
	// PartyID identifies a sender or receiver (customer id or wallet address).
	PartyID string
)

func (id TransactionID) String() string { return string(id) }
func (id TransactionID) IsNil() bool    { return id == "" }

func (id PartyID) String() string { return string(id) }
func (id PartyID) IsNil() bool    { return id == "" }

// ParseTransactionID validates s as a transaction identifier.
func ParseTransactionID(s string) (TransactionID, error) {
	if err := validateID(s, "transaction ID"); err != nil {
		return "", err
	}
	return TransactionID(s), nil
}

// ParsePartyID validates s as a party identifier.
func ParsePartyID(s string) (PartyID, error) {
	if err := validateID(s, "party ID"); err != nil {
		return "", err
	}
	return PartyID(s), nil
}

func validateID(s, label string) error {
	if s == "" {
		return dErrors.New(dErrors.CodeInvalidInput, label+" required")
	}
	if len(s) > MaxIDLength {
		return dErrors.New(dErrors.CodeInvalidInput, label+" too long")
	}
	if !utf8.ValidString(s) {
		return dErrors.New(dErrors.CodeInvalidInput, label+" must be valid UTF-8")
	}
	for _, r := range s {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return dErrors.New(dErrors.CodeInvalidInput, label+" contains invalid characters")
		}
	}
	return nil
}
