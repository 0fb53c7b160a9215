package ledger

import (
	"fmt"

	"txguard/pkg/platform/sentinel"
)

// IntegrityError identifies the first record that fails verification. It
// matches sentinel.ErrIntegrity.
type IntegrityError struct {
	Seq    uint64
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("ledger integrity violation at seq %d: %s", e.Seq, e.Reason)
}

func (e *IntegrityError) Unwrap() error {
	return sentinel.ErrIntegrity
}
