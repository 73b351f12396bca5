// services/errors.go
package services

import (
	"errors"
	"fmt"
)

// Domain errors returned by the billing, commission and ledger services.
// Controllers map these onto HTTP status codes; batch jobs decide per row
// whether to skip or abort.
var (
	ErrNotFound               = errors.New("record not found")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrInsufficientPayment    = errors.New("paid amount is less than total due")
	ErrDuplicatePayment       = errors.New("a payment already exists for this student and month")
)

// ValidationError reports malformed input before any write happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// SettlementError wraps a failure inside the compound settlement
// transaction. The whole settlement rolled back; the invoice is unchanged.
type SettlementError struct {
	Step string // "commission" or "ledger"
	Err  error
}

func (e *SettlementError) Error() string {
	return fmt.Sprintf("settlement failed at %s step: %v", e.Step, e.Err)
}

func (e *SettlementError) Unwrap() error {
	return e.Err
}
