package types

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Error categories. A concrete error is marked with one or more of them and
// classified with errors.Is.
var (
	ErrTransient       = errors.New("transient failure")
	ErrNotYetAvailable = errors.New("consensus artifact not yet available")
	ErrFatal           = errors.New("fatal failure")

	ErrResourceUnavailable  = errors.New("resource unavailable")
	ErrSequenceMismatch     = errors.New("account sequence mismatch")
	ErrRedundant            = errors.New("redundant message")
	ErrCounterpartyRejected = errors.New("counterparty rejected message")

	ErrInvalidProofShape = errors.New("invalid eth_getProof response shape")
	ErrUnknownClient     = errors.New("unknown client")
	ErrInvalidChecksum   = errors.New("invalid checksum")
	ErrPeriodRegression  = errors.New("trusted period is ahead of target period")
)

func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrTransient)
}

func NotYetAvailablef(format string, args ...any) error {
	return errors.Mark(errors.Mark(errors.Newf(format, args...), ErrNotYetAvailable), ErrTransient)
}

// Fatalf builds an error of the given fatal kind.
func Fatalf(kind error, format string, args ...any) error {
	return errors.Mark(errors.Mark(errors.Newf(format, args...), kind), ErrFatal)
}

// ResourceUnavailablef reports a missing consensus API resource. It is fatal
// for the fetch that hit it.
func ResourceUnavailablef(format string, args ...any) error {
	return Fatalf(ErrResourceUnavailable, format, args...)
}

func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}

// BroadcastTxError is returned when a transaction is rejected before it gets
// into a block.
type BroadcastTxError struct {
	TxHash    string
	Code      uint32
	Codespace string
	// ErrorLog is the error output of the node
	ErrorLog string
}

func (e *BroadcastTxError) Error() string {
	return fmt.Sprintf("broadcast tx error (%s/%d): %s", e.Codespace, e.Code, e.ErrorLog)
}

// ExecutionError is returned when a transaction is included but fails.
type ExecutionError struct {
	TxHash    string
	Code      uint32
	Codespace string
	ErrorLog  string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tx %s execution failed with code %s/%d: %s", e.TxHash, e.Codespace, e.Code, e.ErrorLog)
}
