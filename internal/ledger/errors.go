package ledger

import (
	"errors"
	"fmt"
)

// ErrConnection: no provider reachable. Fatal for the whole session.
var ErrConnection = errors.New("ledger: no provider reachable")

// ErrNoAccount: no signing account configured/authorized. Fatal for the
// intent; read-only queries still work.
var ErrNoAccount = errors.New("ledger: no authorized account")

// WouldRevertError is raised when the gas-estimation pass reports a revert.
// The call was never sent, so no value moved.
type WouldRevertError struct {
	Method string
	Err    error
}

func (e *WouldRevertError) Error() string {
	return fmt.Sprintf("ledger: %s would revert: %v", e.Method, e.Err)
}

func (e *WouldRevertError) Unwrap() error { return e.Err }

// SendError covers everything that kills a call between signing and
// confirmation: user rejection, out-of-gas, network drop, on-chain revert of
// an included transaction.
type SendError struct {
	Method string
	Err    error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("ledger: sending %s failed: %v", e.Method, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// UnresolvedIdentifierError: no historical event matched the transaction
// hash. The event either exists on-chain or it never will, so retrying the
// same hash is pointless.
type UnresolvedIdentifierError struct {
	TransactionHash string
	Event           string
}

func (e *UnresolvedIdentifierError) Error() string {
	return fmt.Sprintf("ledger: no %s event found for transaction %s", e.Event, e.TransactionHash)
}

func IsWouldRevert(err error) bool {
	var target *WouldRevertError
	return errors.As(err, &target)
}

func IsUnresolvedIdentifier(err error) bool {
	var target *UnresolvedIdentifierError
	return errors.As(err, &target)
}
