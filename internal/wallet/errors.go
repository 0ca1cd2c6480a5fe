package wallet

import "errors"

// Failure messages are the revert reasons clients match on and must not change.
var (
	ErrUnauthorized        = errors.New("Unauthorized")
	ErrEmptyData           = errors.New("Empty data")
	ErrAlreadyRegistered   = errors.New("Guardian already registered")
	ErrNotRegistered       = errors.New("Guardian not registered")
	ErrAlreadyOwner        = errors.New("Already owner")
	ErrNotPendingRecoverer = errors.New("Not pending recoverer")
	ErrNoPendingRecovery   = errors.New("No pending recovery")
	ErrCallFailed          = errors.New("Call failed")
)

var (
	ErrWalletNotFound = errors.New("wallet not found")
	ErrWalletExists   = errors.New("wallet exists")
	ErrZeroAddress    = errors.New("zero address")
)

var reverts = []error{
	ErrUnauthorized,
	ErrEmptyData,
	ErrAlreadyRegistered,
	ErrNotRegistered,
	ErrAlreadyOwner,
	ErrNotPendingRecoverer,
	ErrNoPendingRecovery,
	ErrCallFailed,
}

// RevertReason returns the literal failure message for a wallet rejection and
// false for any other error.
func RevertReason(err error) (string, bool) {
	for _, r := range reverts {
		if errors.Is(err, r) {
			return r.Error(), true
		}
	}
	return "", false
}

// errorKind labels an operation outcome for metrics.
func errorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrEmptyData):
		return "empty_data"
	case errors.Is(err, ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, ErrNotRegistered):
		return "not_registered"
	case errors.Is(err, ErrAlreadyOwner):
		return "already_owner"
	case errors.Is(err, ErrNotPendingRecoverer):
		return "not_pending_recoverer"
	case errors.Is(err, ErrNoPendingRecovery):
		return "no_pending_recovery"
	case errors.Is(err, ErrCallFailed):
		return "call_failed"
	case errors.Is(err, ErrWalletNotFound):
		return "not_found"
	default:
		return "error"
	}
}
