package ledger

import (
	"context"
	"errors"
)

var (
	// ErrInsufficientFunds occurs when the source account lacks available balance
	// to cover a requested posting.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateTransaction indicates the provided client transaction identifier
	// already exists and therefore the operation should be treated as idempotent.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrInvalidAmount rejects zero or negative postings.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrAccountNotFound is returned when a posting references an account that
	// was never opened with EnsureAccount.
	ErrAccountNotFound = errors.New("account not found")
)

const (
	// StatusCompleted marks a posted transaction.
	StatusCompleted = "completed"
	// GenesisAccountCode is the issuing account native value is credited from.
	// It is the only account allowed to run a negative balance.
	GenesisAccountCode = "genesis:native"
	// KindCredit tags issuance postings out of the genesis account.
	KindCredit = "credit"
)

// TransactionResult captures the outcome of a ledger posting.
type TransactionResult struct {
	TransactionID string
	FromBalance   int64
	ToBalance     int64
}

// CreditResult captures the outcome of an issuance posting.
type CreditResult struct {
	TransactionID string
	Balance       int64
}

// Ledger defines the contract implemented by ledger backends (e.g. Postgres).
type Ledger interface {
	EnsureAccount(ctx context.Context, code string) error
	Balance(ctx context.Context, code string) (int64, error)
	Transfer(ctx context.Context, fromCode, toCode, kind, clientTxID string, amount int64) (TransactionResult, error)
	// TransferWith is Transfer with two differences: amount may be zero, in
	// which case only the transaction row is recorded, and deliver runs once
	// funds and the client transaction id are checked but before anything is
	// written. A deliver error aborts the posting. A duplicate returns the
	// stored result and ErrDuplicateTransaction without calling deliver.
	// deliver must not call back into the ledger.
	TransferWith(ctx context.Context, fromCode, toCode, kind, clientTxID string, amount int64, deliver func() error) (TransactionResult, error)
	Credit(ctx context.Context, code, clientTxID string, amount int64) (CreditResult, error)
}
