package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger persists ledger entries in PostgreSQL ensuring double-entry balance.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// EnsureAccount guarantees an account exists for the provided code.
func (l *PostgresLedger) EnsureAccount(ctx context.Context, code string) error {
	_, err := l.db.Exec(ctx, `INSERT INTO accounts (id, code) VALUES ($1, $2)
        ON CONFLICT (code) DO NOTHING`, uuid.New(), code)
	return err
}

// Balance returns the summed balance for the specified account code.
func (l *PostgresLedger) Balance(ctx context.Context, code string) (int64, error) {
	const query = `
        SELECT COALESCE(SUM(e.amount), 0)
        FROM entries e
        INNER JOIN accounts a ON a.id = e.account_id
        WHERE a.code = $1`
	var balance int64
	if err := l.db.QueryRow(ctx, query, code).Scan(&balance); err != nil {
		return 0, err
	}
	return balance, nil
}

// Transfer records a balanced posting between two accounts.
func (l *PostgresLedger) Transfer(ctx context.Context, fromCode, toCode, kind, clientTxID string, amount int64) (TransactionResult, error) {
	if amount <= 0 {
		return TransactionResult{}, ErrInvalidAmount
	}
	return l.TransferWith(ctx, fromCode, toCode, kind, clientTxID, amount, nil)
}

// TransferWith runs deliver inside the posting transaction, after the
// balance and duplicate checks and before any row is written.
func (l *PostgresLedger) TransferWith(ctx context.Context, fromCode, toCode, kind, clientTxID string, amount int64, deliver func() error) (TransactionResult, error) {
	if amount < 0 {
		return TransactionResult{}, ErrInvalidAmount
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return TransactionResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	fromAccountID, err := accountIDForCode(ctx, tx, fromCode)
	if err != nil {
		return TransactionResult{}, err
	}
	toAccountID, err := accountIDForCode(ctx, tx, toCode)
	if err != nil {
		return TransactionResult{}, err
	}

	if existingTxID, found, err := findTransaction(ctx, tx, clientTxID, kind); err != nil {
		return TransactionResult{}, err
	} else if found {
		res, err := balancesAfter(ctx, tx, existingTxID, fromAccountID, toAccountID)
		if err != nil {
			return TransactionResult{}, err
		}
		return res, ErrDuplicateTransaction
	}

	fromBalance, err := balanceForAccount(ctx, tx, fromAccountID)
	if err != nil {
		return TransactionResult{}, err
	}
	if fromBalance < amount {
		return TransactionResult{}, ErrInsufficientFunds
	}

	if deliver != nil {
		if err := deliver(); err != nil {
			return TransactionResult{}, err
		}
	}

	txID, err := post(ctx, tx, clientTxID, kind, fromAccountID, toAccountID, amount)
	if err != nil {
		return TransactionResult{}, err
	}

	res, err := balancesAfter(ctx, tx, txID, fromAccountID, toAccountID)
	if err != nil {
		return TransactionResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return TransactionResult{}, err
	}
	return res, nil
}

// Credit issues value from the genesis account into the target account.
func (l *PostgresLedger) Credit(ctx context.Context, code, clientTxID string, amount int64) (CreditResult, error) {
	if amount <= 0 {
		return CreditResult{}, ErrInvalidAmount
	}

	if err := l.EnsureAccount(ctx, GenesisAccountCode); err != nil {
		return CreditResult{}, err
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return CreditResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	accountID, err := accountIDForCode(ctx, tx, code)
	if err != nil {
		return CreditResult{}, err
	}
	genesisID, err := accountIDForCode(ctx, tx, GenesisAccountCode)
	if err != nil {
		return CreditResult{}, err
	}

	if existingTxID, found, err := findTransaction(ctx, tx, clientTxID, KindCredit); err != nil {
		return CreditResult{}, err
	} else if found {
		bal, err := balanceForAccount(ctx, tx, accountID)
		if err != nil {
			return CreditResult{}, err
		}
		return CreditResult{TransactionID: existingTxID.String(), Balance: bal}, ErrDuplicateTransaction
	}

	txID, err := post(ctx, tx, clientTxID, KindCredit, genesisID, accountID, amount)
	if err != nil {
		return CreditResult{}, err
	}

	balance, err := balanceForAccount(ctx, tx, accountID)
	if err != nil {
		return CreditResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return CreditResult{}, err
	}

	return CreditResult{TransactionID: txID.String(), Balance: balance}, nil
}

// post writes the transaction header and its two balancing entries. A zero
// amount records the header only.
func post(ctx context.Context, tx pgx.Tx, clientTxID, kind string, fromAccountID, toAccountID uuid.UUID, amount int64) (uuid.UUID, error) {
	txID := uuid.New()
	if _, err := tx.Exec(ctx, `INSERT INTO transactions (id, client_tx_id, kind, status) VALUES ($1, $2, $3, $4)`, txID, clientTxID, kind, StatusCompleted); err != nil {
		return uuid.Nil, err
	}
	if amount == 0 {
		return txID, nil
	}
	if _, err := tx.Exec(ctx, `INSERT INTO entries (id, transaction_id, account_id, amount) VALUES ($1, $2, $3, $4)`, uuid.New(), txID, fromAccountID, -amount); err != nil {
		return uuid.Nil, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO entries (id, transaction_id, account_id, amount) VALUES ($1, $2, $3, $4)`, uuid.New(), txID, toAccountID, amount); err != nil {
		return uuid.Nil, err
	}
	return txID, nil
}

func balancesAfter(ctx context.Context, tx pgx.Tx, txID, fromAccountID, toAccountID uuid.UUID) (TransactionResult, error) {
	fromBal, err := balanceForAccount(ctx, tx, fromAccountID)
	if err != nil {
		return TransactionResult{}, err
	}
	toBal, err := balanceForAccount(ctx, tx, toAccountID)
	if err != nil {
		return TransactionResult{}, err
	}
	return TransactionResult{TransactionID: txID.String(), FromBalance: fromBal, ToBalance: toBal}, nil
}

func findTransaction(ctx context.Context, tx pgx.Tx, clientTxID, kind string) (uuid.UUID, bool, error) {
	const query = `SELECT id FROM transactions WHERE client_tx_id = $1 AND kind = $2`
	var id uuid.UUID
	if err := tx.QueryRow(ctx, query, clientTxID, kind).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, err
	}
	return id, true, nil
}

func accountIDForCode(ctx context.Context, tx pgx.Tx, code string) (uuid.UUID, error) {
	const query = `SELECT id FROM accounts WHERE code = $1 FOR UPDATE`
	var id uuid.UUID
	if err := tx.QueryRow(ctx, query, code).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("%w: %s", ErrAccountNotFound, code)
		}
		return uuid.Nil, err
	}
	return id, nil
}

func balanceForAccount(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM entries WHERE account_id = $1`
	var balance int64
	if err := tx.QueryRow(ctx, query, accountID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return balance, nil
}
