package account

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrAccountExists   = errors.New("account exists")
	ErrAccountNotFound = errors.New("account not found")
)

// Repository persists accounts.
type Repository interface {
	Create(ctx context.Context, account Account) error
	FindByAddress(ctx context.Context, address common.Address) (Account, error)
	UpdateTokenVersion(ctx context.Context, address common.Address, version int) error
	TouchLogin(ctx context.Context, address common.Address, at time.Time) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed account repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new account.
func (r *PostgresRepository) Create(ctx context.Context, account Account) error {
	_, err := r.db.Exec(ctx, `INSERT INTO accounts_identity (address, pin_hash, token_version, created_at)
        VALUES ($1, $2, $3, $4)`, account.Address.Hex(), account.PINHash, account.TokenVersion, account.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAccountExists
	}
	return err
}

// FindByAddress fetches an account by address.
func (r *PostgresRepository) FindByAddress(ctx context.Context, address common.Address) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT pin_hash, token_version, created_at, last_login
        FROM accounts_identity WHERE address = $1`, address.Hex())
	var (
		createdAt time.Time
		lastLogin *time.Time
		account   = Account{Address: address}
	)
	if err := row.Scan(&account.PINHash, &account.TokenVersion, &createdAt, &lastLogin); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	account.CreatedAt = createdAt.UTC()
	account.LastLogin = lastLogin
	return account, nil
}

// UpdateTokenVersion stores a new token version, invalidating older tokens.
func (r *PostgresRepository) UpdateTokenVersion(ctx context.Context, address common.Address, version int) error {
	cmd, err := r.db.Exec(ctx, `UPDATE accounts_identity SET token_version = $1 WHERE address = $2`, version, address.Hex())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// TouchLogin records the time of the last successful login.
func (r *PostgresRepository) TouchLogin(ctx context.Context, address common.Address, at time.Time) error {
	cmd, err := r.db.Exec(ctx, `UPDATE accounts_identity SET last_login = $1 WHERE address = $2`, at.UTC(), address.Hex())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}
