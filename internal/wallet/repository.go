package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists wallet deployments.
type Repository interface {
	Create(ctx context.Context, wallet Wallet) error
	Get(ctx context.Context, address common.Address) (Wallet, error)
	ListByOwner(ctx context.Context, owner common.Address) ([]Wallet, error)
	// NextNonce returns the number of wallets deployer has deployed so far.
	NextNonce(ctx context.Context, deployer common.Address) (uint64, error)
	// Update runs fn against an exclusive copy of the wallet and commits the
	// copy only when fn returns nil. Calls for the same wallet are serialized.
	Update(ctx context.Context, address common.Address, fn func(*Wallet) error) (Wallet, error)
	// Lock runs fn while holding the same per-wallet lock as Update but writes
	// nothing. Once fn returns nil, Lock returns nil.
	Lock(ctx context.Context, address common.Address, fn func(Wallet) error) error
}

// PostgresRepository stores wallets in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Create inserts a wallet record and its initial guardians.
func (r *PostgresRepository) Create(ctx context.Context, wallet Wallet) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	_, err = tx.Exec(ctx, `INSERT INTO recovery_wallets (address, deployer, nonce, owner, pending_recoverer, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		wallet.Address.Hex(), wallet.Deployer.Hex(), int64(wallet.Nonce), wallet.State.Owner.Hex(),
		pendingHex(wallet.State.PendingRecoverer), wallet.CreatedAt.UTC(), wallet.UpdatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrWalletExists
		}
		return err
	}
	for _, g := range wallet.State.GuardianList() {
		if _, err := tx.Exec(ctx, `INSERT INTO wallet_guardians (wallet_address, guardian) VALUES ($1, $2)`, wallet.Address.Hex(), g.Hex()); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Get fetches a wallet by address.
func (r *PostgresRepository) Get(ctx context.Context, address common.Address) (Wallet, error) {
	return loadWallet(ctx, r.db, address, false)
}

// ListByOwner returns the wallets currently owned by owner, oldest first.
func (r *PostgresRepository) ListByOwner(ctx context.Context, owner common.Address) ([]Wallet, error) {
	rows, err := r.db.Query(ctx, `SELECT address FROM recovery_wallets WHERE owner = $1 ORDER BY created_at`, owner.Hex())
	if err != nil {
		return nil, err
	}
	addrs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	out := make([]Wallet, 0, len(addrs))
	for _, a := range addrs {
		w, err := loadWallet(ctx, r.db, common.HexToAddress(a), false)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

// NextNonce counts prior deployments by deployer.
func (r *PostgresRepository) NextNonce(ctx context.Context, deployer common.Address) (uint64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM recovery_wallets WHERE deployer = $1`, deployer.Hex()).Scan(&n); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// Update locks the wallet row for the duration of fn.
func (r *PostgresRepository) Update(ctx context.Context, address common.Address, fn func(*Wallet) error) (Wallet, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Wallet{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	current, err := loadWallet(ctx, tx, address, true)
	if err != nil {
		return Wallet{}, err
	}
	next := current.Clone()
	if err := fn(&next); err != nil {
		return Wallet{}, err
	}
	next.UpdatedAt = time.Now().UTC()

	if _, err := tx.Exec(ctx, `UPDATE recovery_wallets SET owner = $1, pending_recoverer = $2, updated_at = $3 WHERE address = $4`,
		next.State.Owner.Hex(), pendingHex(next.State.PendingRecoverer), next.UpdatedAt, address.Hex()); err != nil {
		return Wallet{}, err
	}
	for g := range current.State.Guardians {
		if !next.State.IsGuardian(g) {
			if _, err := tx.Exec(ctx, `DELETE FROM wallet_guardians WHERE wallet_address = $1 AND guardian = $2`, address.Hex(), g.Hex()); err != nil {
				return Wallet{}, err
			}
		}
	}
	for g := range next.State.Guardians {
		if !current.State.IsGuardian(g) {
			if _, err := tx.Exec(ctx, `INSERT INTO wallet_guardians (wallet_address, guardian) VALUES ($1, $2)`, address.Hex(), g.Hex()); err != nil {
				return Wallet{}, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Wallet{}, err
	}
	return next, nil
}

// Lock holds the wallet row for the duration of fn. The transaction is always
// rolled back since nothing is written.
func (r *PostgresRepository) Lock(ctx context.Context, address common.Address, fn func(Wallet) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	current, err := loadWallet(ctx, tx, address, true)
	if err != nil {
		return err
	}
	return fn(current)
}

func loadWallet(ctx context.Context, q queryer, address common.Address, forUpdate bool) (Wallet, error) {
	query := `SELECT deployer, nonce, owner, pending_recoverer, created_at, updated_at
        FROM recovery_wallets WHERE address = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var (
		deployer, owner      string
		nonce                int64
		pending              *string
		createdAt, updatedAt time.Time
	)
	if err := q.QueryRow(ctx, query, address.Hex()).Scan(&deployer, &nonce, &owner, &pending, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, err
	}

	w := Wallet{
		Address:   address,
		Deployer:  common.HexToAddress(deployer),
		Nonce:     uint64(nonce),
		State:     NewState(common.HexToAddress(owner)),
		CreatedAt: createdAt.UTC(),
		UpdatedAt: updatedAt.UTC(),
	}
	if pending != nil {
		p := common.HexToAddress(*pending)
		w.State.PendingRecoverer = &p
	}

	rows, err := q.Query(ctx, `SELECT guardian FROM wallet_guardians WHERE wallet_address = $1`, address.Hex())
	if err != nil {
		return Wallet{}, err
	}
	guardians, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return Wallet{}, err
	}
	for _, g := range guardians {
		w.State.Guardians[common.HexToAddress(g)] = struct{}{}
	}
	return w, nil
}

func pendingHex(p *common.Address) *string {
	if p == nil {
		return nil
	}
	s := p.Hex()
	return &s
}
