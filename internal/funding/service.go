package funding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/social-recovery/recovery_wallet/internal/ledger"
	"github.com/social-recovery/recovery_wallet/internal/logging"
	"github.com/social-recovery/recovery_wallet/internal/wallet"
)

// MaxFundAmount caps a single faucet credit.
const MaxFundAmount int64 = 1_000_000_000

var (
	// ErrZeroAddress rejects credits to the zero address.
	ErrZeroAddress = errors.New("cannot fund the zero address")
	// ErrAmountTooLarge rejects credits above MaxFundAmount.
	ErrAmountTooLarge = fmt.Errorf("amount exceeds faucet limit of %d", MaxFundAmount)
)

// Service issues native value to accounts out of the genesis account. It backs
// the development faucet.
type Service struct {
	ledger ledger.Ledger
	logger *slog.Logger
}

// NewService prepares a faucet service ensuring the genesis account exists.
func NewService(ctx context.Context, ledgerBackend ledger.Ledger, logger *slog.Logger) (*Service, error) {
	if ledgerBackend == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if err := ledgerBackend.EnsureAccount(ctx, ledger.GenesisAccountCode); err != nil {
		return nil, err
	}
	return &Service{ledger: ledgerBackend, logger: logging.OrDiscard(logger)}, nil
}

// FundInput captures a faucet credit request.
type FundInput struct {
	Address    common.Address
	Amount     int64
	ClientTxID string
}

// FundingResult represents the domain outcome of a faucet credit.
type FundingResult struct {
	TransactionID string
	Status        string
	Balance       int64
	CompletedAt   time.Time
}

// Fund credits the account of the given address. A replayed ClientTxID returns
// ledger.ErrDuplicateTransaction together with the current balance.
func (s *Service) Fund(ctx context.Context, input FundInput) (FundingResult, error) {
	if input.Address == (common.Address{}) {
		return FundingResult{}, ErrZeroAddress
	}
	if input.Amount <= 0 {
		return FundingResult{}, ledger.ErrInvalidAmount
	}
	if input.Amount > MaxFundAmount {
		return FundingResult{}, ErrAmountTooLarge
	}
	if input.ClientTxID == "" {
		input.ClientTxID = uuid.NewString()
	}

	code := wallet.AccountCode(input.Address)
	if err := s.ledger.EnsureAccount(ctx, code); err != nil {
		return FundingResult{}, err
	}

	res, err := s.ledger.Credit(ctx, code, input.ClientTxID, input.Amount)
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateTransaction) {
			balance, balErr := s.ledger.Balance(ctx, code)
			if balErr != nil {
				return FundingResult{}, balErr
			}
			return FundingResult{
				TransactionID: res.TransactionID,
				Status:        ledger.StatusCompleted,
				Balance:       balance,
				CompletedAt:   time.Now().UTC(),
			}, err
		}
		return FundingResult{}, err
	}

	s.logger.Info("faucet.credit",
		slog.String("address", input.Address.Hex()),
		slog.Int64("amount", input.Amount),
		slog.String("transaction_id", res.TransactionID),
	)
	return FundingResult{
		TransactionID: res.TransactionID,
		Status:        ledger.StatusCompleted,
		Balance:       res.Balance,
		CompletedAt:   time.Now().UTC(),
	}, nil
}
