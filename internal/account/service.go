package account

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidAddress = errors.New("invalid account address")
	ErrInvalidPIN     = errors.New("invalid PIN")
	ErrWeakPIN        = errors.New("PIN must be at least 4 digits")
)

// Service manages account lifecycle.
type Service struct {
	repo Repository
}

// NewService creates a new account service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates an account for an address and stores a hashed PIN.
func (s *Service) Register(ctx context.Context, creds Credentials) (Account, error) {
	address, err := parseAddress(creds.Address)
	if err != nil {
		return Account{}, err
	}
	if len(creds.PIN) < 4 {
		return Account{}, ErrWeakPIN
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.PIN), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, err
	}

	account := Account{
		Address:   address,
		PINHash:   hash,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, account); err != nil {
		return Account{}, err
	}

	return account, nil
}

// Authenticate verifies credentials and records the login.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (Account, error) {
	address, err := parseAddress(creds.Address)
	if err != nil {
		return Account{}, err
	}
	account, err := s.repo.FindByAddress(ctx, address)
	if err != nil {
		return Account{}, err
	}

	if err := bcrypt.CompareHashAndPassword(account.PINHash, []byte(creds.PIN)); err != nil {
		return Account{}, ErrInvalidPIN
	}

	now := time.Now().UTC()
	if err := s.repo.TouchLogin(ctx, address, now); err != nil {
		return Account{}, err
	}
	account.LastLogin = &now

	return account, nil
}

// Get returns the account registered for address.
func (s *Service) Get(ctx context.Context, address common.Address) (Account, error) {
	return s.repo.FindByAddress(ctx, address)
}

func parseAddress(raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, ErrInvalidAddress
	}
	address := common.HexToAddress(raw)
	if address == (common.Address{}) {
		return common.Address{}, ErrInvalidAddress
	}
	return address, nil
}
