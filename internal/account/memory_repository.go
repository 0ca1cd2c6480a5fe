package account

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type memoryRepository struct {
	mu       sync.RWMutex
	accounts map[common.Address]Account
}

// NewMemoryRepository builds an in-memory account store for tests and local runs.
func NewMemoryRepository() Repository {
	return &memoryRepository{accounts: make(map[common.Address]Account)}
}

func (r *memoryRepository) Create(_ context.Context, account Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.accounts[account.Address]; exists {
		return ErrAccountExists
	}
	r.accounts[account.Address] = account
	return nil
}

func (r *memoryRepository) FindByAddress(_ context.Context, address common.Address) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.accounts[address]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return account, nil
}

func (r *memoryRepository) UpdateTokenVersion(_ context.Context, address common.Address, version int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[address]
	if !ok {
		return ErrAccountNotFound
	}
	account.TokenVersion = version
	r.accounts[address] = account
	return nil
}

func (r *memoryRepository) TouchLogin(_ context.Context, address common.Address, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[address]
	if !ok {
		return ErrAccountNotFound
	}
	at = at.UTC()
	account.LastLogin = &at
	r.accounts[address] = account
	return nil
}
