package wallet

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type memoryRepository struct {
	mu      sync.Mutex
	storage map[common.Address]Wallet
}

// NewMemoryRepository constructs an in-memory repository for tests and local runs.
// Update holds a single lock for its whole duration.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[common.Address]Wallet)}
}

func (r *memoryRepository) Create(_ context.Context, wallet Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[wallet.Address]; exists {
		return ErrWalletExists
	}
	r.storage[wallet.Address] = wallet.Clone()
	return nil
}

func (r *memoryRepository) Get(_ context.Context, address common.Address) (Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wallet, ok := r.storage[address]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return wallet.Clone(), nil
}

func (r *memoryRepository) ListByOwner(_ context.Context, owner common.Address) ([]Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Wallet
	for _, w := range r.storage {
		if w.State.Owner == owner {
			out = append(out, w.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryRepository) NextNonce(_ context.Context, deployer common.Address) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n uint64
	for _, w := range r.storage {
		if w.Deployer == deployer {
			n++
		}
	}
	return n, nil
}

func (r *memoryRepository) Update(_ context.Context, address common.Address, fn func(*Wallet) error) (Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.storage[address]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	next := current.Clone()
	if err := fn(&next); err != nil {
		return Wallet{}, err
	}
	next.UpdatedAt = time.Now().UTC()
	r.storage[address] = next
	return next.Clone(), nil
}

func (r *memoryRepository) Lock(_ context.Context, address common.Address, fn func(Wallet) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.storage[address]
	if !ok {
		return ErrWalletNotFound
	}
	return fn(current.Clone())
}
