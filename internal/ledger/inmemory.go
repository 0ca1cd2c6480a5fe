package ledger

import (
	"context"
	"sync"
)

type inMemoryLedger struct {
	mu           sync.RWMutex
	balances     map[string]int64
	transactions map[string]TransactionResult
	credits      map[string]CreditResult
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit tests
// and local development. The genesis account is opened up front.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		balances:     map[string]int64{GenesisAccountCode: 0},
		transactions: make(map[string]TransactionResult),
		credits:      make(map[string]CreditResult),
	}
}

func (l *inMemoryLedger) EnsureAccount(_ context.Context, code string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.balances[code]; !exists {
		l.balances[code] = 0
	}
	return nil
}

// Balance reports zero for accounts that were never opened, mirroring an
// address that has not received value yet.
func (l *inMemoryLedger) Balance(_ context.Context, code string) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[code], nil
}

func (l *inMemoryLedger) Transfer(ctx context.Context, fromCode, toCode, kind, clientTxID string, amount int64) (TransactionResult, error) {
	if amount <= 0 {
		return TransactionResult{}, ErrInvalidAmount
	}
	return l.TransferWith(ctx, fromCode, toCode, kind, clientTxID, amount, nil)
}

func (l *inMemoryLedger) TransferWith(_ context.Context, fromCode, toCode, kind, clientTxID string, amount int64, deliver func() error) (TransactionResult, error) {
	if amount < 0 {
		return TransactionResult{}, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := kind + ":" + clientTxID
	if res, exists := l.transactions[key]; exists {
		return res, ErrDuplicateTransaction
	}

	fromBalance, ok := l.balances[fromCode]
	if !ok {
		return TransactionResult{}, ErrAccountNotFound
	}
	if _, ok := l.balances[toCode]; !ok {
		return TransactionResult{}, ErrAccountNotFound
	}

	if fromBalance < amount {
		return TransactionResult{}, ErrInsufficientFunds
	}

	if deliver != nil {
		if err := deliver(); err != nil {
			return TransactionResult{}, err
		}
	}

	// Debit before credit so a self-transfer nets to zero.
	l.balances[fromCode] -= amount
	l.balances[toCode] += amount

	res := TransactionResult{
		TransactionID: key,
		FromBalance:   l.balances[fromCode],
		ToBalance:     l.balances[toCode],
	}

	l.transactions[key] = res
	return res, nil
}

func (l *inMemoryLedger) Credit(_ context.Context, code, clientTxID string, amount int64) (CreditResult, error) {
	if amount <= 0 {
		return CreditResult{}, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := KindCredit + ":" + clientTxID
	if res, exists := l.credits[key]; exists {
		return res, ErrDuplicateTransaction
	}

	balance, ok := l.balances[code]
	if !ok {
		return CreditResult{}, ErrAccountNotFound
	}

	balance += amount
	l.balances[code] = balance
	l.balances[GenesisAccountCode] -= amount

	res := CreditResult{TransactionID: key, Balance: balance}
	l.credits[key] = res
	return res, nil
}
