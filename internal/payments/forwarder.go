package payments

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/social-recovery/recovery_wallet/internal/ledger"
	"github.com/social-recovery/recovery_wallet/internal/notification"
	"github.com/social-recovery/recovery_wallet/internal/wallet"
)

const kindCall = "call"

// Receiver is code living at a target address. It sees a forwarded call once
// the wallet is known to cover the value and before the value is posted, and
// may reject it. Addresses without a receiver accept any payload. A receiver
// runs inside the ledger posting and must not call back into the ledger.
type Receiver interface {
	Receive(ctx context.Context, from common.Address, data []byte, value int64) error
}

// ReceiverFunc adapts a function to Receiver.
type ReceiverFunc func(ctx context.Context, from common.Address, data []byte, value int64) error

// Receive calls f.
func (f ReceiverFunc) Receive(ctx context.Context, from common.Address, data []byte, value int64) error {
	return f(ctx, from, data, value)
}

// Forwarder relays wallet calls by posting value on the ledger.
type Forwarder struct {
	ledger   ledger.Ledger
	notifier notification.Notifier

	mu        sync.RWMutex
	receivers map[common.Address]Receiver
}

// NewForwarder constructs a ledger-backed forwarder.
func NewForwarder(ledger ledger.Ledger, notifier notification.Notifier) *Forwarder {
	return &Forwarder{ledger: ledger, notifier: notifier, receivers: make(map[common.Address]Receiver)}
}

// Install places a receiver at target.
func (f *Forwarder) Install(target common.Address, r Receiver) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receivers[target] = r
}

// Forward posts the call's value from the wallet to the target and delivers
// the payload as part of the same posting. An underfunded or rejected call
// leaves balances untouched and a rejected one records nothing. Client
// transaction ids are scoped to the wallet: replaying one returns the stored
// result together with ledger.ErrDuplicateTransaction and does not deliver
// again. Zero-value calls are recorded the same way.
func (f *Forwarder) Forward(ctx context.Context, call wallet.Call) (wallet.CallResult, error) {
	if call.Value < 0 {
		return wallet.CallResult{}, ledger.ErrInvalidAmount
	}

	f.mu.RLock()
	receiver := f.receivers[call.Target]
	f.mu.RUnlock()

	fromCode := wallet.AccountCode(call.Wallet)
	toCode := wallet.AccountCode(call.Target)
	if err := f.ledger.EnsureAccount(ctx, fromCode); err != nil {
		return wallet.CallResult{}, err
	}
	if err := f.ledger.EnsureAccount(ctx, toCode); err != nil {
		return wallet.CallResult{}, err
	}

	deliver := func() error {
		if receiver == nil {
			return nil
		}
		if err := receiver.Receive(ctx, call.Wallet, call.Data, call.Value); err != nil {
			return fmt.Errorf("target %s rejected call: %w", call.Target.Hex(), err)
		}
		return nil
	}

	res, err := f.ledger.TransferWith(ctx, fromCode, toCode, kindCall, wallet.ScopedTxID(call.Wallet, call.ClientTxID), call.Value, deliver)
	out := wallet.CallResult{
		TransactionID: res.TransactionID,
		WalletBalance: res.FromBalance,
		TargetBalance: res.ToBalance,
	}
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateTransaction) {
			out.Replayed = true
			return out, err
		}
		return wallet.CallResult{}, err
	}

	if f.notifier != nil && call.Value > 0 && call.Target != call.Wallet {
		_ = f.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindValueReceived,
			Destination: call.Target.Hex(),
			Wallet:      call.Wallet.Hex(),
			Body:        fmt.Sprintf("You received %d from wallet %s", call.Value, call.Wallet.Hex()),
		})
	}

	return out, nil
}

