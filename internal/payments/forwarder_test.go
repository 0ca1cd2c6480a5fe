package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/social-recovery/recovery_wallet/internal/ledger"
	"github.com/social-recovery/recovery_wallet/internal/notification"
	"github.com/social-recovery/recovery_wallet/internal/wallet"
)

var (
	walletAddr = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	targetAddr = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

func TestForwardMovesValue(t *testing.T) {
	led := ledger.NewInMemory()
	notifier := &notification.Recorder{}
	fwd := NewForwarder(led, notifier)
	ctx := context.Background()

	ledger.SeedBalance(led, wallet.AccountCode(walletAddr), 10_000)

	res, err := fwd.Forward(ctx, wallet.Call{Wallet: walletAddr, Target: targetAddr, Data: []byte{0x11, 0xab}, Value: 5_000, ClientTxID: "c1"})
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if res.WalletBalance != 5_000 || res.TargetBalance != 5_000 {
		t.Fatalf("unexpected balances: %+v", res)
	}
	if notifier.Last().Kind != notification.KindValueReceived {
		t.Fatalf("expected value received notification")
	}
}

func TestForwardRejectedByReceiverKeepsBalances(t *testing.T) {
	led := ledger.NewInMemory()
	fwd := NewForwarder(led, nil)
	ctx := context.Background()

	ledger.SeedBalance(led, wallet.AccountCode(walletAddr), 1_000)
	errRevert := errors.New("unknown selector")
	fwd.Install(targetAddr, ReceiverFunc(func(context.Context, common.Address, []byte, int64) error {
		return errRevert
	}))

	if _, err := fwd.Forward(ctx, wallet.Call{Wallet: walletAddr, Target: targetAddr, Data: []byte{0x01}, Value: 500, ClientTxID: "c2"}); !errors.Is(err, errRevert) {
		t.Fatalf("expected receiver error, got %v", err)
	}

	bal, _ := led.Balance(ctx, wallet.AccountCode(walletAddr))
	if bal != 1_000 {
		t.Fatalf("expected wallet balance untouched, got %d", bal)
	}
}

func TestForwardUnderfunded(t *testing.T) {
	led := ledger.NewInMemory()
	fwd := NewForwarder(led, nil)
	ctx := context.Background()
	led.EnsureAccount(ctx, wallet.AccountCode(walletAddr))

	if _, err := fwd.Forward(ctx, wallet.Call{Wallet: walletAddr, Target: targetAddr, Data: []byte{0x01}, Value: 1, ClientTxID: "c3"}); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestForwardZeroValueStillDelivers(t *testing.T) {
	led := ledger.NewInMemory()
	fwd := NewForwarder(led, nil)
	ctx := context.Background()
	led.EnsureAccount(ctx, wallet.AccountCode(walletAddr))

	var got []byte
	fwd.Install(targetAddr, ReceiverFunc(func(_ context.Context, _ common.Address, data []byte, _ int64) error {
		got = data
		return nil
	}))

	if _, err := fwd.Forward(ctx, wallet.Call{Wallet: walletAddr, Target: targetAddr, Data: []byte{0x12}, ClientTxID: "c4"}); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if len(got) != 1 || got[0] != 0x12 {
		t.Fatalf("payload not delivered, got %x", got)
	}
}

func countingReceiver(n *int) Receiver {
	return ReceiverFunc(func(context.Context, common.Address, []byte, int64) error {
		*n++
		return nil
	})
}

func TestForwardUnderfundedDoesNotDeliver(t *testing.T) {
	led := ledger.NewInMemory()
	fwd := NewForwarder(led, nil)
	ctx := context.Background()

	delivered := 0
	fwd.Install(targetAddr, countingReceiver(&delivered))

	if _, err := fwd.Forward(ctx, wallet.Call{Wallet: walletAddr, Target: targetAddr, Data: []byte{0x01}, Value: 50, ClientTxID: "poor"}); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if delivered != 0 {
		t.Fatalf("payload delivered %d times for an underfunded call", delivered)
	}
}

func TestForwardToSelfKeepsBalance(t *testing.T) {
	led := ledger.NewInMemory()
	fwd := NewForwarder(led, nil)
	ctx := context.Background()
	ledger.SeedBalance(led, wallet.AccountCode(walletAddr), 1_000)

	res, err := fwd.Forward(ctx, wallet.Call{Wallet: walletAddr, Target: walletAddr, Data: []byte{0x01}, Value: 1_000, ClientTxID: "self"})
	if err != nil {
		t.Fatalf("forward to self: %v", err)
	}
	if res.WalletBalance != 1_000 || res.TargetBalance != 1_000 {
		t.Fatalf("unexpected balances: %+v", res)
	}
	if bal, _ := led.Balance(ctx, wallet.AccountCode(walletAddr)); bal != 1_000 {
		t.Fatalf("self call changed wallet balance to %d", bal)
	}
}

func TestForwardClientTxIDScopedPerWallet(t *testing.T) {
	led := ledger.NewInMemory()
	fwd := NewForwarder(led, nil)
	ctx := context.Background()
	otherWallet := common.HexToAddress("0x00000000000000000000000000000000000000c3")
	ledger.SeedBalance(led, wallet.AccountCode(walletAddr), 100)
	ledger.SeedBalance(led, wallet.AccountCode(otherWallet), 100)

	if _, err := fwd.Forward(ctx, wallet.Call{Wallet: walletAddr, Target: targetAddr, Data: []byte{0x01}, Value: 10, ClientTxID: "shared"}); err != nil {
		t.Fatalf("first wallet: %v", err)
	}
	res, err := fwd.Forward(ctx, wallet.Call{Wallet: otherWallet, Target: targetAddr, Data: []byte{0x01}, Value: 20, ClientTxID: "shared"})
	if err != nil {
		t.Fatalf("second wallet reusing id: %v", err)
	}
	if res.Replayed || res.WalletBalance != 80 || res.TargetBalance != 30 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestForwardReplayReturnsStoredResult(t *testing.T) {
	led := ledger.NewInMemory()
	fwd := NewForwarder(led, nil)
	ctx := context.Background()
	ledger.SeedBalance(led, wallet.AccountCode(walletAddr), 100)

	delivered := 0
	fwd.Install(targetAddr, countingReceiver(&delivered))

	call := wallet.Call{Wallet: walletAddr, Target: targetAddr, Data: []byte{0x01}, Value: 40, ClientTxID: "retry"}
	first, err := fwd.Forward(ctx, call)
	if err != nil {
		t.Fatalf("first forward: %v", err)
	}
	again, err := fwd.Forward(ctx, call)
	if !errors.Is(err, ledger.ErrDuplicateTransaction) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if !again.Replayed || again.TransactionID != first.TransactionID {
		t.Fatalf("replay returned %+v, first was %+v", again, first)
	}
	if delivered != 1 {
		t.Fatalf("expected one delivery, got %d", delivered)
	}
	if bal, _ := led.Balance(ctx, wallet.AccountCode(walletAddr)); bal != 60 {
		t.Fatalf("value moved twice, wallet balance %d", bal)
	}
}

func TestForwardZeroValueReplayDeliversOnce(t *testing.T) {
	led := ledger.NewInMemory()
	fwd := NewForwarder(led, nil)
	ctx := context.Background()

	delivered := 0
	fwd.Install(targetAddr, countingReceiver(&delivered))

	call := wallet.Call{Wallet: walletAddr, Target: targetAddr, Data: []byte{0x02}, ClientTxID: "ping"}
	if _, err := fwd.Forward(ctx, call); err != nil {
		t.Fatalf("first forward: %v", err)
	}
	if _, err := fwd.Forward(ctx, call); !errors.Is(err, ledger.ErrDuplicateTransaction) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if delivered != 1 {
		t.Fatalf("expected one delivery, got %d", delivered)
	}
}
