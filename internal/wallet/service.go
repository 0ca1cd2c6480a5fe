package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/social-recovery/recovery_wallet/internal/ledger"
	"github.com/social-recovery/recovery_wallet/internal/logging"
	"github.com/social-recovery/recovery_wallet/internal/metrics"
	"github.com/social-recovery/recovery_wallet/internal/notification"
)

const (
	kindDeposit      = "deposit"
	deployMaxAttempt = 3
)

// Call is a forwarded call a wallet relays to Target on its owner's behalf.
// The payload is opaque to the wallet.
type Call struct {
	Wallet     common.Address
	Target     common.Address
	Data       []byte
	Value      int64
	ClientTxID string
}

// CallResult reports where value ended up after a forwarded call.
type CallResult struct {
	TransactionID string
	WalletBalance int64
	TargetBalance int64
	// Replayed is set when the client transaction id was already used by this
	// wallet and the stored result is returned instead.
	Replayed bool
}

// Forwarder moves value and delivers the payload of a forwarded call. It must
// either apply both or neither. A reused client transaction id yields the
// stored result and ledger.ErrDuplicateTransaction.
type Forwarder interface {
	Forward(ctx context.Context, call Call) (CallResult, error)
}

// Deps aggregates collaborators of the wallet service.
type Deps struct {
	Repo      Repository
	Ledger    ledger.Ledger
	Forwarder Forwarder
	Notifier  notification.Notifier
	Metrics   *metrics.Recorder
	Logger    *slog.Logger
}

// Service exposes recovery wallet operations.
type Service struct {
	repo      Repository
	ledger    ledger.Ledger
	forwarder Forwarder
	notifier  notification.Notifier
	metrics   *metrics.Recorder
	logger    *slog.Logger
}

// NewService builds a wallet service instance.
func NewService(d Deps) (*Service, error) {
	if d.Repo == nil || d.Ledger == nil || d.Forwarder == nil {
		return nil, fmt.Errorf("wallet service requires a repository, a ledger and a forwarder")
	}
	return &Service{
		repo:      d.Repo,
		ledger:    d.Ledger,
		forwarder: d.Forwarder,
		notifier:  d.Notifier,
		metrics:   d.Metrics,
		logger:    logging.OrDiscard(d.Logger),
	}, nil
}

// ExecuteInput captures a forwarded call request.
type ExecuteInput struct {
	Wallet     common.Address
	Caller     common.Address
	Target     common.Address
	Data       []byte
	Value      int64
	ClientTxID string
}

// DepositInput captures value sent into a wallet.
type DepositInput struct {
	Wallet     common.Address
	From       common.Address
	Amount     int64
	ClientTxID string
}

// Deploy creates a wallet owned by deployer. The address is derived from the
// deployer and its deployment count.
func (s *Service) Deploy(ctx context.Context, deployer common.Address) (Wallet, error) {
	start := time.Now()
	w, err := s.deploy(ctx, deployer)
	s.observe("deploy", err, start)
	if err != nil {
		return Wallet{}, err
	}
	s.logger.Info("wallet.deployed",
		slog.String("wallet", w.Address.Hex()),
		slog.String("owner", deployer.Hex()),
		slog.Uint64("nonce", w.Nonce),
	)
	return w, nil
}

func (s *Service) deploy(ctx context.Context, deployer common.Address) (Wallet, error) {
	if deployer == (common.Address{}) {
		return Wallet{}, ErrZeroAddress
	}
	for attempt := 0; attempt < deployMaxAttempt; attempt++ {
		nonce, err := s.repo.NextNonce(ctx, deployer)
		if err != nil {
			return Wallet{}, err
		}
		address := crypto.CreateAddress(deployer, nonce)
		if err := s.ledger.EnsureAccount(ctx, AccountCode(address)); err != nil {
			return Wallet{}, err
		}
		now := time.Now().UTC()
		w := Wallet{
			Address:   address,
			Deployer:  deployer,
			Nonce:     nonce,
			State:     NewState(deployer),
			CreatedAt: now,
			UpdatedAt: now,
		}
		err = s.repo.Create(ctx, w)
		if errors.Is(err, ErrWalletExists) {
			continue
		}
		if err != nil {
			return Wallet{}, err
		}
		return w, nil
	}
	return Wallet{}, ErrWalletExists
}

// Get retrieves a wallet.
func (s *Service) Get(ctx context.Context, address common.Address) (Wallet, error) {
	return s.repo.Get(ctx, address)
}

// ListByOwner returns the wallets owned by owner.
func (s *Service) ListByOwner(ctx context.Context, owner common.Address) ([]Wallet, error) {
	return s.repo.ListByOwner(ctx, owner)
}

// Balance returns the ledger balance held by the wallet.
func (s *Service) Balance(ctx context.Context, address common.Address) (Balance, error) {
	if _, err := s.repo.Get(ctx, address); err != nil {
		return Balance{}, err
	}
	return s.AccountBalance(ctx, address)
}

// AccountBalance returns the ledger balance of any address.
func (s *Service) AccountBalance(ctx context.Context, address common.Address) (Balance, error) {
	amount, err := s.ledger.Balance(ctx, AccountCode(address))
	if err != nil {
		return Balance{}, err
	}
	return Balance{Address: address, Amount: amount, AsOf: time.Now().UTC()}, nil
}

// Deposit moves value from an external account into the wallet.
func (s *Service) Deposit(ctx context.Context, in DepositInput) (Balance, error) {
	start := time.Now()
	bal, err := s.deposit(ctx, in)
	s.observe("deposit", err, start)
	return bal, err
}

func (s *Service) deposit(ctx context.Context, in DepositInput) (Balance, error) {
	if _, err := s.repo.Get(ctx, in.Wallet); err != nil {
		return Balance{}, err
	}
	if in.ClientTxID == "" {
		in.ClientTxID = uuid.NewString()
	}
	if err := s.ledger.EnsureAccount(ctx, AccountCode(in.From)); err != nil {
		return Balance{}, err
	}
	res, err := s.ledger.Transfer(ctx, AccountCode(in.From), AccountCode(in.Wallet), kindDeposit, ScopedTxID(in.Wallet, in.ClientTxID), in.Amount)
	if err != nil {
		return Balance{}, err
	}
	s.logger.Info("wallet.deposit",
		slog.String("wallet", in.Wallet.Hex()),
		slog.String("from", in.From.Hex()),
		slog.Int64("amount", in.Amount),
	)
	return Balance{Address: in.Wallet, Amount: res.ToBalance, AsOf: time.Now().UTC()}, nil
}

// Execute forwards a call with value from the wallet. Only the owner may call
// it and the payload must not be empty. Reusing a client transaction id
// returns the original result without forwarding again. The wallet row is
// locked but never written, so a posted call is never reported as failed.
func (s *Service) Execute(ctx context.Context, in ExecuteInput) (CallResult, error) {
	start := time.Now()
	if in.ClientTxID == "" {
		in.ClientTxID = uuid.NewString()
	}

	var result CallResult
	err := s.repo.Lock(ctx, in.Wallet, func(w Wallet) error {
		if err := w.State.CheckExecute(in.Caller, in.Data); err != nil {
			return err
		}
		res, err := s.forwarder.Forward(ctx, Call{
			Wallet:     w.Address,
			Target:     in.Target,
			Data:       in.Data,
			Value:      in.Value,
			ClientTxID: in.ClientTxID,
		})
		if err != nil && !errors.Is(err, ledger.ErrDuplicateTransaction) {
			return fmt.Errorf("%w: %w", ErrCallFailed, err)
		}
		result = res
		result.Replayed = err != nil
		return nil
	})
	s.observe("execute", err, start)
	if err != nil {
		s.logger.Warn("wallet.execute rejected",
			slog.String("wallet", in.Wallet.Hex()),
			slog.String("caller", in.Caller.Hex()),
			slog.Any("error", err),
		)
		return CallResult{}, err
	}

	if result.Replayed {
		s.logger.Info("wallet.execute replayed",
			slog.String("wallet", in.Wallet.Hex()),
			slog.String("client_tx_id", in.ClientTxID),
		)
		return result, nil
	}

	s.metrics.AddForwardedValue(in.Value)
	s.logger.Info("wallet.executed",
		slog.String("wallet", in.Wallet.Hex()),
		slog.String("target", in.Target.Hex()),
		slog.Int64("value", in.Value),
		slog.Int("data_len", len(in.Data)),
	)
	return result, nil
}

// RegisterGuardian adds a guardian. Owner only.
func (s *Service) RegisterGuardian(ctx context.Context, address, caller, account common.Address) (Wallet, error) {
	w, err := s.mutate(ctx, "register_guardian", address, func(st *State) error {
		return st.RegisterGuardian(caller, account)
	})
	if err != nil {
		return Wallet{}, err
	}
	s.notify(ctx, notification.KindGuardianRegistered, account, address,
		fmt.Sprintf("You are now a guardian of wallet %s", address.Hex()))
	return w, nil
}

// DeregisterGuardian removes a guardian. Owner only.
func (s *Service) DeregisterGuardian(ctx context.Context, address, caller, account common.Address) (Wallet, error) {
	w, err := s.mutate(ctx, "deregister_guardian", address, func(st *State) error {
		return st.DeregisterGuardian(caller, account)
	})
	if err != nil {
		return Wallet{}, err
	}
	s.notify(ctx, notification.KindGuardianDeregistered, account, address,
		fmt.Sprintf("You are no longer a guardian of wallet %s", address.Hex()))
	return w, nil
}

// ChooseRecoverer nominates a new owner. Guardian only.
func (s *Service) ChooseRecoverer(ctx context.Context, address, caller, candidate common.Address) (Wallet, error) {
	w, err := s.mutate(ctx, "choose_recoverer", address, func(st *State) error {
		return st.ChooseRecoverer(caller, candidate)
	})
	if err != nil {
		return Wallet{}, err
	}
	s.notify(ctx, notification.KindRecoveryNominated, w.State.Owner, address,
		fmt.Sprintf("Guardian %s nominated %s to take over wallet %s", caller.Hex(), candidate.Hex(), address.Hex()))
	return w, nil
}

// ClaimOwnership transfers ownership to the pending recoverer.
func (s *Service) ClaimOwnership(ctx context.Context, address, caller common.Address) (Wallet, error) {
	var previous common.Address
	w, err := s.mutate(ctx, "claim_ownership", address, func(st *State) error {
		previous = st.Owner
		return st.ClaimOwnership(caller)
	})
	if err != nil {
		return Wallet{}, err
	}
	s.notify(ctx, notification.KindOwnershipClaimed, previous, address,
		fmt.Sprintf("Ownership of wallet %s moved to %s", address.Hex(), caller.Hex()))
	return w, nil
}

// CancelRecovery drops a pending nomination. Owner only.
func (s *Service) CancelRecovery(ctx context.Context, address, caller common.Address) (Wallet, error) {
	var nominee common.Address
	w, err := s.mutate(ctx, "cancel_recovery", address, func(st *State) error {
		if st.PendingRecoverer != nil {
			nominee = *st.PendingRecoverer
		}
		return st.CancelRecovery(caller)
	})
	if err != nil {
		return Wallet{}, err
	}
	s.notify(ctx, notification.KindRecoveryCancelled, nominee, address,
		fmt.Sprintf("Recovery of wallet %s was cancelled by its owner", address.Hex()))
	return w, nil
}

func (s *Service) mutate(ctx context.Context, op string, address common.Address, fn func(*State) error) (Wallet, error) {
	start := time.Now()
	w, err := s.repo.Update(ctx, address, func(w *Wallet) error {
		return fn(&w.State)
	})
	s.observe(op, err, start)
	if err != nil {
		s.logger.Warn("wallet."+op+" rejected",
			slog.String("wallet", address.Hex()),
			slog.Any("error", err),
		)
		return Wallet{}, err
	}
	s.logger.Info("wallet."+op,
		slog.String("wallet", address.Hex()),
		slog.String("owner", w.State.Owner.Hex()),
		slog.String("phase", string(w.State.Phase())),
	)
	return w, nil
}

func (s *Service) observe(op string, err error, start time.Time) {
	s.metrics.Observe(op, errorKind(err), time.Since(start))
}

func (s *Service) notify(ctx context.Context, kind string, to, wallet common.Address, body string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, notification.Message{
		Kind:        kind,
		Destination: to.Hex(),
		Wallet:      wallet.Hex(),
		Body:        body,
	}); err != nil {
		s.logger.Warn("notification failed", slog.String("kind", kind), slog.Any("error", err))
	}
}
