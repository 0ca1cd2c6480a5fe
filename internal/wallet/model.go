package wallet

import (
	"bytes"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Phase names the recovery state of a wallet.
type Phase string

const (
	PhaseNormal          Phase = "normal"
	PhaseRecoveryPending Phase = "recovery_pending"
)

// State is the mutable part of a deployment. Operations receive a pointer to a
// private copy and the repository commits it only when the operation succeeds.
type State struct {
	Owner            common.Address
	Guardians        map[common.Address]struct{}
	PendingRecoverer *common.Address
}

// Wallet is one recovery wallet deployment.
type Wallet struct {
	Address   common.Address
	Deployer  common.Address
	Nonce     uint64
	State     State
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Balance encapsulates available funds for a wallet or account.
type Balance struct {
	Address common.Address
	Amount  int64
	AsOf    time.Time
}

// NewState returns the state of a fresh deployment owned by deployer.
func NewState(deployer common.Address) State {
	return State{Owner: deployer, Guardians: make(map[common.Address]struct{})}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := State{Owner: s.Owner, Guardians: make(map[common.Address]struct{}, len(s.Guardians))}
	for g := range s.Guardians {
		out.Guardians[g] = struct{}{}
	}
	if s.PendingRecoverer != nil {
		p := *s.PendingRecoverer
		out.PendingRecoverer = &p
	}
	return out
}

// IsGuardian reports guardian membership.
func (s State) IsGuardian(account common.Address) bool {
	_, ok := s.Guardians[account]
	return ok
}

// GuardianList returns guardians in ascending byte order.
func (s State) GuardianList() []common.Address {
	out := make([]common.Address, 0, len(s.Guardians))
	for g := range s.Guardians {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}

// Phase derives the recovery phase from the pending recoverer.
func (s State) Phase() Phase {
	if s.PendingRecoverer != nil {
		return PhaseRecoveryPending
	}
	return PhaseNormal
}

// Clone returns a deep copy of the wallet.
func (w Wallet) Clone() Wallet {
	w.State = w.State.Clone()
	return w
}

// AccountCode is the ledger account holding the native balance of addr.
func AccountCode(addr common.Address) string {
	return "account:" + strings.ToLower(addr.Hex())
}

// ScopedTxID namespaces a client transaction id under the wallet it was sent
// for, so two wallets may reuse the same id.
func ScopedTxID(w common.Address, clientTxID string) string {
	return strings.ToLower(w.Hex()) + "/" + clientTxID
}
