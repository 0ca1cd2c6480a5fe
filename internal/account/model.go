package account

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Account is a registered caller. Its address is the identity every wallet
// operation authorizes against.
type Account struct {
	Address      common.Address
	PINHash      []byte
	TokenVersion int
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// Credentials request structure.
type Credentials struct {
	Address string
	PIN     string
}
