package wallet

import (
	"errors"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gofiber/fiber/v2"

	"github.com/social-recovery/recovery_wallet/internal/ledger"
)

// CallerLocal is the fiber local holding the authenticated caller address.
const CallerLocal = "caller"

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type executeRequest struct {
	Target     string        `json:"target"`
	Data       hexutil.Bytes `json:"data"`
	Value      int64         `json:"value"`
	ClientTxID string        `json:"client_tx_id"`
}

type depositRequest struct {
	Amount     int64  `json:"amount"`
	ClientTxID string `json:"client_tx_id"`
}

type guardianRequest struct {
	Account string `json:"account"`
}

type nominateRequest struct {
	Candidate string `json:"candidate"`
}

type walletResponse struct {
	Address          string    `json:"address"`
	Deployer         string    `json:"deployer"`
	Owner            string    `json:"owner"`
	Guardians        []string  `json:"guardians"`
	PendingRecoverer *string   `json:"pending_recoverer"`
	Phase            Phase     `json:"phase"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toResponse(w Wallet) walletResponse {
	guardians := make([]string, 0, len(w.State.Guardians))
	for _, g := range w.State.GuardianList() {
		guardians = append(guardians, g.Hex())
	}
	res := walletResponse{
		Address:   w.Address.Hex(),
		Deployer:  w.Deployer.Hex(),
		Owner:     w.State.Owner.Hex(),
		Guardians: guardians,
		Phase:     w.State.Phase(),
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
	if w.State.PendingRecoverer != nil {
		p := w.State.PendingRecoverer.Hex()
		res.PendingRecoverer = &p
	}
	return res
}

// Deploy creates a wallet owned by the caller.
func (h *Handler) Deploy(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	w, err := h.service.Deploy(c.UserContext(), caller)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(w))
}

// Get returns wallet details.
func (h *Handler) Get(c *fiber.Ctx) error {
	address, err := addressParam(c, "address")
	if err != nil {
		return err
	}
	w, err := h.service.Get(c.UserContext(), address)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(w))
}

// List returns wallets owned by the ?owner= address, defaulting to the caller.
func (h *Handler) List(c *fiber.Ctx) error {
	owner, err := callerFrom(c)
	if err != nil {
		return err
	}
	if q := c.Query("owner"); q != "" {
		if owner, err = parseAddress(q); err != nil {
			return err
		}
	}
	wallets, err := h.service.ListByOwner(c.UserContext(), owner)
	if err != nil {
		return toHTTPError(err)
	}
	out := make([]walletResponse, 0, len(wallets))
	for _, w := range wallets {
		out = append(out, toResponse(w))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"wallets": out, "count": len(out)})
}

// Balance returns the wallet balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	address, err := addressParam(c, "address")
	if err != nil {
		return err
	}
	balance, err := h.service.Balance(c.UserContext(), address)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"address":   balance.Address.Hex(),
		"balance":   balance.Amount,
		"timestamp": balance.AsOf,
	})
}

// AccountBalance returns the balance of any account address.
func (h *Handler) AccountBalance(c *fiber.Ctx) error {
	address, err := addressParam(c, "address")
	if err != nil {
		return err
	}
	balance, err := h.service.AccountBalance(c.UserContext(), address)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"address":   balance.Address.Hex(),
		"balance":   balance.Amount,
		"timestamp": balance.AsOf,
	})
}

// Deposit moves value from the caller into the wallet.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	address, err := addressParam(c, "address")
	if err != nil {
		return err
	}
	var req depositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	balance, err := h.service.Deposit(c.UserContext(), DepositInput{Wallet: address, From: caller, Amount: req.Amount, ClientTxID: req.ClientTxID})
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"address": balance.Address.Hex(),
		"balance": balance.Amount,
	})
}

// Execute forwards a call from the wallet.
func (h *Handler) Execute(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	address, err := addressParam(c, "address")
	if err != nil {
		return err
	}
	var req executeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	target, err := parseAddress(req.Target)
	if err != nil {
		return err
	}
	if req.Value < 0 {
		return fiber.NewError(http.StatusBadRequest, "value must not be negative")
	}
	res, err := h.service.Execute(c.UserContext(), ExecuteInput{
		Wallet:     address,
		Caller:     caller,
		Target:     target,
		Data:       req.Data,
		Value:      req.Value,
		ClientTxID: req.ClientTxID,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"transaction_id": res.TransactionID,
		"wallet_balance": res.WalletBalance,
		"target_balance": res.TargetBalance,
		"replayed":       res.Replayed,
	})
}

// RegisterGuardian adds a guardian.
func (h *Handler) RegisterGuardian(c *fiber.Ctx) error {
	var req guardianRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	account, err := parseAddress(req.Account)
	if err != nil {
		return err
	}
	return h.mutate(c, http.StatusCreated, func(address, caller common.Address) (Wallet, error) {
		return h.service.RegisterGuardian(c.UserContext(), address, caller, account)
	})
}

// DeregisterGuardian removes the guardian named in the path.
func (h *Handler) DeregisterGuardian(c *fiber.Ctx) error {
	account, err := addressParam(c, "account")
	if err != nil {
		return err
	}
	return h.mutate(c, http.StatusOK, func(address, caller common.Address) (Wallet, error) {
		return h.service.DeregisterGuardian(c.UserContext(), address, caller, account)
	})
}

// Nominate records a guardian's choice of recoverer.
func (h *Handler) Nominate(c *fiber.Ctx) error {
	var req nominateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	candidate, err := parseAddress(req.Candidate)
	if err != nil {
		return err
	}
	return h.mutate(c, http.StatusOK, func(address, caller common.Address) (Wallet, error) {
		return h.service.ChooseRecoverer(c.UserContext(), address, caller, candidate)
	})
}

// Claim lets the pending recoverer take ownership.
func (h *Handler) Claim(c *fiber.Ctx) error {
	return h.mutate(c, http.StatusOK, func(address, caller common.Address) (Wallet, error) {
		return h.service.ClaimOwnership(c.UserContext(), address, caller)
	})
}

// Cancel drops a pending recovery.
func (h *Handler) Cancel(c *fiber.Ctx) error {
	return h.mutate(c, http.StatusOK, func(address, caller common.Address) (Wallet, error) {
		return h.service.CancelRecovery(c.UserContext(), address, caller)
	})
}

func (h *Handler) mutate(c *fiber.Ctx, status int, fn func(address, caller common.Address) (Wallet, error)) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	address, err := addressParam(c, "address")
	if err != nil {
		return err
	}
	w, err := fn(address, caller)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(status).JSON(toResponse(w))
}

func callerFrom(c *fiber.Ctx) (common.Address, error) {
	raw, _ := c.Locals(CallerLocal).(string)
	if raw == "" || !common.IsHexAddress(raw) {
		return common.Address{}, fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	return common.HexToAddress(raw), nil
}

func addressParam(c *fiber.Ctx, name string) (common.Address, error) {
	return parseAddress(c.Params(name))
}

func parseAddress(raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fiber.NewError(http.StatusBadRequest, "invalid address: "+raw)
	}
	return common.HexToAddress(raw), nil
}

func toHTTPError(err error) error {
	if reason, ok := RevertReason(err); ok {
		switch {
		case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrNotPendingRecoverer):
			return fiber.NewError(http.StatusForbidden, reason)
		case errors.Is(err, ErrEmptyData):
			return fiber.NewError(http.StatusBadRequest, reason)
		case errors.Is(err, ErrCallFailed):
			return fiber.NewError(http.StatusUnprocessableEntity, reason)
		default:
			return fiber.NewError(http.StatusConflict, reason)
		}
	}
	switch {
	case errors.Is(err, ErrWalletNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrZeroAddress), errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrDuplicateTransaction), errors.Is(err, ErrWalletExists):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
