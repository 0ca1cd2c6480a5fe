package auth

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"

	"github.com/social-recovery/recovery_wallet/internal/account"
	"github.com/social-recovery/recovery_wallet/internal/wallet"
)

// Handler exposes account registration and session endpoints.
type Handler struct {
	accounts *account.Service
	svc      *Service
}

// NewHandler wires the auth handler.
func NewHandler(accounts *account.Service, svc *Service) *Handler {
	return &Handler{accounts: accounts, svc: svc}
}

type credentialsRequest struct {
	Address string `json:"address"`
	PIN     string `json:"pin"`
}

type loginResponse struct {
	Address      string `json:"address"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenVersion int    `json:"token_version"`
}

// Register creates an account for an address.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	acct, err := h.accounts.Register(c.UserContext(), account.Credentials{Address: req.Address, PIN: req.PIN})
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"address":    acct.Address.Hex(),
		"created_at": acct.CreatedAt,
	})
}

// Login validates credentials and returns a token pair.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	acct, err := h.accounts.Authenticate(c.UserContext(), account.Credentials{Address: req.Address, PIN: req.PIN})
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	}
	pair, err := h.svc.Login(acct)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(loginResponse{
		Address:      acct.Address.Hex(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		TokenVersion: acct.TokenVersion,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh issues a new access token using a valid refresh token.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	token, exp, err := h.svc.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"access_token": token, "expires_in": exp})
}

// Logout invalidates the caller's tokens by bumping the token version. It must
// be mounted behind JWTAuth.
func (h *Handler) Logout(c *fiber.Ctx) error {
	caller, _ := c.Locals(wallet.CallerLocal).(string)
	if !common.IsHexAddress(caller) {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	if err := h.svc.Logout(c.UserContext(), common.HexToAddress(caller)); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "logged_out"})
}
