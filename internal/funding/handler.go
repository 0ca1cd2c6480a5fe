package funding

import (
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"

	"github.com/social-recovery/recovery_wallet/internal/ledger"
)

// Handler exposes the faucet endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a funding handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// FundRequest carries the amount to credit.
type FundRequest struct {
	Amount     int64  `json:"amount"`
	ClientTxID string `json:"client_tx_id"`
}

// FundingResponse represents the API response for faucet credits.
type FundingResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Balance       int64  `json:"balance"`
}

// Fund credits native value to the account in the path.
func (h *Handler) Fund(c *fiber.Ctx) error {
	raw := c.Params("address")
	if !common.IsHexAddress(raw) {
		return fiber.NewError(http.StatusBadRequest, "invalid address: "+raw)
	}
	var req FundRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.Fund(c.UserContext(), FundInput{
		Address:    common.HexToAddress(raw),
		Amount:     req.Amount,
		ClientTxID: req.ClientTxID,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrDuplicateTransaction):
			return c.Status(http.StatusOK).JSON(toResponse(result))
		default:
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(toResponse(result))
}

func toResponse(result FundingResult) FundingResponse {
	return FundingResponse{
		TransactionID: result.TransactionID,
		Status:        result.Status,
		Balance:       result.Balance,
	}
}
