package balance

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/dot_balance/internal/middleware"
)

const failureMessage = "Failed to fetch balance"

// Handler exposes balance HTTP endpoints.
type Handler struct {
	service *Service
	symbol  string
	logger  *slog.Logger
}

// NewHandler builds a balance HTTP handler.
func NewHandler(service *Service, symbol string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, symbol: symbol, logger: logger}
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

type balanceResponse struct {
	Free        json.Number `json:"free"`
	Reserved    json.Number `json:"reserved"`
	Frozen      json.Number `json:"frozen"`
	Total       json.Number `json:"total"`
	Symbol      string      `json:"symbol,omitempty"`
	BlockNumber uint64      `json:"block_number"`
}

type lookupResponse struct {
	ID          string `json:"id"`
	Address     string `json:"address"`
	Outcome     string `json:"outcome"`
	BlockNumber uint64 `json:"block_number"`
	DurationMS  int64  `json:"duration_ms"`
	CreatedAt   string `json:"created_at"`
}

// Get resolves the balance of the :address path parameter. Failures are
// reported with a generic message; details stay in the logs.
func (h *Handler) Get(c *fiber.Ctx) error {
	address := c.Params("address")
	res, err := h.service.Resolve(c.UserContext(), address)
	if err != nil {
		h.logger.Error("balance request failed",
			slog.String("request_id", middleware.RequestIDFrom(c)),
			slog.String("address", address),
			slog.Any("error", err),
		)
		return c.Status(HTTPStatus(err)).JSON(envelope{Success: false, Error: failureMessage})
	}
	return c.Status(http.StatusOK).JSON(envelope{Success: true, Data: balanceResponse{
		Free:        json.Number(res.Free.String()),
		Reserved:    json.Number(res.Reserved.String()),
		Frozen:      json.Number(res.Frozen.String()),
		Total:       json.Number(res.Total.String()),
		Symbol:      h.symbol,
		BlockNumber: res.Block,
	}})
}

// Recent lists the latest lookups.
func (h *Handler) Recent(c *fiber.Ctx) error {
	entries, err := h.service.Recent(c.UserContext(), c.QueryInt("limit"))
	if err != nil {
		h.logger.Error("list lookups failed", slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(envelope{Success: false, Error: "Failed to list lookups"})
	}
	out := make([]lookupResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, lookupResponse{
			ID:          e.ID,
			Address:     e.Address,
			Outcome:     e.Outcome,
			BlockNumber: e.BlockNumber,
			DurationMS:  e.Duration.Milliseconds(),
			CreatedAt:   e.CreatedAt.Format(time.RFC3339Nano),
		})
	}
	return c.Status(http.StatusOK).JSON(envelope{Success: true, Data: out})
}
