package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"ticket-engine/internal/services/ticket"
	"ticket-engine/internal/status"
	"ticket-engine/monitoring"
	"ticket-engine/utils"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type TicketHandler struct {
	tickets     *ticket.Service
	gateKeyHash string
}

func NewTicketHandler(tickets *ticket.Service, gateKeyHash string) *TicketHandler {
	return &TicketHandler{
		tickets:     tickets,
		gateKeyHash: gateKeyHash,
	}
}

// GetTicket resolves a ticket reference to its live state. Safe to call any
// number of times, it never mutates anything.
func (h *TicketHandler) GetTicket(e *core.RequestEvent) error {
	reference := e.Request.PathValue("reference")

	info, invoice, err := h.tickets.Verify(e.Request.Context(), reference)
	if err != nil {
		return h.ticketError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"ticket":  info,
		"invoice": invoice,
		"status":  info.Status,
	})
}

// UseTicket consumes a ticket at the gate. At most one call succeeds per
// ticket, everyone else gets a conflict.
func (h *TicketHandler) UseTicket(e *core.RequestEvent) error {
	if h.gateKeyHash != "" {
		key := e.Request.Header.Get("X-Gate-Key")
		if key == "" || !utils.CompareHash(h.gateKeyHash, key) {
			monitoring.ObserveCheckIn("unauthorized")
			return apis.NewForbiddenError("Invalid gate key", nil)
		}
	}

	reference := e.Request.PathValue("reference")

	info, err := h.tickets.CheckIn(e.Request.Context(), reference)
	if err != nil {
		monitoring.ObserveCheckIn(checkInOutcome(err))
		return h.ticketError(err)
	}

	monitoring.ObserveCheckIn("ok")
	slog.Info("ticket checked in", "invoice_id", info.InvoiceID, "event", info.EventName)

	return e.JSON(http.StatusOK, map[string]any{
		"success":       true,
		"message":       "Ticket accepted",
		"event_name":    info.EventName,
		"checked_in_at": info.CheckedInAt,
	})
}

func (h *TicketHandler) ticketError(err error) error {
	switch {
	case errors.Is(err, status.ErrMalformedTicket):
		return apis.NewBadRequestError("Malformed ticket reference", nil)
	case errors.Is(err, status.ErrSignatureMismatch):
		return apis.NewBadRequestError("Ticket signature does not match", nil)
	case errors.Is(err, status.ErrTicketNotFound):
		return apis.NewNotFoundError("Ticket not found", nil)
	case errors.Is(err, status.ErrTicketUsed):
		return apis.NewApiError(http.StatusConflict, "Ticket has already been used", nil)
	case errors.Is(err, status.ErrTicketExpired):
		return apis.NewApiError(http.StatusGone, "Ticket has expired", nil)
	default:
		slog.Error("ticket lookup failed", "error", err)
		return apis.NewInternalServerError("internal error", err)
	}
}

func checkInOutcome(err error) string {
	switch {
	case errors.Is(err, status.ErrTicketUsed):
		return "already_used"
	case errors.Is(err, status.ErrTicketExpired):
		return "expired"
	case errors.Is(err, status.ErrTicketNotFound), errors.Is(err, status.ErrMalformedTicket), errors.Is(err, status.ErrSignatureMismatch):
		return "rejected"
	default:
		return "error"
	}
}
