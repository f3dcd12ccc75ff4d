package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"ticket-engine/internal/services/reconcile"
	"ticket-engine/internal/services/verify"
	"ticket-engine/internal/status"
	"ticket-engine/security"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type PaymentHandler struct {
	dispatcher *verify.Dispatcher
	engine     *reconcile.Engine
	limiter    *security.RateLimiter
}

func NewPaymentHandler(dispatcher *verify.Dispatcher, engine *reconcile.Engine, limiter *security.RateLimiter) *PaymentHandler {
	return &PaymentHandler{
		dispatcher: dispatcher,
		engine:     engine,
		limiter:    limiter,
	}
}

type verifyRequest struct {
	TransactionID string `json:"transaction_id"`
	UserID        string `json:"user_id"`
	Method        string `json:"method"`
	EventHint     string `json:"event_hint"`
}

// VerifyPayment fetches the receipt from the issuing institution and settles
// it against the caller's pending invoices.
func (h *PaymentHandler) VerifyPayment(e *core.RequestEvent) error {
	var req verifyRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	req.TransactionID = strings.TrimSpace(req.TransactionID)
	if req.TransactionID == "" {
		return apis.NewBadRequestError("transaction_id is required", nil)
	}

	userID := req.UserID
	if e.Auth != nil {
		userID = e.Auth.Id
	}
	if userID == "" {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	ctx := e.Request.Context()

	won, release := h.limiter.InFlight(ctx, req.TransactionID)
	if !won {
		return apis.NewApiError(http.StatusConflict, "This transaction is already being verified", nil)
	}
	defer release()

	receipt, err := h.dispatcher.Dispatch(ctx, req.TransactionID, verify.Method(req.Method))
	if err != nil {
		return h.verifyError(req.TransactionID, err)
	}

	res, err := h.engine.Reconcile(ctx, receipt, userID, req.EventHint)
	if err != nil {
		return h.reconcileError(req.TransactionID, err)
	}

	message := "Payment verified and invoice settled"
	if res.AlreadyPaid {
		message = "Payment was already verified"
	}

	body := map[string]any{
		"success":      true,
		"message":      message,
		"already_paid": res.AlreadyPaid,
		"invoice":      res.Invoice,
	}
	if res.Ticket != nil {
		body["ticket_url"] = res.Ticket.URL
	}
	if len(res.Warnings) > 0 {
		body["warnings"] = res.Warnings
	}

	return e.JSON(http.StatusOK, body)
}

func (h *PaymentHandler) verifyError(txID string, err error) error {
	switch {
	case errors.Is(err, status.ErrReceiptNotFound):
		return apis.NewBadRequestError("No receipt found for this transaction id. Check the id and try again.", nil)
	case errors.Is(err, status.ErrInvalidReceipt):
		return apis.NewBadRequestError("The receipt could not be read. Contact support if the payment went through.", nil)
	case errors.Is(err, status.ErrUnknownMethod):
		return apis.NewBadRequestError("Unsupported payment method", nil)
	case errors.Is(err, status.ErrProviderUnavailable):
		slog.Error("provider unavailable", "transaction_id", txID, "error", err)
		return apis.NewApiError(http.StatusBadGateway, "The payment provider is not responding. Try again in a few minutes.", nil)
	default:
		slog.Error("verification failed", "transaction_id", txID, "error", err)
		return apis.NewInternalServerError("internal error", err)
	}
}

func (h *PaymentHandler) reconcileError(txID string, err error) error {
	switch {
	case errors.Is(err, status.ErrTransactionConsumed):
		return apis.NewApiError(http.StatusConflict, err.Error(), nil)
	case errors.Is(err, status.ErrNoMatchingInvoice):
		return apis.NewBadRequestError(err.Error(), nil)
	case errors.Is(err, status.ErrInvalidReceipt):
		return apis.NewBadRequestError("The receipt could not be used to settle an invoice", nil)
	default:
		slog.Error("reconciliation failed", "transaction_id", txID, "error", err)
		return apis.NewInternalServerError("internal error", err)
	}
}
