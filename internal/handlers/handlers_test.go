package handlers

import (
	"net/http"
	"testing"

	"github.com/pocketbase/pocketbase/tools/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-engine/internal/status"
)

func apiStatus(t *testing.T, err error) int {
	t.Helper()
	var apiErr *router.ApiError
	require.ErrorAs(t, err, &apiErr)
	return apiErr.Status
}

func TestVerifyErrorMapping(t *testing.T) {
	h := &PaymentHandler{}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"receipt not found is caller-fixable", status.ErrReceiptNotFound, http.StatusBadRequest},
		{"invalid receipt", status.ErrInvalidReceipt, http.StatusBadRequest},
		{"unknown method", status.ErrUnknownMethod, http.StatusBadRequest},
		{"provider down is retryable", status.ErrProviderUnavailable, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apiStatus(t, h.verifyError("FT2209AB12", tt.err)))
		})
	}
}

func TestReconcileErrorMapping(t *testing.T) {
	h := &PaymentHandler{}

	assert.Equal(t, http.StatusConflict, apiStatus(t, h.reconcileError("FT2209AB12", status.ErrTransactionConsumed)))
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, h.reconcileError("FT2209AB12", status.ErrNoMatchingInvoice)))
}

func TestTicketErrorMapping(t *testing.T) {
	h := &TicketHandler{}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"malformed reference", status.ErrMalformedTicket, http.StatusBadRequest},
		{"tampered reference", status.ErrSignatureMismatch, http.StatusBadRequest},
		{"unknown ticket", status.ErrTicketNotFound, http.StatusNotFound},
		{"already used", status.ErrTicketUsed, http.StatusConflict},
		{"expired", status.ErrTicketExpired, http.StatusGone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apiStatus(t, h.ticketError(tt.err)))
		})
	}
}

func TestCheckInOutcomeLabels(t *testing.T) {
	assert.Equal(t, "already_used", checkInOutcome(status.ErrTicketUsed))
	assert.Equal(t, "expired", checkInOutcome(status.ErrTicketExpired))
	assert.Equal(t, "rejected", checkInOutcome(status.ErrSignatureMismatch))
	assert.Equal(t, "rejected", checkInOutcome(status.ErrTicketNotFound))
	assert.Equal(t, "error", checkInOutcome(assert.AnError))
}
