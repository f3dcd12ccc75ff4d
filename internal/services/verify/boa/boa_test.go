package boa

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-engine/internal/status"
	"ticket-engine/models"
)

var padding = strings.Repeat("<!-- transfer slip -->", 20)

const slipPage = `<html><body>
	<table>
		<tr><td>Source Account Name</td><td>Tigist Alemu</td></tr>
		<tr><td>Receiver Account Name</td><td>Addis Events PLC</td></tr>
		<tr><td>Transferred Amount</td><td>1,200.00 Birr</td></tr>
		<tr><td>Transaction Date</td><td>01-Mar-2025 09:15:00</td></tr>
	</table>
</body></html>`

func TestVerifyParsesSlip(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/slip/", r.URL.Path)
		assert.Equal(t, "BOA551208", r.URL.Query().Get("trx"))
		w.Write([]byte(slipPage + padding))
	}))
	defer ts.Close()

	v := New(&Config{BaseURL: ts.URL, Timeout: 5 * time.Second})

	receipt, err := v.Verify(context.Background(), "BOA551208")
	require.NoError(t, err)

	assert.Equal(t, "Tigist Alemu", receipt.SenderName)
	assert.Equal(t, "Addis Events PLC", receipt.ReceiverName)
	assert.True(t, receipt.Amount.Equal(decimal.RequireFromString("1200.00")))
	assert.Equal(t, models.ReceiptValid, receipt.Status)
}

func TestVerifyNoTransactionPage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>No transaction matches this reference</body></html>" + padding))
	}))
	defer ts.Close()

	v := New(&Config{BaseURL: ts.URL, Timeout: 5 * time.Second})

	_, err := v.Verify(context.Background(), "BOA000000")
	assert.ErrorIs(t, err, status.ErrReceiptNotFound)
}

func TestVerifySlipMissingSenderIsInvalid(t *testing.T) {
	page := `<html><body><table>
		<tr><td>Transferred Amount</td><td>1,200.00</td></tr>
	</table></body></html>`

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page + padding))
	}))
	defer ts.Close()

	v := New(&Config{BaseURL: ts.URL, Timeout: 5 * time.Second})

	_, err := v.Verify(context.Background(), "BOA551208")
	assert.ErrorIs(t, err, status.ErrInvalidReceipt)
}

func TestVerifyMalformedBaseURL(t *testing.T) {
	v := New(&Config{BaseURL: "http://bad host\x00"})

	assert.NotPanics(t, func() {
		_, err := v.Verify(context.Background(), "BOA7TRX001")
		assert.Error(t, err)
	})
}
