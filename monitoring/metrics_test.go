package monitoring

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServerServesAndShutsDown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ObserveReconciliation("paid")

	ctx, cancel := context.WithCancel(context.Background())
	StartMetricsServer(ctx, addr)

	endpoint := "http://" + addr + "/metrics"
	var resp *http.Response
	require.Eventually(t, func() bool {
		r, err := http.Get(endpoint)
		if err != nil {
			return false
		}
		resp = r
		return true
	}, 3*time.Second, 20*time.Millisecond, "metrics listener never came up")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "reconciliations_total")

	cancel()

	assert.Eventually(t, func() bool {
		r, err := http.Get(endpoint)
		if err != nil {
			return true
		}
		r.Body.Close()
		return false
	}, 3*time.Second, 20*time.Millisecond, "metrics listener still accepting after cancel")
}
