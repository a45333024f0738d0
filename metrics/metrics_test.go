package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesOrderMetrics(t *testing.T) {
	before := testutil.ToFloat64(Checkouts.WithLabelValues("conflict"))
	Checkouts.WithLabelValues("conflict").Inc()
	Transitions.WithLabelValues("return", "success").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(Checkouts.WithLabelValues("conflict")))

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `scamazon_orders_checkouts_total{result="conflict"}`)
	assert.Contains(t, string(body), `scamazon_orders_transitions_total{action="return",result="success"}`)
}
