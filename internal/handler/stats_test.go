package handler

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florianloch/sptfcore/internal/metrics"
)

func TestPrintStatsSkipsEmptySeries(t *testing.T) {
	assert := assert.New(t)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.ObserveRequest(200)
	m.ObserveRequest(200)
	m.ObserveCacheLookup("tracks", true)

	var out bytes.Buffer
	require.NoError(t, PrintStats(&out, reg))

	assert.Contains(out.String(), "sptf_webapi_requests_total")
	assert.Contains(out.String(), "status=200")
	assert.Contains(out.String(), "kind=tracks,result=hit")
	assert.NotContains(out.String(), "sptf_webapi_retries_total")
	assert.NotContains(out.String(), "sptf_ratelimit_wait_seconds")
}
