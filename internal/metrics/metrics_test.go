package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, m *Metrics, name, label, value string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, l := range metric.GetLabel() {
				if l.GetName() == label && l.GetValue() == value {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestCacheWrite(t *testing.T) {
	m := New()
	m.CacheWrite(CacheInserted)
	m.CacheWrite(CacheInserted)
	m.CacheWrite(CacheDuplicate)

	assert.Equal(t, 2.0, counterValue(t, m, "vodnik_cache_writes_total", "result", CacheInserted))
	assert.Equal(t, 1.0, counterValue(t, m, "vodnik_cache_writes_total", "result", CacheDuplicate))
}

func TestProviderRequest(t *testing.T) {
	m := New()
	m.ProviderRequest(nil)
	m.ProviderRequest(errors.New("boom"))

	assert.Equal(t, 1.0, counterValue(t, m, "vodnik_provider_requests_total", "result", "ok"))
	assert.Equal(t, 1.0, counterValue(t, m, "vodnik_provider_requests_total", "result", "error"))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.CacheWrite(CacheFailed)
	m.ProviderRequest(nil)
}

func TestHandler(t *testing.T) {
	m := New()
	m.CacheWrite(CacheFailed)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `vodnik_cache_writes_total{result="failed"} 1`)
}
