package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_ExposesCollectorsOnHandler(t *testing.T) {
	Init()
	Init() // second call must not panic

	RunsTotal.WithLabelValues("success").Inc()
	LLMCacheHits.Inc()
	MemoryQueries.WithLabelValues("similar", "ok").Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "nexus_runs_total")
	assert.Contains(t, body, "nexus_llm_cache_hits_total")
	assert.Contains(t, body, "nexus_memory_queries_total")
}
