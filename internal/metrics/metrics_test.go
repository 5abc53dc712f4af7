package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Record(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.RecordRequest("message/send", "success", time.Second)
	m.RecordSearchRequest("unauthorized", 100*time.Millisecond)
	m.RecordDescriptionFetch("success", 10*time.Millisecond)
	m.RecordDescriptionFetch("success", 10*time.Millisecond)
	m.RecordEnrichment("error", "timeout")
	m.RecordTokenExchange("success", time.Millisecond)
	m.RecordRateLimitHit("/")
	m.RecordTask("completed")

	checks := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"requests", m.RequestsTotal.WithLabelValues("message/send", "success"), 1},
		{"search", m.SearchRequestsTotal.WithLabelValues("unauthorized"), 1},
		{"fetches", m.DescriptionFetchesTotal.WithLabelValues("success"), 2},
		{"enrichment", m.EnrichmentOutcomesTotal.WithLabelValues("error", "timeout"), 1},
		{"token", m.TokenExchangesTotal.WithLabelValues("success"), 1},
		{"ratelimit", m.RateLimitHitsTotal.WithLabelValues("/"), 1},
		{"tasks", m.TasksTotal.WithLabelValues("completed"), 1},
	}
	for _, c := range checks {
		if got := testutil.ToFloat64(c.c); got != c.want {
			t.Errorf("%s = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestMetrics_InFlight(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.IncRequestsInFlight()
	m.IncRequestsInFlight()
	m.DecRequestsInFlight()

	if got := testutil.ToFloat64(m.RequestsInFlight); got != 1 {
		t.Errorf("in flight = %v, want 1", got)
	}
}

func TestHandlerFor(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)
	m.RecordFanOut(3, time.Second)

	rec := httptest.NewRecorder()
	HandlerFor(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "lexmachina_agent_enrichment_fanout_size") {
		t.Errorf("metrics output missing fan-out histogram:\n%s", body)
	}
}
