package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCounterAndGauge(t *testing.T) {
	r := New()
	c := r.Counter("invex_sync_runs_total", "Completed sync runs.")
	c.Inc()
	c.Add(2)
	if c.Value() != 3 {
		t.Errorf("expected 3, got %d", c.Value())
	}

	g := r.Gauge("invex_catalog_items", "Items in the catalog.")
	g.Set(120)
	g.Dec()
	if g.Value() != 119 {
		t.Errorf("expected 119, got %d", g.Value())
	}

	// Same name returns the same metric.
	if r.Counter("invex_sync_runs_total", "") != c {
		t.Error("counter identity lost across lookups")
	}
}

func TestLabels(t *testing.T) {
	got := Labels("stage", "embed", "ok", "true")
	if got != `{stage="embed",ok="true"}` {
		t.Errorf("unexpected labels %s", got)
	}
	if Labels("odd") != "" {
		t.Error("odd pair count must render nothing")
	}
}

func TestRender(t *testing.T) {
	r := New()
	r.Counter("invex_recommendations_total"+Labels("outcome", "success"), "Recommendation outcomes.").Add(7)
	r.Counter("invex_recommendations_total"+Labels("outcome", "parse_error"), "").Inc()
	r.Gauge("invex_catalog_items", "Items in the catalog.").Set(42)

	out := r.Render()
	for _, want := range []string{
		"# HELP invex_recommendations_total Recommendation outcomes.",
		"# TYPE invex_recommendations_total counter",
		`invex_recommendations_total{outcome="parse_error"} 1`,
		`invex_recommendations_total{outcome="success"} 7`,
		"# TYPE invex_catalog_items gauge",
		"invex_catalog_items 42",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q in:\n%s", want, out)
		}
	}
	if strings.Count(out, "# TYPE invex_recommendations_total") != 1 {
		t.Error("family header must render once per base name")
	}
}

func TestHistogramRender(t *testing.T) {
	r := New()
	h := r.Histogram("invex_embed_seconds", "Embedding latency.", []float64{0.1, 1})
	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(30)

	out := r.Render()
	for _, want := range []string{
		`invex_embed_seconds_bucket{le="0.1"} 1`,
		`invex_embed_seconds_bucket{le="1"} 2`,
		`invex_embed_seconds_bucket{le="+Inf"} 3`,
		"invex_embed_seconds_sum 30.55",
		"invex_embed_seconds_count 3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q in:\n%s", want, out)
		}
	}
}

func TestHandler(t *testing.T) {
	r := New()
	r.Counter("invex_up", "").Inc()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("unexpected content type %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "invex_up 1") {
		t.Errorf("body missing metric:\n%s", rec.Body.String())
	}
}
