package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewInstancesAreIndependent(t *testing.T) {
	a := New()
	b := New()
	a.TokensIngestedTotal.Add(3)

	if got := testutil.ToFloat64(a.TokensIngestedTotal); got != 3 {
		t.Errorf("a tokens = %v, want 3", got)
	}
	if got := testutil.ToFloat64(b.TokensIngestedTotal); got != 0 {
		t.Errorf("b tokens = %v, want 0", got)
	}
	n, err := testutil.GatherAndCount(a.Registry(), "timecloud_tokens_ingested_total", "timecloud_window_size")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("registry series = %d, want 2", n)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.TokensFilteredTotal.WithLabelValues("stopword").Inc()
	m.WindowSize.Set(12)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`timecloud_tokens_filtered_total{reason="stopword"} 1`,
		"timecloud_window_size 12",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("scrape output missing %q", want)
		}
	}
}
