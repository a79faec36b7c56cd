package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInstrumentRoundTripper_CountsRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	before := testutil.ToFloat64(UpstreamRequestsTotal.WithLabelValues("418", "post"))

	client := &http.Client{Transport: InstrumentRoundTripper(nil)}
	resp, err := client.Post(srv.URL, "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	resp.Body.Close()

	after := testutil.ToFloat64(UpstreamRequestsTotal.WithLabelValues("418", "post"))
	if after-before != 1 {
		t.Errorf("counter delta = %v, want 1", after-before)
	}
}

func TestHandler_ExposesCollectors(t *testing.T) {
	CacheLookupsTotal.WithLabelValues("hit").Add(0)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	if !strings.Contains(string(body), "gqlboot_cache_lookups_total") {
		t.Error("gqlboot_cache_lookups_total missing from /metrics")
	}
}
