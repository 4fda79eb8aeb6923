package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsMiddleware_LabelsByRoutePattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{code}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("code") == "missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	h := MetricsMiddleware(mux)

	found := httpRequestsTotal.WithLabelValues(http.MethodGet, "GET /{code}", "200")
	notFound := httpRequestsTotal.WithLabelValues(http.MethodGet, "GET /{code}", "404")
	unmatched := httpRequestsTotal.WithLabelValues(http.MethodGet, unmatchedRoute, "404")
	beforeFound, beforeNotFound, beforeUnmatched := testutil.ToFloat64(found), testutil.ToFloat64(notFound), testutil.ToFloat64(unmatched)

	for _, path := range []string{"/Ab3dE9", "/zz91Kq", "/missing", "/a/b/c"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if d := testutil.ToFloat64(found) - beforeFound; d != 2 {
		t.Errorf("short-code hits counted %v times under the pattern, want 2", d)
	}
	if d := testutil.ToFloat64(notFound) - beforeNotFound; d != 1 {
		t.Errorf("handler 404 counted %v times, want 1", d)
	}
	if d := testutil.ToFloat64(unmatched) - beforeUnmatched; d != 1 {
		t.Errorf("unrouted path counted %v times, want 1", d)
	}
	if v := testutil.ToFloat64(httpInFlight); v != 0 {
		t.Errorf("in-flight gauge = %v after requests finished", v)
	}
}
