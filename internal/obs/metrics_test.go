package obs

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInstrument_LabelsByRoutePattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /orders/{id}/state", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := Instrument(mux)

	for _, id := range []string{"o-1", "o-2"} {
		req := httptest.NewRequest(http.MethodPut, "/orders/"+id+"/state", nil)
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	pattern := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPut, "PUT /orders/{id}/state", "200"))
	if pattern != 2 {
		t.Errorf("requests under the route pattern label = %v, want 2", pattern)
	}
	for _, raw := range []string{"/orders/o-1/state", "/orders/o-2/state"} {
		if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPut, raw, "200")); got != 0 {
			t.Errorf("raw path %q minted its own series (count %v)", raw, got)
		}
	}
}

func TestInstrument_UnmatchedRoute(t *testing.T) {
	h := Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "unmatched", "404")); got != 1 {
		t.Errorf("unmatched request count = %v, want 1", got)
	}
}
