package obs

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCanonicalRoute(t *testing.T) {
	cases := map[string]string{
		"":                                          "/",
		"/api/auth/login":                           "/api/auth/login",
		"/api/user/materials":                       "/api/user/materials",
		"/api/user/materials/Cable":                 "/api/user/materials/:name",
		"/api/user/panels/DB-1":                     "/api/user/panels/:name",
		"/api/user/daily-reports/abc":               "/api/user/daily-reports/:id",
		"/api/user/daily-reports/date/2024-05-01":   "/api/user/daily-reports/date/:date",
		"/api/user/daily-reports/range":             "/api/user/daily-reports/range",
		"/api/user/total-prices/range?start=a&end=b": "/api/user/total-prices/range",
		"/api/user/received/abc/extra":              "/api/user/received/abc/extra",
		"/api/manager/total-prices":                 "/api/manager/total-prices",
	}
	for input, expected := range cases {
		if got := CanonicalRoute(input); got != expected {
			t.Fatalf("CanonicalRoute(%q)=%q, want %q", input, got, expected)
		}
	}
}

func TestInstrumentTransportCountsRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	client := &http.Client{Transport: InstrumentTransport(nil)}
	counter := clientRequestsTotal.WithLabelValues(http.MethodGet, "/api/user/materials/:name", "418")
	before := testutil.ToFloat64(counter)

	for _, name := range []string{"Cable", "Conduit"} {
		resp, err := client.Get(srv.URL + "/api/user/materials/" + name)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		resp.Body.Close()
	}

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Fatalf("expected 2 counted requests, got %v", got)
	}
	if got := testutil.ToFloat64(clientInFlight); got != 0 {
		t.Fatalf("in-flight gauge should settle at 0, got %v", got)
	}
}
