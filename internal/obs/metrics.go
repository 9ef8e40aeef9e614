package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outgoing request metrics for the REST client.
var (
	clientInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "panel_client_in_flight_requests",
		Help: "In-flight requests to the panel backend.",
	})

	clientRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "panel_client_requests_total",
			Help: "Total number of requests sent to the panel backend.",
		},
		[]string{"method", "route", "status"},
	)

	clientRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "panel_client_request_duration_seconds",
			Help:    "Panel backend request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	registerOnce sync.Once
)

// Init registers the client metrics in the default registry. Safe to call more
// than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(clientInFlight, clientRequestsTotal, clientRequestDuration)
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// InstrumentTransport wraps next with request count, latency and in-flight
// metrics. A nil next means http.DefaultTransport.
func InstrumentTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		route := CanonicalRoute(r.URL.Path)

		clientInFlight.Inc()
		defer clientInFlight.Dec()
		start := time.Now()

		resp, err := next.RoundTrip(r)

		status := "error"
		if err == nil {
			status = strconv.Itoa(resp.StatusCode)
		}
		clientRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		clientRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
		return resp, err
	})
}

// identifier placeholder per collection under /api/user/
var collectionParams = map[string]string{
	"materials":     ":name",
	"panels":        ":name",
	"daily-reports": ":id",
	"received":      ":id",
	"total-prices":  ":id",
}

// CanonicalRoute collapses concrete resource paths into route templates so
// metric label cardinality stays bounded.
func CanonicalRoute(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 4 || parts[0] != "api" || parts[1] != "user" {
		return path
	}
	param, ok := collectionParams[parts[2]]
	if !ok {
		return path
	}
	switch {
	case len(parts) == 4 && parts[3] == "range":
		return path
	case len(parts) == 4:
		parts[3] = param
	case len(parts) == 5 && parts[3] == "date":
		parts[4] = ":date"
	default:
		return path
	}
	return "/" + strings.Join(parts, "/")
}
