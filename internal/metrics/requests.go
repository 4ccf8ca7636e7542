package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OtherPath labels requests to paths that are not in the known set.
const OtherPath = "other"

// Requests counts requests served by the fake directory API per endpoint.
// Paths outside the known set are counted under OtherPath. A nil *Requests
// records nothing.
type Requests struct {
	total *prometheus.CounterVec
	known map[string]bool
}

func NewRequests(reg prometheus.Registerer, paths ...string) *Requests {
	known := make(map[string]bool, len(paths))
	for _, p := range paths {
		known[p] = true
	}
	return &Requests{
		total: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "fakeapi",
				Name:      "requests_total",
				Help:      "Requests served by the fake directory API",
			},
			[]string{"path"},
		),
		known: known,
	}
}

func (r *Requests) Hit(path string) {
	if r == nil {
		return
	}
	if !r.known[path] {
		path = OtherPath
	}
	r.total.WithLabelValues(path).Inc()
}
