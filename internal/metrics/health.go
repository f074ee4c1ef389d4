package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// dependencyUp is 1 when the last ping to a backing dependency succeeded, else 0.
	// Labels:
	// - dependency: postgres | redis
	dependencyUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "certmail",
		Subsystem: "health",
		Name:      "dependency_up",
		Help:      "Backing dependency availability (1=up, 0=down).",
	}, []string{"dependency"})

	dependencyPingSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "certmail",
		Subsystem: "health",
		Name:      "dependency_ping_seconds",
		Help:      "Backing dependency ping latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"dependency"})
)

// Probe pings a dependency, records its availability and latency, and reports
// "ok" or "down" for the health payload.
func Probe(ctx context.Context, dependency string, ping func(context.Context) error) string {
	start := time.Now()
	err := ping(ctx)
	dependencyPingSeconds.WithLabelValues(dependency).Observe(time.Since(start).Seconds())
	if err != nil {
		dependencyUp.WithLabelValues(dependency).Set(0)
		return "down"
	}
	dependencyUp.WithLabelValues(dependency).Set(1)
	return "ok"
}
