// Package metrics exposes a Prometheus /metrics endpoint reporting rule
// and scale fire counts and the current store size, per SPEC_FULL's
// domain-stack wiring for observability beyond the JSONL/OTel tracers.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the counters and gauges the CLI sets once, after the
// run finishes; they are not updated while steps are running.
type Registry struct {
	reg *prometheus.Registry

	RuleFires         *prometheus.CounterVec
	ScaleFires        *prometheus.CounterVec
	StoreSize         prometheus.Gauge
	Frontier          prometheus.Gauge
	TermLimitExhausted prometheus.Gauge
}

// New constructs a fresh Registry with its own prometheus.Registry, so
// multiple runs in the same process (e.g. tests) never collide on metric
// names.
func New() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{
		reg: reg,
		RuleFires: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "termweave_rule_fired_total",
			Help: "Number of times each rule has fired.",
		}, []string{"rule"}),
		ScaleFires: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "termweave_scale_events_total",
			Help: "Number of rewrites applied at each scale.",
		}, []string{"scale"}),
		StoreSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "termweave_store_size",
			Help: "Current number of unique interned terms.",
		}),
		Frontier: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "termweave_frontier_size",
			Help: "Current number of pending TermIDs in the scheduler frontier.",
		}),
		TermLimitExhausted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "termweave_term_limit_exhausted",
			Help: "1 if the run has hit its configured term limit, else 0.",
		}),
	}
	reg.MustRegister(r.RuleFires, r.ScaleFires, r.StoreSize, r.Frontier, r.TermLimitExhausted)
	return r
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Serve starts an HTTP server exposing /metrics on addr until ctx is
// canceled.
func (r *Registry) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		return err
	}
}
