// Package metrics tracks materializer operation counts and latencies so
// "gitws info metrics" can dump a Prometheus text snapshot (SPEC_FULL.md §3
// "Operation metrics"). Nothing in this package ever serves HTTP — spec.md's
// Non-goals forbid a server.
package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Registry bundles the counters and histograms the materializer updates.
type Registry struct {
	reg *prometheus.Registry

	GitOps      *prometheus.CounterVec
	GitDuration *prometheus.HistogramVec
	PruneOps    *prometheus.CounterVec
}

// New returns a Registry with every metric registered.
func New() *Registry {
	reg := prometheus.NewRegistry()

	gitOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gitws_git_operations_total",
		Help: "Git operations performed by the materializer, by kind and result.",
	}, []string{"op", "result"})

	gitDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gitws_git_operation_duration_seconds",
		Help:    "Duration of Git operations performed by the materializer.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	pruneOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gitws_prune_decisions_total",
		Help: "Prune decisions made during workspace reconciliation, by reason.",
	}, []string{"reason"})

	reg.MustRegister(gitOps, gitDuration, pruneOps)

	return &Registry{reg: reg, GitOps: gitOps, GitDuration: gitDuration, PruneOps: pruneOps}
}

// ObserveGitOp records the outcome and duration of one Git operation.
func (r *Registry) ObserveGitOp(op string, err error, seconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.GitOps.WithLabelValues(op, result).Inc()
	r.GitDuration.WithLabelValues(op).Observe(seconds)
}

// ObservePruneDecision records why a candidate directory was, or was not, pruned.
func (r *Registry) ObservePruneDecision(reason string) {
	r.PruneOps.WithLabelValues(reason).Inc()
}

// WriteText dumps every metric in Prometheus text exposition format, for
// "gitws info metrics" to print to stdout or a --metrics-file.
func (r *Registry) WriteText(w io.Writer) error {
	families, err := r.reg.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
