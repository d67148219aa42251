// Package metrics provides a Prometheus-backed driven.EngineMetrics.
package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driven"
)

// Ensure Engine implements the interface.
var _ driven.EngineMetrics = (*Engine)(nil)

const (
	namespace = "annotate"
	subsystem = "engine"
)

// Engine counts field engine activity on its own registry.
type Engine struct {
	registry *prometheus.Registry

	// writes counts committed writes.
	// Labels: provenance (manual, autofilled, ai-suggested)
	writes *prometheus.CounterVec

	retractions prometheus.Counter
	aborts      prometheus.Counter
	suggestions prometheus.Counter
}

// NewEngine creates engine metrics registered on a fresh registry.
func NewEngine() *Engine {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Engine{
		registry: reg,
		writes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "writes_total",
			Help:      "Committed field writes by provenance",
		}, []string{"provenance"}),
		retractions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "retractions_total",
			Help:      "Autofilled values reset when their trigger stopped holding",
		}),
		aborts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cascade_aborts_total",
			Help:      "Propagations stopped by the cycle or depth bound",
		}),
		suggestions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "suggestions_applied_total",
			Help:      "AI suggestions written to fields",
		}),
	}
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (e *Engine) Registry() *prometheus.Registry {
	return e.registry
}

// ValueWritten counts a committed write by provenance kind.
func (e *Engine) ValueWritten(kind domain.ProvenanceKind) {
	e.writes.WithLabelValues(string(kind)).Inc()
}

// ValueRetracted counts an autofilled value reset by propagation.
func (e *Engine) ValueRetracted() {
	e.retractions.Inc()
}

// CascadeAborted counts a propagation stopped by the cascade bound.
func (e *Engine) CascadeAborted() {
	e.aborts.Inc()
}

// SuggestionsApplied counts AI suggestions written to fields.
func (e *Engine) SuggestionsApplied(n int) {
	if n > 0 {
		e.suggestions.Add(float64(n))
	}
}

// WriteSummary prints every non-zero counter as "name{labels} value", sorted.
func (e *Engine) WriteSummary(w io.Writer) error {
	families, err := e.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}

	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			v := m.GetCounter().GetValue()
			if v == 0 {
				continue
			}
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			lines = append(lines, fmt.Sprintf("%s %g", name, v))
		}
	}
	sort.Strings(lines)

	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
