package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds service collectors registered on an injected registry
type Recorder struct {
	webhooks    *prometheus.CounterVec
	outcomes    *prometheus.CounterVec
	sideEffects *prometheus.CounterVec
	transitions *prometheus.CounterVec
}

// New creates collectors and registers them on reg
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orderflow",
			Name:      "webhooks_total",
			Help:      "Payment provider notifications by handling result.",
		}, []string{"result"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orderflow",
			Name:      "reconcile_outcomes_total",
			Help:      "Reconciliation outcomes.",
		}, []string{"outcome"}),
		sideEffects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orderflow",
			Name:      "side_effect_failures_total",
			Help:      "Failed side effects after a committed transition.",
		}, []string{"kind"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orderflow",
			Name:      "status_transitions_total",
			Help:      "Committed order status transitions.",
		}, []string{"to", "actor"}),
	}

	reg.MustRegister(r.webhooks, r.outcomes, r.sideEffects, r.transitions)

	return r
}

// Webhook counts a handled notification
func (r *Recorder) Webhook(result string) {
	if r == nil {
		return
	}
	r.webhooks.WithLabelValues(result).Inc()
}

// Outcome counts a reconciliation outcome
func (r *Recorder) Outcome(outcome string) {
	if r == nil {
		return
	}
	r.outcomes.WithLabelValues(outcome).Inc()
}

// SideEffectFailure counts a failed side effect
func (r *Recorder) SideEffectFailure(kind string) {
	if r == nil {
		return
	}
	r.sideEffects.WithLabelValues(kind).Inc()
}

// Transition counts a committed status change
func (r *Recorder) Transition(to, actor string) {
	if r == nil {
		return
	}
	r.transitions.WithLabelValues(to, actor).Inc()
}
