package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline holds the receipt pipeline collectors. A nil *Pipeline records nothing.
type Pipeline struct {
	receipts      *prometheus.CounterVec
	items         *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	defaulted     *prometheus.CounterVec
}

// NewPipeline creates the collectors and registers them on reg.
func NewPipeline(reg prometheus.Registerer) (*Pipeline, error) {
	m := &Pipeline{
		receipts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relief_receipts_processed_total",
			Help: "Receipts handled by the pipeline, by outcome.",
		}, []string{"outcome"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relief_items_matched_total",
			Help: "Expense items matched against relief rules, by result.",
		}, []string{"result"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relief_stage_duration_seconds",
			Help:    "Time spent per pipeline stage.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
		}, []string{"stage"}),
		defaulted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relief_parse_defaulted_total",
			Help: "Receipt fields that could not be parsed and fell back to a default.",
		}, []string{"field"}),
	}
	for _, c := range []prometheus.Collector{m.receipts, m.items, m.stageDuration, m.defaulted} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Pipeline) Receipt(outcome string) {
	if m == nil {
		return
	}
	m.receipts.WithLabelValues(outcome).Inc()
}

func (m *Pipeline) Item(result string) {
	if m == nil {
		return
	}
	m.items.WithLabelValues(result).Inc()
}

func (m *Pipeline) Defaulted(field string) {
	if m == nil {
		return
	}
	m.defaulted.WithLabelValues(field).Inc()
}

// ObserveStage records how long stage took since start.
func (m *Pipeline) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
