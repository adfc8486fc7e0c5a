package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ChatMetrics exposes counters/histograms for the triage chat and the
// clinic recommender.
type ChatMetrics struct {
	turnLatency           *prometheus.HistogramVec
	completionsTotal      *prometheus.CounterVec
	repliesTotal          *prometheus.CounterVec
	replyLatency          *prometheus.HistogramVec
	recommendationsTotal  *prometheus.CounterVec
	recommendationLatency prometheus.Histogram
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "careconnect",
			Subsystem: "chat",
			Name:      "turn_duration_seconds",
			Help:      "Time to process one patient message, by resulting stage",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		completionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "careconnect",
			Subsystem: "chat",
			Name:      "triage_completed_total",
			Help:      "Conversations that collected every slot",
		}, []string{"treatment_type"}),
		repliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "careconnect",
			Subsystem: "chat",
			Name:      "replies_total",
			Help:      "Assistant replies by source (remote or canned)",
		}, []string{"source"}),
		replyLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "careconnect",
			Subsystem: "chat",
			Name:      "reply_duration_seconds",
			Help:      "Latency of reply generation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		recommendationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "careconnect",
			Subsystem: "clinic",
			Name:      "recommendations_total",
			Help:      "Clinic recommendations by result source",
		}, []string{"source"}),
		recommendationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "careconnect",
			Subsystem: "clinic",
			Name:      "recommendation_duration_seconds",
			Help:      "Latency of clinic recommendation lookups",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnLatency, m.completionsTotal, m.repliesTotal, m.replyLatency,
		m.recommendationsTotal, m.recommendationLatency)
	return m
}

func (m *ChatMetrics) ObserveTurn(stage string, duration time.Duration) {
	if m == nil {
		return
	}
	m.turnLatency.WithLabelValues(stage).Observe(duration.Seconds())
}

func (m *ChatMetrics) ObserveCompletion(treatment string) {
	if m == nil {
		return
	}
	m.completionsTotal.WithLabelValues(treatment).Inc()
}

func (m *ChatMetrics) ObserveReply(source string, duration time.Duration) {
	if m == nil {
		return
	}
	m.repliesTotal.WithLabelValues(source).Inc()
	m.replyLatency.WithLabelValues(source).Observe(duration.Seconds())
}

func (m *ChatMetrics) ObserveRecommendation(source string, duration time.Duration) {
	if m == nil {
		return
	}
	m.recommendationsTotal.WithLabelValues(source).Inc()
	m.recommendationLatency.Observe(duration.Seconds())
}
