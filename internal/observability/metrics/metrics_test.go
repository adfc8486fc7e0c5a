package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	var metric dto.Metric
	if err := c.WithLabelValues(labels...).Write(&metric); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return metric.GetCounter().GetValue()
}

func TestChatMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewChatMetrics(reg)

	m.ObserveTurn("location", 120*time.Millisecond)
	m.ObserveCompletion("dental")
	m.ObserveCompletion("dental")
	m.ObserveReply("canned", time.Millisecond)
	m.ObserveReply("remote", 900*time.Millisecond)
	m.ObserveRecommendation("fallback", 5*time.Millisecond)

	if got := counterValue(t, m.completionsTotal, "dental"); got != 2 {
		t.Errorf("completions = %v, want 2", got)
	}
	if got := counterValue(t, m.repliesTotal, "canned"); got != 1 {
		t.Errorf("canned replies = %v, want 1", got)
	}
	if got := counterValue(t, m.recommendationsTotal, "fallback"); got != 1 {
		t.Errorf("fallback recommendations = %v, want 1", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var turnSamples uint64
	for _, f := range families {
		if f.GetName() == "careconnect_chat_turn_duration_seconds" {
			turnSamples = f.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	if turnSamples != 1 {
		t.Errorf("turn samples = %d, want 1", turnSamples)
	}
}

func TestChatMetricsDefaultRegistry(t *testing.T) {
	m := NewChatMetrics(nil)
	m.ObserveTurn("symptoms", time.Millisecond)
}

func TestChatMetricsNilSafe(t *testing.T) {
	var m *ChatMetrics
	m.ObserveTurn("symptoms", time.Second)
	m.ObserveCompletion("hair")
	m.ObserveReply("remote", time.Second)
	m.ObserveRecommendation("primary", time.Second)
}
