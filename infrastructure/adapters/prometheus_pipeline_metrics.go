package adapters

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/application/ports/outbound"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/domain"
	"time"
)

type prometheusPipelineMetrics struct {
	submissionsTotal *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
}

func NewPrometheusPipelineMetrics(reg prometheus.Registerer) outbound.PipelineMetricsPort {
	factory := promauto.With(reg)
	return &prometheusPipelineMetrics{
		submissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voicemail_submissions_total",
				Help: "Submissions handled, by outcome",
			},
			[]string{"outcome"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "voicemail_stage_duration_seconds",
				Help:    "Duration of each pipeline stage in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
			},
			[]string{"stage", "result"},
		),
	}
}

func (m *prometheusPipelineMetrics) ObserveStage(stage domain.Stage, duration time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.stageDuration.WithLabelValues(string(stage), result).Observe(duration.Seconds())
}

func (m *prometheusPipelineMetrics) IncSubmission(outcome string) {
	m.submissionsTotal.WithLabelValues(outcome).Inc()
}
