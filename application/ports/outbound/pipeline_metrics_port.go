package outbound

import (
	"github.com/tmansmann0/PhoneLeadResponseAutomator/domain"
	"time"
)

type PipelineMetricsPort interface {
	ObserveStage(stage domain.Stage, duration time.Duration, err error)
	IncSubmission(outcome string)
}
