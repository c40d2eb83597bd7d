package inbound

import (
	"context"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/domain"
)

type SubmitParams struct {
	// RequestID correlates the run with the HTTP request in logs. It never
	// names stored artifacts.
	RequestID string
	Input domain.SubmissionInput
}

type SubmissionPipelinePort interface {
	Submit(ctx context.Context, params SubmitParams) (*domain.SubmissionResult, error)
}
