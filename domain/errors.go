package domain

import (
	"context"
	"errors"
	"fmt"
)

const (
	ReasonTextTooLong  = "text too long"
	ReasonMissingField = "missing field"

	ReasonCredentials = "credentials"
	ReasonNotFound    = "not_found"

	// ReasonOutcomeUnknown marks a dispatch whose request may have reached
	// the gateway without an acknowledgement coming back.
	ReasonOutcomeUnknown = "outcome unknown"
)

var ErrDuplicateSubmission = errors.New("this phone number has already made a submission")

type ValidationError struct {
	Reason string
	Field  string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Reason, e.Field)
	}
	return e.Reason
}

type Stage string

const (
	StageGenerate   Stage = "generate"
	StageSynthesize Stage = "synthesize"
	StagePublish    Stage = "publish"
	StageDispatch   Stage = "dispatch"
	StagePersist    Stage = "persist"
)

// StageError reports a fault of one external dependency. Reason is a short
// machine-readable tag; Err carries the provider detail and must not be shown
// to callers.
type StageError struct {
	Stage  Stage
	Reason string
	Err    error
}

func (e *StageError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Stage)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func NewGenerationError(reason string, err error) error {
	return &StageError{Stage: StageGenerate, Reason: reason, Err: err}
}

func NewSynthesisError(reason string, err error) error {
	return &StageError{Stage: StageSynthesize, Reason: reason, Err: err}
}

func NewPublishError(reason string, err error) error {
	return &StageError{Stage: StagePublish, Reason: reason, Err: err}
}

func NewDispatchError(reason string, err error) error {
	return &StageError{Stage: StageDispatch, Reason: reason, Err: err}
}

func NewPersistenceError(reason string, err error) error {
	return &StageError{Stage: StagePersist, Reason: reason, Err: err}
}

// StageOf returns the failing stage of err, if err carries one.
func StageOf(err error) (Stage, bool) {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage, true
	}
	return "", false
}

func IsStageError(err error, stage Stage) bool {
	s, ok := StageOf(err)
	return ok && s == stage
}

// DispatchOutcomeUnknown reports whether a failed dispatch may still have
// been accepted by the gateway.
func DispatchOutcomeUnknown(err error) bool {
	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageDispatch {
		return false
	}
	return stageErr.Reason == ReasonOutcomeUnknown || errors.Is(err, context.DeadlineExceeded)
}

func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}
