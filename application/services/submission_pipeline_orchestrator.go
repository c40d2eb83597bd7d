package services

import (
	"context"
	"fmt"
	"github.com/google/uuid"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/application/ports/inbound"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/application/ports/outbound"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/config"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/domain"
	"time"
)

const (
	OutcomeSuccess   = "success"
	OutcomeInvalid   = "invalid"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

type submissionPipelineOrchestrator struct {
	logger             outbound.LoggerPort
	conf               *config.PipelineConfig
	scriptGenerator    outbound.ScriptGeneratorPort
	speechSynthesizer  outbound.SpeechSynthesizerPort
	audioSpool         outbound.AudioSpoolPort
	audioPublisher     outbound.AudioPublisherPort
	deliveryDispatcher outbound.DeliveryDispatcherPort
	submissionStore    outbound.SubmissionStorePort
	dedupRegistry      outbound.DedupRegistryPort
	metrics            outbound.PipelineMetricsPort
	workerPool         outbound.TaskDispatcher
	now                func() time.Time
}

type PipelineDependencies struct {
	ScriptGenerator    outbound.ScriptGeneratorPort
	SpeechSynthesizer  outbound.SpeechSynthesizerPort
	AudioSpool         outbound.AudioSpoolPort
	AudioPublisher     outbound.AudioPublisherPort
	DeliveryDispatcher outbound.DeliveryDispatcherPort
	SubmissionStore    outbound.SubmissionStorePort
	DedupRegistry      outbound.DedupRegistryPort
	Metrics            outbound.PipelineMetricsPort
	WorkerPool         outbound.TaskDispatcher
	Now                func() time.Time
}

func NewSubmissionPipelineOrchestrator(logger outbound.LoggerPort, conf *config.PipelineConfig,
	deps PipelineDependencies) inbound.SubmissionPipelinePort {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &submissionPipelineOrchestrator{
		logger:             logger,
		conf:               conf,
		scriptGenerator:    deps.ScriptGenerator,
		speechSynthesizer:  deps.SpeechSynthesizer,
		audioSpool:         deps.AudioSpool,
		audioPublisher:     deps.AudioPublisher,
		deliveryDispatcher: deps.DeliveryDispatcher,
		submissionStore:    deps.SubmissionStore,
		dedupRegistry:      deps.DedupRegistry,
		metrics:            deps.Metrics,
		workerPool:         deps.WorkerPool,
		now:                now,
	}
}

func (s *submissionPipelineOrchestrator) Submit(ctx context.Context, params inbound.SubmitParams) (*domain.SubmissionResult, error) {
	runID := uuid.NewString()
	input := NormalizeSubmission(params.Input)
	fields := map[string]interface{}{
		"run_id": runID,
		"phone":  input.PhoneNumber,
	}
	if params.RequestID != "" {
		fields["request_id"] = params.RequestID
	}
	logger := s.logger.With(fields)

	if err := ValidateSubmission(input); err != nil {
		logger.WarnWithFields("submission rejected", map[string]interface{}{"reason": err.Error()})
		s.metrics.IncSubmission(OutcomeInvalid)
		return nil, err
	}

	if !s.dedupRegistry.Reserve(input.PhoneNumber) {
		logger.Warn("phone number has already made a submission")
		s.metrics.IncSubmission(OutcomeDuplicate)
		return nil, domain.ErrDuplicateSubmission
	}
	committed := false
	defer func() {
		if !committed {
			s.dedupRegistry.Release(input.PhoneNumber)
		}
	}()

	if s.conf.DedupPersistent {
		seen, err := s.submissionStore.HasPhoneNumber(ctx, input.PhoneNumber)
		if err != nil {
			logger.Error(err, "failed to look up previous submissions")
			s.metrics.IncSubmission(OutcomeFailed)
			return nil, domain.NewPersistenceError("lookup", err)
		}
		if seen {
			s.dedupRegistry.Commit(input.PhoneNumber)
			committed = true
			logger.Warn("phone number found in submission log")
			s.metrics.IncSubmission(OutcomeDuplicate)
			return nil, domain.ErrDuplicateSubmission
		}
	}

	result, err := s.run(ctx, logger, runID, input, &committed)
	if err != nil {
		s.metrics.IncSubmission(OutcomeFailed)
		return nil, err
	}

	s.metrics.IncSubmission(OutcomeSuccess)
	logger.InfoWithFields("submission completed", map[string]interface{}{
		"audio_url":    result.AudioURL,
		"scheduled_at": result.ScheduledAt,
	})
	return result, nil
}

func (s *submissionPipelineOrchestrator) run(ctx context.Context, logger outbound.LoggerPort, runID string,
	input domain.SubmissionInput, committed *bool) (*domain.SubmissionResult, error) {
	var script domain.GeneratedScript
	err := s.runStage(ctx, logger, domain.StageGenerate, func(stageCtx context.Context) error {
		var err error
		script, err = s.scriptGenerator.Generate(stageCtx, outbound.GenerateScriptRequest{
			SystemPrompt:   firstNonEmpty(input.SalesScript, s.conf.SystemPrompt),
			AuthorName:     input.AuthorName,
			SubmissionText: input.SubmissionText,
			ModelID:        input.ModelID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	var audio domain.AudioAsset
	err = s.runStage(ctx, logger, domain.StageSynthesize, func(stageCtx context.Context) error {
		var err error
		audio, err = s.speechSynthesizer.Synthesize(stageCtx, outbound.SynthesizeSpeechRequest{
			Text:    script.Text,
			VoiceID: firstNonEmpty(input.VoiceID, s.conf.VoiceID),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	key := AudioKey(input.PhoneNumber, runID)
	var published domain.PublishedAudio
	err = s.runStage(ctx, logger, domain.StagePublish, func(stageCtx context.Context) error {
		path, err := s.audioSpool.Stage(audio, key)
		if err != nil {
			return domain.NewPublishError("staging", err)
		}
		defer s.discardStaged(logger, path)

		published, err = s.audioPublisher.Publish(stageCtx, outbound.PublishAudioRequest{
			FilePath:    path,
			Key:         key,
			ContentType: audio.ContentType,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	scheduledAt := s.now().Add(s.conf.DeliveryOffset)
	var ack domain.DispatchAck
	err = s.runStage(ctx, logger, domain.StageDispatch, func(stageCtx context.Context) error {
		var err error
		ack, err = s.deliveryDispatcher.Dispatch(stageCtx, outbound.DispatchRequest{
			AudioURL:      published.URL,
			PhoneNumber:   input.PhoneNumber,
			CallerID:      s.conf.CallerID,
			ScheduledAt:   scheduledAt,
			AudioFormat:   s.conf.AudioFormat,
			CampaignTitle: s.conf.CampaignTitle,
		})
		return err
	})
	if err != nil {
		if domain.DispatchOutcomeUnknown(err) {
			// The call may be placed anyway; a retry must not dial again.
			s.dedupRegistry.Commit(input.PhoneNumber)
			*committed = true
			logger.Warn("dispatch outcome unknown, keeping phone number blocked")
		}
		return nil, err
	}

	// The gateway has accepted the call; from here on the number counts as
	// dialed even if the audit row cannot be written.
	s.dedupRegistry.Commit(input.PhoneNumber)
	*committed = true
	logger.InfoWithFields("voicemail dispatched", map[string]interface{}{"session_id": ack.SessionID})

	record := domain.NewSubmissionRecord(input, script, published, runID, s.now())
	err = s.runStage(ctx, logger, domain.StagePersist, func(stageCtx context.Context) error {
		return s.submissionStore.Append(stageCtx, record)
	})
	if err != nil {
		return nil, err
	}

	return &domain.SubmissionResult{
		Status:      domain.SubmissionStatusSuccess,
		RunID:       runID,
		AudioURL:    published.URL,
		ScheduledAt: scheduledAt,
	}, nil
}

// runStage executes one external call under its own timeout. Errors that are
// not already classified are attributed to the stage.
func (s *submissionPipelineOrchestrator) runStage(ctx context.Context, logger outbound.LoggerPort,
	stage domain.Stage, call func(stageCtx context.Context) error) error {
	stageCtx, cancel := context.WithTimeout(ctx, s.conf.StageTimeout)
	defer cancel()

	logger.DebugWithFields("stage started", map[string]interface{}{"stage": stage})
	start := time.Now()
	err := call(stageCtx)
	elapsed := time.Since(start)
	s.metrics.ObserveStage(stage, elapsed, err)

	if err != nil {
		if _, ok := domain.StageOf(err); !ok {
			err = &domain.StageError{Stage: stage, Err: err}
		}
		logger.ErrorWithFields(err, "stage failed", map[string]interface{}{
			"stage":    stage,
			"duration": elapsed.String(),
		})
		return err
	}

	logger.DebugWithFields("stage completed", map[string]interface{}{
		"stage":    stage,
		"duration": elapsed.String(),
	})
	return nil
}

func (s *submissionPipelineOrchestrator) discardStaged(logger outbound.LoggerPort, path string) {
	remove := func() {
		if err := s.audioSpool.Remove(path); err != nil {
			logger.ErrorWithFields(err, "failed to remove staged audio", map[string]interface{}{"path": path})
		}
	}
	if s.workerPool == nil {
		remove()
		return
	}
	if err := s.workerPool.Submit(remove); err != nil {
		logger.WarnWithFields("cleanup pool unavailable, removing staged audio inline", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		remove()
	}
}

// AudioKey names the artifact of one run. Keys never repeat across runs.
func AudioKey(phoneNumber string, runID string) string {
	return fmt.Sprintf("%s-%s.mp3", phoneNumber, runID)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
