package controllers

import (
	"context"
	"errors"
	"github.com/gin-gonic/gin"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/application/ports/inbound"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/application/ports/outbound"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/domain"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/infrastructure/gin_interface/dto"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/infrastructure/gin_interface/templates"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/middleware"
	"net/http"
	"time"
)

const (
	submittedCookie         = "submitted"
	textTooLongMessage      = "Submission text is too long"
	processingFailedMessage = "Failed to process submission"
	busyMessage             = "Server is busy, please try again later"
)

type SubmissionController interface {
	Index(c *gin.Context)
	ProcessSubmission(c *gin.Context)
	RegisterRoutes(g *gin.Engine)
}

type submissionController struct {
	logger       outbound.LoggerPort
	workerPool   outbound.TaskDispatcher
	pipeline     inbound.SubmissionPipelinePort
	cookieMaxAge time.Duration
}

func NewSubmissionController(
	logger outbound.LoggerPort,
	workerPool outbound.TaskDispatcher,
	pipeline inbound.SubmissionPipelinePort,
	cookieMaxAge time.Duration,
) SubmissionController {
	return &submissionController{
		logger:       logger,
		workerPool:   workerPool,
		pipeline:     pipeline,
		cookieMaxAge: cookieMaxAge,
	}
}

func (s *submissionController) Index(c *gin.Context) {
	submitted, _ := c.Cookie(submittedCookie)
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Submitted":     submitted == "true",
		"MaxTextLength": domain.MaxSubmissionTextLength,
	})
}

var errPipelineAborted = errors.New("pipeline run aborted")

type submitOutcome struct {
	result *domain.SubmissionResult
	err    error
}

func (s *submissionController) ProcessSubmission(c *gin.Context) {
	var req dto.SubmissionRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Malformed form submission"})
		return
	}

	// A client that hangs up must not abort a run that may already have
	// uploaded audio or reached the gateway.
	runCtx := context.WithoutCancel(c.Request.Context())
	params := inbound.SubmitParams{
		RequestID: middleware.RequestID(c),
		Input: domain.SubmissionInput{
			PhoneNumber:    req.PhoneNumber,
			AuthorName:     req.AuthorName,
			SubmissionText: req.SubmissionText,
			AuthorEmail:    req.AuthorEmail,
			SalesScript:    req.SalesScript,
			ModelID:        req.GptSetting,
			VoiceID:        req.SpeakerVoice,
		},
	}

	done := make(chan submitOutcome, 1)
	err := s.workerPool.Submit(func() {
		outcome := submitOutcome{err: errPipelineAborted}
		// still answers the request if Submit panics
		defer func() { done <- outcome }()
		outcome.result, outcome.err = s.pipeline.Submit(runCtx, params)
	})
	if err != nil {
		s.logger.Error(err, "Failed to submit task to worker pool")
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: busyMessage})
		return
	}

	outcome := <-done
	if outcome.err != nil {
		status, message := s.errorResponse(outcome.err)
		c.JSON(status, dto.ErrorResponse{Error: message})
		return
	}

	c.SetCookie(submittedCookie, "true", int(s.cookieMaxAge.Seconds()), "/", "", false, false)
	c.JSON(http.StatusOK, dto.SubmissionResponse{Status: outcome.result.Status})
}

// errorResponse maps pipeline errors to a status code and a caller-safe
// message. Provider detail stays in the logs.
func (s *submissionController) errorResponse(err error) (int, string) {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		if validationErr.Reason == domain.ReasonTextTooLong {
			return http.StatusBadRequest, textTooLongMessage
		}
		return http.StatusBadRequest, "Missing required field: " + validationErr.Field
	case errors.Is(err, domain.ErrDuplicateSubmission):
		return http.StatusBadRequest, err.Error()
	default:
		if stage, ok := domain.StageOf(err); ok {
			s.logger.WarnWithFields("Submission failed", map[string]interface{}{"stage": stage})
		} else {
			s.logger.Error(err, "Submission failed with an unclassified error")
		}
		return http.StatusInternalServerError, processingFailedMessage
	}
}

func (s *submissionController) RegisterRoutes(g *gin.Engine) {
	g.SetHTMLTemplate(templates.Load())
	g.GET("/", s.Index)
	g.POST("/process", s.ProcessSubmission)
}
