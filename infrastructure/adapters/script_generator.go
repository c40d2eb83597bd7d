package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/donovanhide/eventsource"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/application/ports/outbound"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/config"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/domain"
	"io"
	"net/http"
	"strings"
)

const DoneSignal = "[DONE]"

type chatGptRequest struct {
	Stream      bool             `json:"stream"`
	Model       string           `json:"model"`
	Temperature float64          `json:"temperature"`
	Messages    []chatGptMessage `json:"messages"`
}

type chatGptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatGptChunkBody struct {
	Choices []chatGptResponseChoice `json:"choices"`
}

type chatGptResponseChoice struct {
	Index int `json:"index"`
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

type scriptGenerator struct {
	logger     outbound.LoggerPort
	gptConfig  *config.GptConfig
	workerPool outbound.TaskDispatcher
}

func NewScriptGenerator(gptConfig *config.GptConfig, workerPool outbound.TaskDispatcher, logger outbound.LoggerPort) outbound.ScriptGeneratorPort {
	return &scriptGenerator{
		logger:     logger,
		gptConfig:  gptConfig,
		workerPool: workerPool,
	}
}

// Generate streams one chat completion and returns the concatenated deltas.
// A failed stream is never retried: a second completion would produce a
// different script for the same lead.
func (s *scriptGenerator) Generate(ctx context.Context, req outbound.GenerateScriptRequest) (domain.GeneratedScript, error) {
	httpReq, err := s.createRequest(ctx, req)
	if err != nil {
		return domain.GeneratedScript{}, domain.NewGenerationError("request", err)
	}

	// eventsource rewrites CheckRedirect on the client it is given, so each
	// stream gets its own.
	stream, err := eventsource.SubscribeWith("", &http.Client{}, httpReq)
	if err != nil {
		var subErr eventsource.SubscriptionError
		if errors.As(err, &subErr) {
			s.logger.ErrorWithFields(err, "Script stream rejected", map[string]interface{}{
				"status": subErr.Code,
			})
			return domain.GeneratedScript{}, domain.NewGenerationError("provider status", err)
		}
		s.logger.Error(err, "Failed to subscribe to script stream")
		return domain.GeneratedScript{}, domain.NewGenerationError("provider", err)
	}

	var builder strings.Builder
	done := false
	for {
		select {
		case <-ctx.Done():
			s.abandon(stream)
			return domain.GeneratedScript{}, domain.NewGenerationError("timeout", ctx.Err())
		case ev, ok := <-stream.Events:
			if !ok {
				return domain.GeneratedScript{}, domain.NewGenerationError("stream closed", nil)
			}
			if ev.Data() == DoneSignal {
				done = true
				continue
			}
			payload, err := s.extractPayload(ev)
			if err != nil {
				s.abandon(stream)
				return domain.GeneratedScript{}, domain.NewGenerationError("malformed chunk", err)
			}
			builder.WriteString(payload)
		case err := <-stream.Errors:
			// The stream goroutine backs off before reconnecting, so closing
			// right after it reported an error never races a pending send.
			stream.Close()
			if err != io.EOF {
				s.logger.Error(err, "Error occurred during script streaming")
				return domain.GeneratedScript{}, domain.NewGenerationError("stream", err)
			}
			if !done {
				return domain.GeneratedScript{}, domain.NewGenerationError("truncated stream", io.ErrUnexpectedEOF)
			}
			text := strings.TrimSpace(builder.String())
			if text == "" {
				return domain.GeneratedScript{}, domain.NewGenerationError("empty completion", nil)
			}
			s.logger.DebugWithFields("Script generated", map[string]interface{}{
				"length": len(text),
			})
			return domain.GeneratedScript{Text: text}, nil
		}
	}
}

// abandon drains the stream in the background until it reports an error,
// then closes it.
func (s *scriptGenerator) abandon(stream *eventsource.Stream) {
	drain := func() {
		for {
			select {
			case _, ok := <-stream.Events:
				if !ok {
					return
				}
			case <-stream.Errors:
				stream.Close()
				return
			}
		}
	}
	if s.workerPool == nil {
		go drain()
		return
	}
	if err := s.workerPool.Submit(drain); err != nil {
		s.logger.Error(err, "Failed to submit stream drain to worker pool")
		go drain()
	}
}

func (s *scriptGenerator) extractPayload(event eventsource.Event) (string, error) {
	var chunkBody chatGptChunkBody
	err := json.Unmarshal([]byte(event.Data()), &chunkBody)
	if err != nil {
		s.logger.Error(err, "Failed to unmarshal event data")
		return "", err
	}
	if len(chunkBody.Choices) == 0 {
		return "", nil
	}

	return chunkBody.Choices[0].Delta.Content, nil
}

func (s *scriptGenerator) createRequest(ctx context.Context, req outbound.GenerateScriptRequest) (*http.Request, error) {
	model := req.ModelID
	if model == "" {
		model = s.gptConfig.Model
	}

	promptReq := chatGptRequest{
		Stream:      true,
		Model:       model,
		Temperature: s.gptConfig.Temperature,
		Messages: []chatGptMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: UserPrompt(req.AuthorName, req.SubmissionText)},
		},
	}

	payloadBytes, err := json.Marshal(promptReq)
	if err != nil {
		s.logger.Error(err, "Failed to marshal the request body")
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gptConfig.ApiUrl, bytes.NewBuffer(payloadBytes))
	if err != nil {
		s.logger.Error(err, "Failed to create the HTTP request")
		return nil, err
	}

	httpReq.Header.Set("Authorization", "Bearer "+s.gptConfig.ApiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	return httpReq, nil
}

func UserPrompt(authorName string, submissionText string) string {
	return fmt.Sprintf("name: %s reason for interest: %s", authorName, submissionText)
}
