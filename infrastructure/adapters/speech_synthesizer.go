package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/application/ports/outbound"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/config"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/domain"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

type ElevenLabsRequest struct {
	Text          string        `json:"text"`
	ModelId       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

type speechSynthesizer struct {
	ContentFetcher
	logger           outbound.LoggerPort
	elevenLabsConfig *config.ElevenLabsConfig
}

func NewSpeechSynthesizer(contentFetcher ContentFetcher, elevenLabsConfig *config.ElevenLabsConfig, logger outbound.LoggerPort) outbound.SpeechSynthesizerPort {
	return &speechSynthesizer{
		ContentFetcher:   contentFetcher,
		logger:           logger,
		elevenLabsConfig: elevenLabsConfig,
	}
}

func (a *speechSynthesizer) Synthesize(ctx context.Context, req outbound.SynthesizeSpeechRequest) (domain.AudioAsset, error) {
	if strings.TrimSpace(req.Text) == "" {
		return domain.AudioAsset{}, domain.NewSynthesisError("empty text", nil)
	}
	if req.VoiceID == "" {
		return domain.AudioAsset{}, domain.NewSynthesisError("missing voice", nil)
	}

	httpReq, err := a.getRequest(ctx, req.Text, req.VoiceID)
	if err != nil {
		a.logger.ErrorWithFields(err, "Failed to construct the HTTP request for speech synthesis", map[string]interface{}{
			"voice_id": req.VoiceID,
		})
		return domain.AudioAsset{}, domain.NewSynthesisError("request", err)
	}

	content, err := a.FetchContent(httpReq)
	if err != nil {
		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) {
			return domain.AudioAsset{}, domain.NewSynthesisError("provider status", err)
		}
		return domain.AudioAsset{}, domain.NewSynthesisError("provider", err)
	}

	if err := checkAudioPayload(content); err != nil {
		a.logger.WarnWithFields("Speech provider returned a non-audio payload", map[string]interface{}{
			"voice_id":     req.VoiceID,
			"content_type": content.ContentType,
			"bytes":        len(content.Payload),
		})
		return domain.AudioAsset{}, err
	}

	a.logger.DebugWithFields("Speech synthesized", map[string]interface{}{
		"voice_id": req.VoiceID,
		"bytes":    len(content.Payload),
		"chunks":   content.Chunks,
	})

	return domain.AudioAsset{
		Content:     content.Payload,
		ContentType: "audio/mpeg",
	}, nil
}

// checkAudioPayload rejects bodies that only claim to be audio. The provider
// has been seen returning JSON error documents under audio/mpeg headers.
func checkAudioPayload(content *FetchedContent) error {
	mediaType, _, err := mime.ParseMediaType(content.ContentType)
	if err != nil || !strings.HasPrefix(mediaType, "audio/") {
		return domain.NewSynthesisError("non-audio response", fmt.Errorf("content type %q", content.ContentType))
	}
	if len(content.Payload) == 0 {
		return domain.NewSynthesisError("empty body", nil)
	}

	trimmed := bytes.TrimSpace(content.Payload)
	// No audio container starts with a JSON delimiter, malformed bodies included.
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return domain.NewSynthesisError("error body under audio content type", errors.New(truncate(string(trimmed), 256)))
	}
	// The asset is published as audio/mpeg and announced to the gateway as Mp3.
	if mediaType != "audio/mpeg" {
		return domain.NewSynthesisError("unsupported audio type", fmt.Errorf("content type %q", mediaType))
	}
	if !isMP3(content.Payload) {
		return domain.NewSynthesisError("unrecognized audio payload", nil)
	}
	return nil
}

func isMP3(payload []byte) bool {
	if bytes.HasPrefix(payload, []byte("ID3")) {
		return true
	}
	// MPEG frame sync: eleven set bits.
	return len(payload) >= 2 && payload[0] == 0xFF && payload[1]&0xE0 == 0xE0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func (a *speechSynthesizer) getRequest(ctx context.Context, text string, voiceID string) (*http.Request, error) {
	reqBody := ElevenLabsRequest{
		Text:    text,
		ModelId: a.elevenLabsConfig.ModelId,
		VoiceSettings: VoiceSettings{
			Stability:       a.elevenLabsConfig.Stability,
			SimilarityBoost: a.elevenLabsConfig.SimilarityBoost,
			Style:           a.elevenLabsConfig.Style,
			UseSpeakerBoost: a.elevenLabsConfig.UseSpeakerBoost,
		},
	}

	jsonPayload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(a.elevenLabsConfig.ApiUrl, "/") + "/" + url.PathEscape(voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return nil, err
	}

	reqHeaders := map[string]string{
		"Accept":       "audio/mpeg",
		"xi-api-key":   a.elevenLabsConfig.ApiKey,
		"Content-Type": "application/json",
	}
	for key, value := range reqHeaders {
		req.Header.Add(key, value)
	}

	return req, nil
}
