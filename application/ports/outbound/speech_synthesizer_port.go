package outbound

import (
	"context"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/domain"
)

type SynthesizeSpeechRequest struct {
	Text    string
	VoiceID string
}

type SpeechSynthesizerPort interface {
	Synthesize(ctx context.Context, req SynthesizeSpeechRequest) (domain.AudioAsset, error)
}
