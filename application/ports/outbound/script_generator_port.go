package outbound

import (
	"context"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/domain"
)

type GenerateScriptRequest struct {
	SystemPrompt   string
	AuthorName     string
	SubmissionText string
	ModelID        string
}

type ScriptGeneratorPort interface {
	Generate(ctx context.Context, req GenerateScriptRequest) (domain.GeneratedScript, error)
}
