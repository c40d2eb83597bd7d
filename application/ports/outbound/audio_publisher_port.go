package outbound

import (
	"context"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/domain"
)

type PublishAudioRequest struct {
	FilePath    string
	Key         string
	ContentType string
}

type AudioPublisherPort interface {
	Publish(ctx context.Context, req PublishAudioRequest) (domain.PublishedAudio, error)
}
