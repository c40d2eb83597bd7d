package outbound

import (
	"context"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/domain"
	"time"
)

type DispatchRequest struct {
	AudioURL      string
	PhoneNumber   string
	CallerID      string
	ScheduledAt   time.Time
	AudioFormat   string
	CampaignTitle string
}

type DeliveryDispatcherPort interface {
	Dispatch(ctx context.Context, req DispatchRequest) (domain.DispatchAck, error)
}
