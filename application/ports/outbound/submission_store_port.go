package outbound

import (
	"context"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/domain"
)

type SubmissionStorePort interface {
	Append(ctx context.Context, record domain.SubmissionRecord) error
	HasPhoneNumber(ctx context.Context, phoneNumber string) (bool, error)
}
