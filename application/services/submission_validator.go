package services

import (
	"github.com/tmansmann0/PhoneLeadResponseAutomator/domain"
	"strings"
	"unicode/utf8"
)

// NormalizeSubmission reduces the phone number to its digits, so
// "(555) 123-4567" and "5551234567" dedup to the same target, and trims the
// short fields. The submission text is kept exactly as the lead wrote it.
func NormalizeSubmission(input domain.SubmissionInput) domain.SubmissionInput {
	return domain.SubmissionInput{
		PhoneNumber:    normalizePhoneNumber(input.PhoneNumber),
		AuthorName:     strings.TrimSpace(input.AuthorName),
		SubmissionText: input.SubmissionText,
		AuthorEmail:    strings.TrimSpace(input.AuthorEmail),
		SalesScript:    strings.TrimSpace(input.SalesScript),
		ModelID:        strings.TrimSpace(input.ModelID),
		VoiceID:        strings.TrimSpace(input.VoiceID),
	}
}

func ValidateSubmission(input domain.SubmissionInput) error {
	if utf8.RuneCountInString(input.SubmissionText) > domain.MaxSubmissionTextLength {
		return &domain.ValidationError{Reason: domain.ReasonTextTooLong}
	}

	required := []struct {
		field string
		value string
	}{
		{"phone_number", input.PhoneNumber},
		{"author_name", input.AuthorName},
		{"submission_text", input.SubmissionText},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &domain.ValidationError{Reason: domain.ReasonMissingField, Field: r.field}
		}
	}

	return nil
}

func normalizePhoneNumber(phoneNumber string) string {
	var b strings.Builder
	for _, r := range phoneNumber {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
