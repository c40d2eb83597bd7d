package domain

import "time"

const (
	MaxSubmissionTextLength = 6000
	SubmissionStatusSuccess = "success"
)

type SubmissionInput struct {
	PhoneNumber    string
	AuthorName     string
	SubmissionText string
	AuthorEmail    string
	SalesScript    string
	ModelID        string
	VoiceID        string
}

type GeneratedScript struct {
	Text string
}

type AudioAsset struct {
	Content     []byte
	ContentType string
}

type PublishedAudio struct {
	URL string
	Key string
}

type DispatchAck struct {
	SessionID string
	Raw       string
}

type SubmissionRecord struct {
	SubmittedAt     time.Time
	PhoneNumber     string
	AuthorName      string
	SubmissionText  string
	AuthorEmail     string
	GeneratedScript string
	RunID           string
	AudioURL        string
}

func NewSubmissionRecord(input SubmissionInput, script GeneratedScript, audio PublishedAudio, runID string, submittedAt time.Time) SubmissionRecord {
	return SubmissionRecord{
		SubmittedAt:     submittedAt,
		PhoneNumber:     input.PhoneNumber,
		AuthorName:      input.AuthorName,
		SubmissionText:  input.SubmissionText,
		AuthorEmail:     input.AuthorEmail,
		GeneratedScript: script.Text,
		RunID:           runID,
		AudioURL:        audio.URL,
	}
}

type SubmissionResult struct {
	Status      string
	RunID       string
	AudioURL    string
	ScheduledAt time.Time
}
