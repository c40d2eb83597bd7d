package dto

// SubmissionRequest is the lead form. Required fields are checked by the
// pipeline so that every entry point reports them the same way.
type SubmissionRequest struct {
	PhoneNumber    string `form:"phone_number"`
	AuthorName     string `form:"author_name"`
	SubmissionText string `form:"submission_text"`
	AuthorEmail    string `form:"author_email"`
	SalesScript    string `form:"sales_script"`
	GptSetting     string `form:"gpt_setting"`
	SpeakerVoice   string `form:"speaker_voice"`
}

type SubmissionResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
