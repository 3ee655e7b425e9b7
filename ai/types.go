package ai

import "fmt"

// Part is one piece of content; only text parts are produced or read
type Part struct {
	Text string `json:"text"`
}

// Content is a list of parts, optionally attributed to a role
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// GenerationConfig carries the optional sampling parameters.
// Nil fields are omitted so the model defaults apply.
type GenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

// GenerateContentRequest is the generateContent request body
type GenerateContentRequest struct {
	Contents         []Content         `json:"contents"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`
}

// Candidate is one generated alternative
type Candidate struct {
	Content      *Content `json:"content"`
	FinishReason string   `json:"finishReason,omitempty"`
}

// GenerateContentResponse is the generateContent response body
type GenerateContentResponse struct {
	Candidates []Candidate `json:"candidates"`
}

// FirstText returns the text of the first part of the first candidate
func (r *GenerateContentResponse) FirstText() (string, bool) {
	if r == nil || len(r.Candidates) == 0 {
		return "", false
	}
	c := r.Candidates[0].Content
	if c == nil || len(c.Parts) == 0 || c.Parts[0].Text == "" {
		return "", false
	}
	return c.Parts[0].Text, true
}

// UpstreamError is returned when the model endpoint answers with a non-2xx status
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("Gemini API error: %d", e.StatusCode)
}
