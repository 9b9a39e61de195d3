package ollama

import "time"

// Options are model parameters sent with a generate request.
type Options struct {
	Temperature *float64 `json:"temperature,omitempty"`
	Seed        *int     `json:"seed,omitempty"`
	NumCtx      int      `json:"num_ctx,omitempty"`
}

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	System  string   `json:"system,omitempty"`
	Format  string   `json:"format,omitempty"`
	Stream  bool     `json:"stream"`
	Options *Options `json:"options,omitempty"`
}

// GenerateResponse is a non-streamed /api/generate response.
type GenerateResponse struct {
	Model              string    `json:"model"`
	CreatedAt          time.Time `json:"created_at"`
	Response           string    `json:"response"`
	Done               bool      `json:"done"`
	DoneReason         string    `json:"done_reason"`
	TotalDuration      int64     `json:"total_duration"`
	PromptEvalCount    int       `json:"prompt_eval_count"`
	EvalCount          int       `json:"eval_count"`
	EvalDurationNanos  int64     `json:"eval_duration"`
	LoadDurationNanos  int64     `json:"load_duration"`
	PromptEvalDuration int64     `json:"prompt_eval_duration"`
}

// Model describes a locally available model.
type Model struct {
	Name       string    `json:"name"`
	Model      string    `json:"model"`
	ModifiedAt time.Time `json:"modified_at"`
	Size       int64     `json:"size"`
	Digest     string    `json:"digest"`
}

// ModelList is the response of GET /api/tags.
type ModelList struct {
	Models []Model `json:"models"`
}

// Float64 returns a pointer to v, for Options fields.
func Float64(v float64) *float64 {
	return &v
}
