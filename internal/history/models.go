package history

import "time"

// Status is the lifecycle state of a run row.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Command names the CLI operation a run performed.
type Command string

const (
	CommandBreakdown Command = "breakdown"
	CommandRewrite   Command = "rewrite"
)

// Run is one recorded invocation.
type Run struct {
	ID           string    `json:"id"`
	Command      Command   `json:"command"`
	URL          string    `json:"url,omitempty"`
	CacheKey     string    `json:"cache_key,omitempty"`
	Template     string    `json:"template,omitempty"`
	Status       Status    `json:"status"`
	FailureKind  string    `json:"failure_kind,omitempty"`
	ErrorMessage string    `json:"error,omitempty"`
	Warnings     int       `json:"warnings"`
	MarkdownPath string    `json:"markdown_path,omitempty"`
	HTMLPath     string    `json:"html_path,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at,omitzero"`
}

// Duration is the wall time of a finished run, or zero while running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Outcome is how a run ended.
type Outcome struct {
	Err          error
	Warnings     int
	MarkdownPath string
	HTMLPath     string
}
