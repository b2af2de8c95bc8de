package types

import "time"

// Status lines printed at the end of a run
const (
	SuccessMessage = "Verification script ran successfully."
	FailurePrefix  = "Verification failed: "
)

// Run is the recorded outcome of one verification run
type Run struct {
	ID              int64     `json:"id"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	Succeeded       bool      `json:"succeeded"`
	Message         string    `json:"message"`
	Screenshots     []string  `json:"screenshots"`
	ErrorScreenshot string    `json:"error_screenshot,omitempty"`
}

// Duration reports how long the run took
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
