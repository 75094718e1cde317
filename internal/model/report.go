package model

import "time"

// Outcome is the answer recorded for one task of a run.
type Outcome string

const (
	OutcomeDone    Outcome = "done"
	OutcomeNotDone Outcome = "not_done"
)

// TaskResult pairs a task text with the outcome the user picked for it.
// The task text is copied into the result so later catalog edits cannot
// rewrite history.
type TaskResult struct {
	Task    string  `json:"task"`
	Outcome Outcome `json:"outcome"`
}

// Report is the immutable record of one completed checklist run. Reports
// are append-only; the only mutation the store supports is bulk clearing
// by an admin.
type Report struct {
	UserID    int64        `json:"user_id"`
	UserName  string       `json:"user_name"`
	Role      string       `json:"role"`
	Checklist string       `json:"checklist"`
	CreatedAt time.Time    `json:"created_at"`
	Results   []TaskResult `json:"results"`
}

// Completed reports whether every task of the run was answered done.
func (r Report) Completed() bool {
	for _, res := range r.Results {
		if res.Outcome != OutcomeDone {
			return false
		}
	}
	return true
}
