package queue

// ReportCompletedEvent is the audit record published after a finished
// checklist run. It carries everything the downstream log needs without
// another lookup.
type ReportCompletedEvent struct {
	UserID      int64  `json:"user_id"`
	UserName    string `json:"user_name"`
	Role        string `json:"role"`
	Checklist   string `json:"checklist"`
	TaskCount   int    `json:"task_count"`
	DoneCount   int    `json:"done_count"`
	CompletedAt string `json:"completed_at"`
}
