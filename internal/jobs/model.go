package jobs

import "time"

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Job represents a queued humanization request and its lifecycle state.
// HumanizedText is set exactly when Status is completed.
type Job struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	OriginalText  string     `json:"originalText"`
	HumanizedText *string    `json:"humanizedText,omitempty"`
	Status        string     `json:"status"`
	Attempts      int        `json:"attempts"`
	ErrorMessage  *string    `json:"errorMessage,omitempty"`
	WordCount     int        `json:"wordCount"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}

// StatusStats aggregates per-status counts and turnaround time.
type StatusStats struct {
	Count      int     `json:"count"`
	AvgSeconds float64 `json:"avgSeconds"`
}

// Stats summarizes the queue for observability.
type Stats struct {
	Total    int                    `json:"total"`
	ByStatus map[string]StatusStats `json:"byStatus"`
}
