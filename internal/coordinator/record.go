package coordinator

import "time"

// Status is the lifecycle state of a request.
// Transitions are Queued -> Processing -> Completed|Failed.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition can happen.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Active reports whether the request still holds a worker slot.
func (s Status) Active() bool {
	return s == StatusQueued || s == StatusProcessing
}

// RequestRecord tracks one unit of work for a resource key.
// QueuePosition is 1-based while queued and 0 otherwise.
type RequestRecord struct {
	ID            string
	ResourceKey   string
	Label         string
	Status        Status
	Result        string
	Error         string
	QueuePosition int
	CreatedAt     time.Time
	CompletedAt   time.Time
}

// RequestHandle is the view of a record handed to pollers.
type RequestHandle struct {
	ID            string `json:"id"`
	Status        Status `json:"status"`
	QueuePosition int    `json:"queuePosition"`
	Result        string `json:"result,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Handle returns the poller view of r.
func (r RequestRecord) Handle() RequestHandle {
	return RequestHandle{
		ID:            r.ID,
		Status:        r.Status,
		QueuePosition: r.QueuePosition,
		Result:        r.Result,
		Error:         r.Error,
	}
}
