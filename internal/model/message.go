package model

import "time"

// Message is a read-only snapshot of the newest message in a thread.
// The unread count exposed by the API is always derived from the list,
// never stored separately.
type Message struct {
	ID       string    `json:"id"`
	ThreadID string    `json:"thread_id"`
	Subject  string    `json:"subject"`
	Sender   string    `json:"sender"`
	SentAt   time.Time `json:"sent_at"`
	Unread   bool      `json:"unread"`
	Excerpt  string    `json:"excerpt"`
	// RequiresMitID is set for sensitive threads whose body the platform
	// refuses to serve without step-up authentication.
	RequiresMitID bool `json:"requires_mitid,omitempty"`
}
