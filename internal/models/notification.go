package models

import "time"

const (
	NotifyNewRequest      = "NEW_REQUEST"
	NotifyRequestDecision = "REQUEST_DECISION"
)

// Notification is the event pushed over a user's live connection. Delivery is
// fire-and-forget: if the target has no open connection the event is dropped.
type Notification struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
	Read      bool           `json:"read"`
}
