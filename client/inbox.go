// Package client connects to the time-off service's live channel and keeps
// the received notifications in an inbox with read/unread state.
package client

import (
	"sync"
	"time"
)

// Notification mirrors the server's wire format.
type Notification struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
	Read      bool           `json:"read"`
}

// Inbox is an ordered log of received notifications, newest first, with an
// unread counter. State lives in memory only and is lost when the process
// exits. A notification moves unread to read once; there is no revert.
type Inbox struct {
	mu            sync.Mutex
	notifications []Notification
	unread        int
	toast         func(Notification)
}

// NewInbox creates an inbox. The toast callback, if non-nil, runs for every
// received notification (the transient popup in the original UI).
func NewInbox(toast func(Notification)) *Inbox {
	return &Inbox{toast: toast}
}

// OnReceive prepends the notification and bumps the unread counter.
func (b *Inbox) OnReceive(n Notification) {
	b.mu.Lock()
	b.notifications = append([]Notification{n}, b.notifications...)
	b.unread++
	toast := b.toast
	b.mu.Unlock()

	if toast != nil {
		toast(n)
	}
}

// MarkAsRead flips one notification to read. Already-read entries and
// unknown ids change nothing; the counter never goes below zero.
func (b *Inbox) MarkAsRead(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.notifications {
		if b.notifications[i].ID == id {
			if !b.notifications[i].Read {
				b.notifications[i].Read = true
				if b.unread > 0 {
					b.unread--
				}
			}
			return
		}
	}
}

// MarkAllAsRead flips every notification to read and zeroes the counter.
func (b *Inbox) MarkAllAsRead() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.notifications {
		b.notifications[i].Read = true
	}
	b.unread = 0
}

// Notifications returns a copy of the log, newest first.
func (b *Inbox) Notifications() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Notification, len(b.notifications))
	copy(out, b.notifications)
	return out
}

// UnreadCount returns the number of unread notifications.
func (b *Inbox) UnreadCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.unread
}
