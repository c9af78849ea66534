package domain

import "time"

// Entry is one immutable audit fact. Entries are append-only; nothing in
// this service mutates or deletes them.
type Entry struct {
	ID        string
	SessionID string
	UserID    string
	EventType string
	OldValue  string
	NewValue  string
	IPAddress string
	UserAgent string
	Timestamp time.Time
}

// Filter narrows an audit query. Zero values mean "no constraint".
type Filter struct {
	UserID    string
	EventType string
	Start     time.Time
	End       time.Time
}
