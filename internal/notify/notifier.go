// Package notify pushes advisory events to affected clients. Delivery is
// fire-and-forget: the authoritative state change is the store mutation, a
// lost notification only delays the client noticing it.
package notify

import "context"

// Notifier delivers one event to the user's live connection, if any.
type Notifier interface {
	Notify(ctx context.Context, userKey, event string, payload any)
}
