package notify

import (
	"context"
	"log"
)

// LogNotifier is the development fallback when no broker is configured.
type LogNotifier struct{}

// Notify logs the event instead of delivering it.
func (LogNotifier) Notify(_ context.Context, userKey, event string, _ any) {
	log.Printf("notify: %s -> %s", event, userKey)
}
