package guards

import "github.com/ottohq/otto-gateway/pkg/session"

// IntentCapacityExceeded reports whether q has no room for a new distinct
// intent (1 active + up to 2 queued, max 3 total).
func IntentCapacityExceeded(q session.IntentQueue) bool {
	return q.Full()
}
