package session

import (
	"fmt"
	"time"
)

// FloodWaitError reports a server-imposed backoff. Callers should park
// the offending session for at least RetryAfter before reusing it.
type FloodWaitError struct {
	RetryAfter time.Duration
}

func (e *FloodWaitError) Error() string {
	return fmt.Sprintf("flood wait: retry after %s", e.RetryAfter)
}
