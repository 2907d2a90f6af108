package httpapi

import (
	"context"
	"strconv"
	"time"
)

// parseUnix parses a unix-seconds query parameter into a time.Time, the way
// the room/edition/change views render their own timestamps.
func parseUnix(v string) (time.Time, error) {
	sec, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(sec, 0).UTC(), nil
}

// detachedContext is used by the async room-adjust/edition-commit/dump-events
// tasks dispatched from a request handler: the request's own context is
// cancelled once the handler returns its 202, but the task must keep running
// to completion (spec.md §5 "tasks are dispatched and outlive the request").
func detachedContext() context.Context {
	return context.Background()
}
