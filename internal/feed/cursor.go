// Package feed assembles ranked and recency-ordered feed pages from stored
// content records.
package feed

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/locustsocial/feedsync/internal/domain"
)

// EncodeCursor packs a (timestamp, id) resume position into the opaque
// "sec.nsec|id" form handed to clients of the recency feed.
func EncodeCursor(t time.Time, id string) string {
	return fmt.Sprintf("%d.%d|%s", t.Unix(), t.Nanosecond(), id)
}

// DecodeCursor parses a recency cursor. Any malformed input returns
// domain.ErrBadCursor; callers turn that into a client error rather than
// silently restarting the feed from the top.
func DecodeCursor(s string) (time.Time, string, error) {
	pos, id, ok := strings.Cut(s, "|")
	if !ok || id == "" {
		return time.Time{}, "", fmt.Errorf("%w: %q", domain.ErrBadCursor, s)
	}

	secStr, nsecStr, ok := strings.Cut(pos, ".")
	if !ok {
		return time.Time{}, "", fmt.Errorf("%w: %q", domain.ErrBadCursor, s)
	}

	sec, err := strconv.ParseInt(secStr, 10, 64)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: %q", domain.ErrBadCursor, s)
	}
	nsec, err := strconv.ParseInt(nsecStr, 10, 64)
	if err != nil || nsec < 0 || nsec > 999_999_999 {
		return time.Time{}, "", fmt.Errorf("%w: %q", domain.ErrBadCursor, s)
	}

	return time.Unix(sec, nsec).UTC(), id, nil
}
