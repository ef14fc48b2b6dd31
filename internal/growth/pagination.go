package growth

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// Page cursors are URL-safe base64 of v1|<RFC3339Nano completed_at>|<activity id>.

const (
	tokenVersion    = "v1"
	defaultPageSize = 20
	maxPageSize     = 100
)

func normalizePageSize(size int) int {
	switch {
	case size <= 0:
		return defaultPageSize
	case size > maxPageSize:
		return maxPageSize
	default:
		return size
	}
}

func encodePageToken(anchor time.Time, docID string) string {
	raw := strings.Join([]string{
		tokenVersion,
		anchor.UTC().Format(time.RFC3339Nano),
		docID,
	}, "|")
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// decodePageToken returns (anchor, docID, ok, err). An empty token is not an error.
func decodePageToken(token string) (time.Time, string, bool, error) {
	if token == "" {
		return time.Time{}, "", false, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, "", false, fmt.Errorf("%w: bad encoding", ErrInvalidPageToken)
	}
	parts := strings.Split(string(b), "|")
	if len(parts) != 3 || parts[0] != tokenVersion {
		return time.Time{}, "", false, fmt.Errorf("%w: bad format", ErrInvalidPageToken)
	}
	t, err := time.Parse(time.RFC3339Nano, parts[1])
	if err != nil {
		return time.Time{}, "", false, fmt.Errorf("%w: bad timestamp", ErrInvalidPageToken)
	}
	if strings.TrimSpace(parts[2]) == "" {
		return time.Time{}, "", false, fmt.Errorf("%w: missing id", ErrInvalidPageToken)
	}
	return t, parts[2], true, nil
}
