package blobstore

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	maxNamePartLen   = 80
	fallbackNameHint = "file"
)

var stamps monotonicStamp

// monotonicStamp hands out strictly increasing unix-nano values, so two names
// generated in the same process never share a timestamp component.
type monotonicStamp struct {
	mu   sync.Mutex
	last int64
}

func (m *monotonicStamp) next(now time.Time) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := now.UnixNano()
	if v <= m.last {
		v = m.last + 1
	}
	m.last = v
	return v
}

// SafeName derives a storage name from the owning note id, a timestamp and
// the client filename. Only [A-Za-z0-9._-] survive.
func SafeName(owner string, stamp int64, hint string) string {
	return sanitizeNamePart(owner, "note") + "-" + strconv.FormatInt(stamp, 36) + "-" + sanitizeNamePart(hint, fallbackNameHint)
}

func sanitizeNamePart(value, fallback string) string {
	value = strings.TrimSpace(value)
	var b strings.Builder
	for _, r := range value {
		if b.Len() >= maxNamePartLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return fallback
	}
	return out
}
