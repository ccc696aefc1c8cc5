package console

import (
	"time"

	"github.com/google/uuid"
)

// NoticeLevel grades a transient operator message.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

const (
	defaultNoticeTTL = 8 * time.Second
	defaultNoticeMax = 5
)

// Notice is one transient message shown to the operator.
type Notice struct {
	ID      string      `json:"id"`
	Level   NoticeLevel `json:"level"`
	Text    string      `json:"text"`
	At      time.Time   `json:"at"`
	Expires time.Time   `json:"expires"`
}

// Notices is a bounded queue of transient messages. The oldest notice is
// dropped when the queue is full. Not safe for concurrent use.
type Notices struct {
	ttl   time.Duration
	max   int
	items []Notice
}

// NewNotices creates a queue. Non-positive arguments select the defaults.
func NewNotices(ttl time.Duration, max int) *Notices {
	if ttl <= 0 {
		ttl = defaultNoticeTTL
	}
	if max <= 0 {
		max = defaultNoticeMax
	}
	return &Notices{ttl: ttl, max: max}
}

// Push appends a notice stamped at now and returns it.
func (n *Notices) Push(level NoticeLevel, text string, now time.Time) Notice {
	nt := Notice{
		ID:      uuid.New().String(),
		Level:   level,
		Text:    text,
		At:      now,
		Expires: now.Add(n.ttl),
	}
	n.items = append(n.items, nt)
	if len(n.items) > n.max {
		n.items = n.items[len(n.items)-n.max:]
	}
	return nt
}

// Active drops expired notices and returns a copy of the remaining ones,
// oldest first.
func (n *Notices) Active(now time.Time) []Notice {
	kept := n.items[:0]
	for _, it := range n.items {
		if now.Before(it.Expires) {
			kept = append(kept, it)
		}
	}
	n.items = kept
	out := make([]Notice, len(kept))
	copy(out, kept)
	return out
}

// Len returns the number of queued notices, expired or not.
func (n *Notices) Len() int { return len(n.items) }

// Dismiss clears every notice.
func (n *Notices) Dismiss() { n.items = nil }
