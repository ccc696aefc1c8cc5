package console

import "sync"

// Board publishes the latest Status to readers outside the controller.
type Board struct {
	mu     sync.RWMutex
	status Status
}

// NewBoard returns a board holding a waiting status.
func NewBoard() *Board {
	return &Board{status: Status{Link: LinkWaiting.String(), Notices: []Notice{}}}
}

// Publish replaces the current status.
func (b *Board) Publish(st Status) {
	notices := make([]Notice, len(st.Notices))
	copy(notices, st.Notices)
	st.Notices = notices
	b.mu.Lock()
	b.status = st
	b.mu.Unlock()
}

// Status returns the last published status.
func (b *Board) Status() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	st := b.status
	st.Notices = append([]Notice(nil), b.status.Notices...)
	if st.Notices == nil {
		st.Notices = []Notice{}
	}
	return st
}
