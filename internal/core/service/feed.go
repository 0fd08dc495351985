package service

import (
	"sync"

	"github.com/clubconnect/clubconnect/internal/core/domain"
)

// Feed is an in-memory session feed for one device. Subscribers receive the
// current session when they subscribe and every session published after.
// Callbacks run while the feed is locked and must not block.
type Feed struct {
	mu      sync.Mutex
	current *domain.Session
	subs    map[int]func(*domain.Session)
	nextID  int
}

// NewFeed returns a Feed whose startup session is initial (nil when signed out).
func NewFeed(initial *domain.Session) *Feed {
	return &Feed{current: initial, subs: make(map[int]func(*domain.Session))}
}

// Subscribe registers fn and immediately delivers the current session.
func (f *Feed) Subscribe(fn func(*domain.Session)) (unsubscribe func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++
	f.subs[id] = fn
	fn(f.current)

	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

// Publish records s as the current session and delivers it to subscribers.
func (f *Feed) Publish(s *domain.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.current = s
	for _, fn := range f.subs {
		fn(s)
	}
}

// Current returns the last published session.
func (f *Feed) Current() *domain.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}
