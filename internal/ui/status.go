package ui

import (
	"sync"
	"time"
)

// StatusDuration is how long an alert stays on screen.
const StatusDuration = 3 * time.Second

// Status is the transient message line. It implements editor.Alerter so
// alerts reach the window as well as the desktop notifier.
type Status struct {
	mu      sync.Mutex
	kind    string
	message string
	until   time.Time
	now     func() time.Time
	changed func()
}

// NewStatus returns an empty status line.
func NewStatus() *Status {
	return &Status{now: time.Now}
}

// Alert shows message until StatusDuration has passed.
func (s *Status) Alert(kind, message string) {
	s.mu.Lock()
	s.kind = kind
	s.message = message
	s.until = s.now().Add(StatusDuration)
	fn := s.changed
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Dismiss hides the current message.
func (s *Status) Dismiss() {
	s.mu.Lock()
	s.until = time.Time{}
	s.mu.Unlock()
}

// Current returns the message on screen at now.
func (s *Status) Current(now time.Time) (kind, message string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.message == "" || !now.Before(s.until) {
		return "", "", false
	}
	return s.kind, s.message, true
}

func (s *Status) onChange(fn func()) {
	s.mu.Lock()
	s.changed = fn
	s.mu.Unlock()
}
