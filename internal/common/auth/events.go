package auth

import (
	"sync"
	"time"
)

type EventType string

const (
	EventSignedUp  EventType = "SIGNED_UP"
	EventSignedIn  EventType = "SIGNED_IN"
	EventSignedOut EventType = "SIGNED_OUT"
)

// Event reports a session state change. Session is nil on sign-out.
type Event struct {
	Type    EventType
	Email   string
	Session *Session
	At      time.Time
}

type subscribers struct {
	mu   sync.RWMutex
	next int
	fns  map[int]func(Event)
}

func newSubscribers() *subscribers {
	return &subscribers{fns: make(map[int]func(Event))}
}

func (s *subscribers) add(fn func(Event)) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.fns[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.fns, id)
			s.mu.Unlock()
		})
	}
}

func (s *subscribers) publish(ev Event) {
	s.mu.RLock()
	fns := make([]func(Event), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
