package event

import (
	"slices"
	"sync"

	"github.com/erp/ledger/internal/domain/shared"
)

// subscriptions routes event types to handlers. Handlers registered without
// types ("catch-all") are delivered after the typed ones, in registration order.
type subscriptions struct {
	mu       sync.RWMutex
	byType   map[string][]shared.EventHandler
	catchAll []shared.EventHandler
}

func newSubscriptions() *subscriptions {
	return &subscriptions{byType: make(map[string][]shared.EventHandler)}
}

func (s *subscriptions) add(h shared.EventHandler, eventTypes []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(eventTypes) == 0 {
		s.catchAll = append(s.catchAll, h)
		return
	}
	for _, t := range eventTypes {
		s.byType[t] = append(s.byType[t], h)
	}
}

func (s *subscriptions) remove(h shared.EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := func(x shared.EventHandler) bool { return x == h }
	s.catchAll = slices.DeleteFunc(s.catchAll, drop)
	for t, hs := range s.byType {
		if hs = slices.DeleteFunc(hs, drop); len(hs) == 0 {
			delete(s.byType, t)
		} else {
			s.byType[t] = hs
		}
	}
}

// route returns a snapshot of the handlers for one event type
func (s *subscriptions) route(eventType string) []shared.EventHandler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Concat(s.byType[eventType], s.catchAll)
}

// types lists the event types with at least one typed subscriber
func (s *subscriptions) types() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.byType))
	for t := range s.byType {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}
