package state

import (
	"context"
	"sync"

	"github.com/HerbHall/livefeed/internal/event"
	"github.com/HerbHall/livefeed/pkg/models"
)

// Session holds server metadata and the authenticated user, if any.
type Session struct {
	mu     sync.RWMutex
	server *models.Server
	user   *models.User
	bus    event.Publisher
}

// NewSession creates an unauthenticated session. bus may be nil.
func NewSession(bus event.Publisher) *Session {
	return &Session{bus: bus}
}

// SetServer stores the server metadata.
func (s *Session) SetServer(ctx context.Context, server models.Server) {
	s.mu.Lock()
	s.server = &server
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(ctx, event.Event{Topic: TopicSessionServer, Source: "state", Payload: server})
	}
}

// Server returns the server metadata, or nil before it was fetched.
func (s *Session) Server() *models.Server {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.server
}

// SetUser stores the session user. A nil user logs the session out.
// Subscribers of TopicSessionUser are told only when the authenticated
// flag actually flips.
func (s *Session) SetUser(ctx context.Context, user *models.User) {
	s.mu.Lock()
	was := s.user != nil
	if user != nil {
		u := *user
		s.user = &u
	} else {
		s.user = nil
	}
	now := s.user != nil
	s.mu.Unlock()

	if s.bus != nil && was != now {
		s.bus.Publish(ctx, event.Event{
			Topic:   TopicSessionUser,
			Source:  "state",
			Payload: UserChange{Authenticated: now},
		})
	}
}

// User returns the session user, or nil when unauthenticated.
func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Authenticated reports whether a session user is present.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}
