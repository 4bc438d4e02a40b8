// Package notify holds the waiter's undismissed notifications.
//
// Notifications are kept in arrival order, newest last. Each arrival is a
// separate entry even when the same table and product arrive twice; only an
// explicit Remove takes an entry away.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yeremiapane/restaurant-waiter/models"
	"github.com/yeremiapane/restaurant-waiter/utils"
)

type Store struct {
	mu      sync.RWMutex
	items   []models.Notification
	version uint64

	chime Chime
	now   func() time.Time
	newID func() string
}

type Option func(*Store)

// WithChime sets the sound played when a "ready" notification arrives.
func WithChime(c Chime) Option {
	return func(s *Store) { s.chime = c }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add appends a new notification and returns it. A "ready" notification
// also rings the chime; a failing chime is logged and otherwise ignored.
func (s *Store) Add(title, message string, category models.Category) models.Notification {
	n := models.Notification{
		ID:        s.newID(),
		Title:     title,
		Message:   message,
		Category:  category,
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	s.items = append(s.items, n)
	s.version++
	s.mu.Unlock()

	if category == models.CategoryReady && s.chime != nil {
		go s.ring()
	}
	return n
}

func (s *Store) ring() {
	if err := s.chime.Play(); err != nil {
		utils.InfoLogger.WithError(err).Debug("notification sound unavailable")
	}
}

// Remove deletes the notification with id. It reports whether an entry was
// removed; an unknown id leaves the store untouched.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.items {
		if n.ID == id {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			s.version++
			return true
		}
	}
	return false
}

// List returns a copy of the notifications, oldest first.
func (s *Store) List() []models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Notification, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Version increases on every change; the terminal view redraws when it moves.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Clear empties the store at the end of a session.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.version++
}
