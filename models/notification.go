package models

import (
	"time"
)

type Category string

const (
	CategoryReady Category = "ready"
	CategoryError Category = "error"
)

// Notification is an undismissed alert held by the waiter client. It lives
// only in memory for the duration of a session.
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Category  Category  `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}
