package realtime

import (
	"encoding/json"
	"sync"
)

// Handler receives the raw data of one pushed event.
type Handler func(data json.RawMessage)

type handlerEntry struct {
	id      uint64
	handler Handler
}

// Subscription is the handle returned by Subscribe. Unsubscribe removes
// exactly the handler it was created for and is safe to call more than once.
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	client *Client
	event  string
	id     uint64
	once   sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.client.remove(s.event, s.id)
	})
}

// Subscribe registers handler for event. Registrations are additive: several
// handlers may listen to the same event and each is invoked once per frame.
func (c *Client) Subscribe(event string, handler Handler) Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.handlers[event] = append(c.handlers[event], handlerEntry{id: c.nextID, handler: handler})
	return &subscription{client: c, event: event, id: c.nextID}
}

// UnsubscribeAll drops every handler registered for event.
func (c *Client) UnsubscribeAll(event string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, event)
}

// HandlerCount returns the number of handlers registered for event.
func (c *Client) HandlerCount(event string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handlers[event])
}

func (c *Client) remove(event string, id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := c.handlers[event]
	for i, e := range entries {
		if e.id == id {
			entries = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
	if len(entries) == 0 {
		delete(c.handlers, event)
		return
	}
	c.handlers[event] = entries
}

func (c *Client) dispatch(event string, data json.RawMessage) int {
	c.mu.Lock()
	entries := c.handlers[event]
	c.mu.Unlock()

	// entries is never mutated in place, so it can be walked without the lock
	for _, e := range entries {
		e.handler(data)
	}
	return len(entries)
}
