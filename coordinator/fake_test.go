package coordinator

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/yeremiapane/restaurant-waiter/models"
	"github.com/yeremiapane/restaurant-waiter/realtime"
)

type fakeChannel struct {
	mu       sync.Mutex
	next     int
	handlers map[string]map[int]realtime.Handler
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{handlers: make(map[string]map[int]realtime.Handler)}
}

type fakeSub struct {
	ch    *fakeChannel
	event string
	id    int
}

func (s fakeSub) Unsubscribe() {
	s.ch.mu.Lock()
	defer s.ch.mu.Unlock()
	delete(s.ch.handlers[s.event], s.id)
}

func (f *fakeChannel) Subscribe(event string, h realtime.Handler) realtime.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	if f.handlers[event] == nil {
		f.handlers[event] = make(map[int]realtime.Handler)
	}
	f.handlers[event][f.next] = h
	return fakeSub{ch: f, event: event, id: f.next}
}

func (f *fakeChannel) count(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers[event])
}

func (f *fakeChannel) emit(event string, payload interface{}) {
	var data json.RawMessage
	if payload != nil {
		data, _ = json.Marshal(payload)
	}
	f.mu.Lock()
	hs := make([]realtime.Handler, 0, len(f.handlers[event]))
	for _, h := range f.handlers[event] {
		hs = append(hs, h)
	}
	f.mu.Unlock()
	for _, h := range hs {
		h(data)
	}
}

type fakeRoster struct {
	all, mine atomic.Int32

	mu         sync.Mutex
	tables     map[uint]models.Table
	claimErr   error
	releaseErr error
	// allGate, when set, is received from before RefreshAll returns
	allGate chan struct{}
}

func newFakeRoster(tables ...models.Table) *fakeRoster {
	r := &fakeRoster{tables: make(map[uint]models.Table)}
	for _, t := range tables {
		r.tables[t.ID] = t
	}
	return r
}

func (r *fakeRoster) RefreshAll(ctx context.Context) error {
	r.all.Add(1)
	r.mu.Lock()
	gate := r.allGate
	r.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (r *fakeRoster) RefreshMine(ctx context.Context) error {
	r.mine.Add(1)
	return nil
}

func (r *fakeRoster) Claim(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.claimErr
}

func (r *fakeRoster) Release(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.releaseErr
}

func (r *fakeRoster) Table(id uint) (models.Table, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tables[id]
	return t, ok
}
