// Package coordinator keeps the waiter's local view in line with the floor
// server. Pushed events, a fixed-interval poll and the waiter's own actions
// all feed it. Order-ready events become notifications for as long as the
// session lives. The other triggers end in an idempotent roster refresh run
// by a single worker, so overlapping triggers collapse into one refresh.
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-waiter/models"
	"github.com/yeremiapane/restaurant-waiter/notify"
	"github.com/yeremiapane/restaurant-waiter/realtime"
	"github.com/yeremiapane/restaurant-waiter/utils"
)

const DefaultInterval = 5 * time.Second

var ErrAlreadyRunning = errors.New("coordinator is already running")

type View string

const (
	ViewFloor View = "floor"
	ViewMine  View = "mine"
)

func ParseView(s string) (View, error) {
	switch View(s) {
	case ViewFloor, ViewMine:
		return View(s), nil
	}
	return "", fmt.Errorf("unknown view %q (want floor or mine)", s)
}

// Channel is the push side. *realtime.Client implements it.
type Channel interface {
	Subscribe(event string, handler realtime.Handler) realtime.Subscription
}

// Roster is the cache the coordinator refreshes. *roster.Cache implements it.
type Roster interface {
	RefreshAll(ctx context.Context) error
	RefreshMine(ctx context.Context) error
	Claim(ctx context.Context, tableID uint) error
	Release(ctx context.Context, tableID uint) error
	Table(tableID uint) (models.Table, bool)
}

type trigger uint8

const (
	// refresh whatever the active view shows
	triggerView trigger = 1 << iota
	// refresh the full roster too
	triggerAll
)

type Coordinator struct {
	channel  Channel
	store    *notify.Store
	roster   Roster
	session  models.Session
	interval time.Duration
	log      *logrus.Entry

	mu      sync.Mutex
	ready   realtime.Subscription
	running bool
	view    View
	pending trigger
	kick    chan struct{}

	// refreshes counts worker passes, for tests and the status line
	refreshes int
}

type Option func(*Coordinator)

func WithInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.interval = d
		}
	}
}

func New(channel Channel, store *notify.Store, roster Roster, session models.Session, opts ...Option) *Coordinator {
	c := &Coordinator{
		channel:  channel,
		store:    store,
		roster:   roster,
		session:  session,
		interval: DefaultInterval,
		log: utils.InfoLogger.WithFields(logrus.Fields{
			"component": "coordinator",
			"user_id":   session.UserID,
		}),
	}
	for _, opt := range opts {
		opt(c)
	}
	// order-ready belongs to the session, not to a view
	c.ready = channel.Subscribe(models.EventOrderReady, c.onOrderReady)
	return c
}

// Close drops the session's order-ready subscription (logout or re-login).
// A running Run is stopped through its context, not by Close.
func (c *Coordinator) Close() {
	c.mu.Lock()
	sub := c.ready
	c.ready = nil
	c.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}

func (c *Coordinator) Session() models.Session { return c.session }

// View returns the view of the current Run, or "" when not running.
func (c *Coordinator) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *Coordinator) Refreshes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshes
}

// Run drives view until ctx is cancelled. It subscribes to tables-changed,
// loads the roster once, then polls every interval. On return its own
// subscriptions are removed, the ticker is stopped and the refresh worker
// has exited; handlers registered by others on the same channel are left
// alone.
func (c *Coordinator) Run(ctx context.Context, view View) error {
	if _, err := ParseView(string(view)); err != nil {
		return err
	}

	kick := make(chan struct{}, 1)
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.running = true
	c.view = view
	c.pending = 0
	c.kick = kick
	c.mu.Unlock()

	changed := c.channel.Subscribe(models.EventTablesChanged, func(json.RawMessage) {
		if ctx.Err() != nil {
			return
		}
		c.request(triggerView)
	})

	ticker := time.NewTicker(c.interval)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.worker(ctx, kick)
	}()

	defer func() {
		changed.Unsubscribe()
		ticker.Stop()
		wg.Wait()

		c.mu.Lock()
		c.running = false
		c.view = ""
		c.kick = nil
		c.mu.Unlock()
		c.log.WithField("view", view).Debug("coordinator stopped")
	}()

	c.log.WithField("view", view).Debug("coordinator started")
	c.request(triggerAll)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.request(triggerAll)
		}
	}
}

// request records t and wakes the worker. The kick channel holds one signal,
// so requests that arrive while a refresh is queued merge into it.
func (c *Coordinator) request(t trigger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kick == nil {
		return
	}
	c.pending |= t
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

func (c *Coordinator) worker(ctx context.Context, kick <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-kick:
		}

		c.mu.Lock()
		pending, view := c.pending, c.view
		c.pending = 0
		c.mu.Unlock()

		c.refresh(ctx, view, pending)
	}
}

func (c *Coordinator) refresh(ctx context.Context, view View, pending trigger) {
	if pending == 0 {
		return
	}
	if pending&triggerAll != 0 || view == ViewFloor {
		if err := c.roster.RefreshAll(ctx); err != nil && ctx.Err() == nil {
			c.log.WithError(err).Warn("refresh tables failed")
		}
	}
	if view == ViewMine {
		if err := c.roster.RefreshMine(ctx); err != nil && ctx.Err() == nil {
			c.log.WithError(err).Warn("refresh my tables failed")
		}
	}

	c.mu.Lock()
	c.refreshes++
	c.mu.Unlock()
}

func (c *Coordinator) onOrderReady(data json.RawMessage) {
	var ev models.OrderReady
	if err := json.Unmarshal(data, &ev); err != nil {
		c.log.WithError(err).Warn("invalid order ready payload")
		return
	}
	if ev.UserID != 0 && ev.UserID != c.session.UserID {
		c.log.WithField("target", ev.UserID).Debug("order ready for another waiter, dropped")
		return
	}
	c.store.Add("Table "+ev.Table, ev.Product+" READY", models.CategoryReady)
}

// Claim claims tableID through the roster. A failure is returned and also
// left in the store as an error notification.
func (c *Coordinator) Claim(ctx context.Context, tableID uint) error {
	err := c.roster.Claim(ctx, tableID)
	if err != nil {
		c.reportError("Could not claim "+c.tableLabel(tableID), err)
	}
	return err
}

// Release releases tableID; failures are reported like Claim's.
func (c *Coordinator) Release(ctx context.Context, tableID uint) error {
	err := c.roster.Release(ctx, tableID)
	if err != nil {
		c.reportError("Could not release "+c.tableLabel(tableID), err)
	}
	return err
}

func (c *Coordinator) reportError(title string, err error) {
	c.log.WithError(err).Info(title)
	c.store.Add(title, errorMessage(err), models.CategoryError)
}

func (c *Coordinator) tableLabel(tableID uint) string {
	if t, ok := c.roster.Table(tableID); ok {
		return "table " + t.Number
	}
	return "table #" + strconv.FormatUint(uint64(tableID), 10)
}
