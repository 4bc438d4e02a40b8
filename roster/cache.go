// Package roster caches the floor's table roster on the waiter side.
//
// Entries are replaced wholesale by refreshes and never patched in place.
// Every refresh takes a ticket from a per-list counter before it asks the
// server; a response is applied only if its ticket is newer than the last one
// applied, so a slow response cannot overwrite a fresher one.
package roster

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-waiter/floorclient"
	"github.com/yeremiapane/restaurant-waiter/models"
	"github.com/yeremiapane/restaurant-waiter/utils"
)

// ErrTableOccupied is returned by Claim without contacting the server when
// the cached roster already shows the table held by someone else.
var ErrTableOccupied = errors.New("table is occupied by another waiter")

// API is the part of the floor server the cache talks to.
// *floorclient.Client implements it.
type API interface {
	ListTables(ctx context.Context) ([]models.Table, error)
	ListMyTables(ctx context.Context) ([]models.Table, error)
	ClaimTable(ctx context.Context, tableID uint) (models.Table, error)
	ReleaseTable(ctx context.Context, tableID uint) (models.Table, error)
}

type list struct {
	tables  []models.Table
	issued  atomic.Uint64
	applied uint64 // guarded by Cache.mu
	loaded  bool
}

type Cache struct {
	api    API
	userID uint

	mu      sync.RWMutex
	all     list
	mine    list
	version uint64
}

// New creates an empty cache for the waiter userID.
func New(api API, userID uint) *Cache {
	return &Cache{api: api, userID: userID}
}

func (c *Cache) UserID() uint { return c.userID }

// RefreshAll replaces the whole roster with the server's.
func (c *Cache) RefreshAll(ctx context.Context) error {
	return c.refresh(ctx, &c.all, "all", c.api.ListTables)
}

// RefreshMine replaces the "my tables" list. Ownership is decided by the
// server, not filtered from the full roster.
func (c *Cache) RefreshMine(ctx context.Context) error {
	return c.refresh(ctx, &c.mine, "mine", c.api.ListMyTables)
}

func (c *Cache) refresh(ctx context.Context, l *list, name string, fetch func(context.Context) ([]models.Table, error)) error {
	ticket := l.issued.Add(1)

	tables, err := fetch(ctx)
	if err != nil {
		return err
	}
	// scope already gone, the caller no longer wants this result
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if ticket <= l.applied {
		utils.InfoLogger.WithFields(logrus.Fields{
			"component": "roster",
			"list":      name,
			"ticket":    ticket,
			"applied":   l.applied,
		}).Debug("dropping stale roster response")
		return nil
	}
	l.tables = validTables(name, tables)
	l.applied = ticket
	l.loaded = true
	c.version++
	return nil
}

// validTables drops rows that break the ownership invariant. They are
// logged; the next refresh gets another chance at a consistent row.
func validTables(name string, tables []models.Table) []models.Table {
	out := make([]models.Table, 0, len(tables))
	for _, t := range tables {
		if err := t.Validate(); err != nil {
			utils.ErrorLogger.WithFields(logrus.Fields{
				"component": "roster",
				"list":      name,
				"table_id":  t.ID,
			}).WithError(err).Warn("dropping invalid table row")
			continue
		}
		out = append(out, t)
	}
	return out
}

// Refresh runs RefreshAll and RefreshMine and returns the first error.
func (c *Cache) Refresh(ctx context.Context) error {
	errAll := c.RefreshAll(ctx)
	errMine := c.RefreshMine(ctx)
	if errAll != nil {
		return errAll
	}
	return errMine
}

// Claim asks the server to assign tableID to the current waiter.
//
// A table the cache shows as held by another waiter is refused locally with
// ErrTableOccupied. A table already held by the current waiter is a no-op.
// A server conflict forces a refresh so the cache shows who won, and the
// conflict is still returned. No entry is patched optimistically.
func (c *Cache) Claim(ctx context.Context, tableID uint) error {
	if t, ok := c.Table(tableID); ok {
		if t.OwnedBy(c.userID) {
			return nil
		}
		if t.Status == models.TableOccupied {
			return ErrTableOccupied
		}
	}

	if _, err := c.api.ClaimTable(ctx, tableID); err != nil {
		if errors.Is(err, floorclient.ErrConflict) {
			c.refreshAfterAction(ctx, "claim", tableID)
		}
		return err
	}
	c.refreshAfterAction(ctx, "claim", tableID)
	return nil
}

// Release gives tableID back to the floor. A forbidden response (not the
// owner) leaves the cache untouched.
func (c *Cache) Release(ctx context.Context, tableID uint) error {
	if _, err := c.api.ReleaseTable(ctx, tableID); err != nil {
		return err
	}
	c.refreshAfterAction(ctx, "release", tableID)
	return nil
}

// refreshAfterAction failures are only logged; the next poll catches up.
func (c *Cache) refreshAfterAction(ctx context.Context, action string, tableID uint) {
	if err := c.Refresh(ctx); err != nil {
		utils.ErrorLogger.WithFields(logrus.Fields{
			"component": "roster",
			"action":    action,
			"table_id":  tableID,
		}).WithError(err).Warn("refresh after action failed")
	}
}

// All returns a snapshot of the full roster in server order.
func (c *Cache) All() []models.Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Table(nil), c.all.tables...)
}

// Mine returns a snapshot of the current waiter's tables.
func (c *Cache) Mine() []models.Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Table(nil), c.mine.tables...)
}

// Table looks tableID up in the full roster, then in the "mine" list.
func (c *Cache) Table(tableID uint) (models.Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, t := range c.all.tables {
		if t.ID == tableID {
			return t, true
		}
	}
	for _, t := range c.mine.tables {
		if t.ID == tableID {
			return t, true
		}
	}
	return models.Table{}, false
}

// FindByNumber resolves a display label to a cached table.
func (c *Cache) FindByNumber(number string) (models.Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, t := range c.all.tables {
		if t.Number == number {
			return t, true
		}
	}
	for _, t := range c.mine.tables {
		if t.Number == number {
			return t, true
		}
	}
	return models.Table{}, false
}

// Loaded reports whether the full roster has been fetched at least once.
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.all.loaded
}

// Version increases every time a refresh is applied.
func (c *Cache) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}
