package roster_test

import (
	"context"
	"net/http"
	"sort"
	"sync"

	"github.com/yeremiapane/restaurant-waiter/floorclient"
	"github.com/yeremiapane/restaurant-waiter/models"
)

// fakeFloor mimics the server's claim and release rules for one waiter.
type fakeFloor struct {
	user uint

	mu     sync.Mutex
	tables map[uint]models.Table
	calls  map[string]int

	// beforeList runs after the snapshot is taken, before it is returned
	beforeList func(call int)
	listErr    error
}

func newFakeFloor(user uint, tables ...models.Table) *fakeFloor {
	f := &fakeFloor{
		user:   user,
		tables: make(map[uint]models.Table),
		calls:  make(map[string]int),
	}
	for _, t := range tables {
		f.tables[t.ID] = t
	}
	return f
}

func free(id uint, number string) models.Table {
	return models.Table{ID: id, Number: number, Capacity: 4, Status: models.TableFree}
}

func occupied(id uint, number string, waiter uint) models.Table {
	w := waiter
	return models.Table{ID: id, Number: number, Capacity: 4, Status: models.TableOccupied, WaiterID: &w}
}

func (f *fakeFloor) set(t models.Table) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[t.ID] = t
}

func (f *fakeFloor) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeFloor) snapshot(onlyMine bool) []models.Table {
	out := make([]models.Table, 0, len(f.tables))
	for _, t := range f.tables {
		if onlyMine && !t.OwnedBy(f.user) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeFloor) list(name string, onlyMine bool) ([]models.Table, error) {
	f.mu.Lock()
	f.calls[name]++
	call := f.calls[name]
	snap := f.snapshot(onlyMine)
	hook, err := f.beforeList, f.listErr
	f.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (f *fakeFloor) ListTables(ctx context.Context) ([]models.Table, error) {
	return f.list("all", false)
}

func (f *fakeFloor) ListMyTables(ctx context.Context) ([]models.Table, error) {
	return f.list("mine", true)
}

func (f *fakeFloor) ClaimTable(ctx context.Context, id uint) (models.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["claim"]++

	t, ok := f.tables[id]
	switch {
	case !ok:
		return models.Table{}, &floorclient.APIError{StatusCode: http.StatusNotFound, Message: "table not found"}
	case t.OwnedBy(f.user):
		return t, nil
	case !t.IsFree():
		return models.Table{}, &floorclient.APIError{StatusCode: http.StatusConflict, Message: "table already taken"}
	}
	t = occupied(t.ID, t.Number, f.user)
	f.tables[id] = t
	return t, nil
}

func (f *fakeFloor) ReleaseTable(ctx context.Context, id uint) (models.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["release"]++

	t, ok := f.tables[id]
	switch {
	case !ok:
		return models.Table{}, &floorclient.APIError{StatusCode: http.StatusNotFound, Message: "table not found"}
	case t.IsFree():
		return t, nil
	case !t.OwnedBy(f.user):
		return models.Table{}, &floorclient.APIError{StatusCode: http.StatusForbidden, Message: "not your table"}
	}
	t = free(t.ID, t.Number)
	f.tables[id] = t
	return t, nil
}
