package roster_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restaurant-waiter/floorclient"
	"github.com/yeremiapane/restaurant-waiter/models"
	"github.com/yeremiapane/restaurant-waiter/roster"
)

const (
	me    uint = 7
	other uint = 9
)

func TestRefreshAllAndMine(t *testing.T) {
	floor := newFakeFloor(me, free(1, "1"), occupied(2, "2", me), occupied(3, "3", other))
	cache := roster.New(floor, me)
	ctx := context.Background()

	assert.False(t, cache.Loaded())
	require.NoError(t, cache.Refresh(ctx))
	assert.True(t, cache.Loaded())

	assert.Len(t, cache.All(), 3)
	mine := cache.Mine()
	require.Len(t, mine, 1)
	assert.Equal(t, uint(2), mine[0].ID)

	for _, tbl := range cache.All() {
		assert.NoError(t, tbl.Validate())
	}
}

func TestClaimThenRefreshShowsOwner(t *testing.T) {
	floor := newFakeFloor(me, free(1, "1"), free(2, "2"))
	cache := roster.New(floor, me)
	ctx := context.Background()
	require.NoError(t, cache.RefreshAll(ctx))

	require.NoError(t, cache.Claim(ctx, 1))

	tbl, ok := cache.Table(1)
	require.True(t, ok)
	assert.Equal(t, models.TableOccupied, tbl.Status)
	require.NotNil(t, tbl.WaiterID)
	assert.Equal(t, me, *tbl.WaiterID)
	require.Len(t, cache.Mine(), 1)
	assert.Equal(t, 1, floor.count("claim"))
}

func TestReleaseThenRefreshShowsFree(t *testing.T) {
	floor := newFakeFloor(me, occupied(1, "1", me))
	cache := roster.New(floor, me)
	ctx := context.Background()
	require.NoError(t, cache.Refresh(ctx))
	require.Len(t, cache.Mine(), 1)

	require.NoError(t, cache.Release(ctx, 1))

	tbl, ok := cache.Table(1)
	require.True(t, ok)
	assert.Equal(t, models.TableFree, tbl.Status)
	assert.Nil(t, tbl.WaiterID)
	assert.Empty(t, cache.Mine())
}

func TestClaimGuardRejectsTableHeldByOther(t *testing.T) {
	floor := newFakeFloor(me, occupied(3, "3", other))
	cache := roster.New(floor, me)
	ctx := context.Background()
	require.NoError(t, cache.RefreshAll(ctx))

	err := cache.Claim(ctx, 3)
	assert.ErrorIs(t, err, roster.ErrTableOccupied)
	assert.Zero(t, floor.count("claim"), "no request for a table known to be taken")
}

func TestClaimOwnTableIsNoop(t *testing.T) {
	floor := newFakeFloor(me, occupied(2, "2", me))
	cache := roster.New(floor, me)
	ctx := context.Background()
	require.NoError(t, cache.RefreshAll(ctx))
	version := cache.Version()

	require.NoError(t, cache.Claim(ctx, 2))
	assert.Zero(t, floor.count("claim"))
	assert.Equal(t, version, cache.Version())
}

func TestClaimUnknownTableAsksServer(t *testing.T) {
	floor := newFakeFloor(me, free(4, "4"))
	cache := roster.New(floor, me)

	require.NoError(t, cache.Claim(context.Background(), 4))
	assert.Equal(t, 1, floor.count("claim"))
	tbl, ok := cache.Table(4)
	require.True(t, ok)
	assert.True(t, tbl.OwnedBy(me))
}

func TestClaimConflictForcesRefresh(t *testing.T) {
	floor := newFakeFloor(me, free(3, "3"))
	cache := roster.New(floor, me)
	ctx := context.Background()
	require.NoError(t, cache.Refresh(ctx))

	// another waiter wins the race after our last refresh
	floor.set(occupied(3, "3", other))
	allBefore, mineBefore := floor.count("all"), floor.count("mine")

	err := cache.Claim(ctx, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, floorclient.ErrConflict))

	assert.Equal(t, allBefore+1, floor.count("all"))
	assert.Equal(t, mineBefore+1, floor.count("mine"))
	tbl, _ := cache.Table(3)
	assert.Equal(t, models.TableOccupied, tbl.Status)
	assert.False(t, tbl.OwnedBy(me))
}

func TestReleaseForbiddenLeavesCacheAlone(t *testing.T) {
	floor := newFakeFloor(me, free(3, "3"))
	cache := roster.New(floor, me)
	ctx := context.Background()
	require.NoError(t, cache.Refresh(ctx))
	floor.set(occupied(3, "3", other))
	version, lists := cache.Version(), floor.count("all")

	err := cache.Release(ctx, 3)
	assert.True(t, errors.Is(err, floorclient.ErrForbidden))
	assert.Equal(t, version, cache.Version())
	assert.Equal(t, lists, floor.count("all"))
}

func TestOverlappingRefreshNeverResurrectsStaleData(t *testing.T) {
	floor := newFakeFloor(me, free(1, "1"))
	cache := roster.New(floor, me)
	ctx := context.Background()

	firstTaken := make(chan struct{})
	releaseFirst := make(chan struct{})
	floor.beforeList = func(call int) {
		if call == 1 {
			close(firstTaken)
			<-releaseFirst
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// this one saw the table free and is slow to come back
		assert.NoError(t, cache.RefreshAll(ctx))
	}()
	<-firstTaken

	floor.set(occupied(1, "1", other))
	require.NoError(t, cache.RefreshAll(ctx))
	tbl, _ := cache.Table(1)
	require.Equal(t, models.TableOccupied, tbl.Status)
	version := cache.Version()

	close(releaseFirst)
	wg.Wait()

	tbl, _ = cache.Table(1)
	assert.Equal(t, models.TableOccupied, tbl.Status, "stale response must not be applied")
	assert.Equal(t, version, cache.Version())
}

func TestRefreshAfterCancelIsDiscarded(t *testing.T) {
	floor := newFakeFloor(me, free(1, "1"))
	cache := roster.New(floor, me)
	ctx, cancel := context.WithCancel(context.Background())
	floor.beforeList = func(int) { cancel() }

	err := cache.RefreshAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, cache.Loaded())
	assert.Zero(t, cache.Version())
}

func TestRefreshErrorKeepsCache(t *testing.T) {
	floor := newFakeFloor(me, free(1, "1"))
	cache := roster.New(floor, me)
	ctx := context.Background()
	require.NoError(t, cache.RefreshAll(ctx))

	floor.listErr = errors.New("connection refused")
	assert.Error(t, cache.RefreshAll(ctx))
	assert.Len(t, cache.All(), 1)
}

func TestFindByNumber(t *testing.T) {
	floor := newFakeFloor(me, free(1, "A1"), free(2, "B2"))
	cache := roster.New(floor, me)
	require.NoError(t, cache.RefreshAll(context.Background()))

	tbl, ok := cache.FindByNumber("B2")
	require.True(t, ok)
	assert.Equal(t, uint(2), tbl.ID)
	_, ok = cache.FindByNumber("Z9")
	assert.False(t, ok)
}

func TestRefreshDropsRowsBreakingOwnership(t *testing.T) {
	broken := models.Table{ID: 4, Number: "4", Capacity: 4, Status: models.TableOccupied}
	floor := newFakeFloor(me, free(1, "1"), occupied(2, "2", other), broken)
	cache := roster.New(floor, me)
	assert.Equal(t, me, cache.UserID())

	require.NoError(t, cache.RefreshAll(context.Background()))
	all := cache.All()
	require.Len(t, all, 2)
	for _, tbl := range all {
		assert.NotEqual(t, uint(4), tbl.ID)
	}
	_, ok := cache.Table(4)
	assert.False(t, ok)

	// once the server row is consistent again it shows up
	floor.set(occupied(4, "4", other))
	require.NoError(t, cache.RefreshAll(context.Background()))
	assert.Len(t, cache.All(), 3)
}
