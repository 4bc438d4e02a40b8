package controllers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restaurant-waiter/models"
	"github.com/yeremiapane/restaurant-waiter/testutil"
)

func TestOrderReadyGoesToTableOwner(t *testing.T) {
	db := testutil.OpenTestDB(t)
	ana := testutil.CreateUser(t, db, "Ana", "ana@example.com", models.RoleWaiter)
	chef := testutil.CreateUser(t, db, "Chef", "chef@example.com", models.RoleChef)
	table := testutil.CreateTable(t, db, "5", 2)
	rec := &recorder{}
	router := setupFloorRouter(db, rec)

	do(t, router, http.MethodPost, fmt.Sprintf("/api/tables/%d/claim", table.ID), testutil.Token(t, ana), nil)
	code, resp := do(t, router, http.MethodPost, fmt.Sprintf("/api/tables/%d/orders", table.ID), testutil.Token(t, ana),
		map[string]interface{}{"items": []map[string]interface{}{
			{"product_name": "Soup"},
			{"product_name": "Bread", "quantity": 2, "notes": "no butter"},
		}})
	require.Equal(t, http.StatusCreated, code)
	order := decode[models.Order](t, resp)
	require.Len(t, order.Items, 2)
	assert.Equal(t, 1, order.Items[0].Quantity)

	code, resp = do(t, router, http.MethodGet, "/api/kitchen/items", testutil.Token(t, chef), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]models.OrderItem](t, resp), 2)

	code, _ = do(t, router, http.MethodPost, fmt.Sprintf("/api/kitchen/items/%d/ready", order.Items[0].ID), testutil.Token(t, chef), nil)
	require.Equal(t, http.StatusOK, code)

	require.Len(t, rec.ready, 1)
	assert.Equal(t, ana.ID, rec.ready[0].userID)
	assert.Equal(t, models.OrderReady{Table: "5", Product: "Soup", UserID: ana.ID}, rec.ready[0].payload)

	// item yang sudah ready tidak bisa ditandai lagi
	code, _ = do(t, router, http.MethodPost, fmt.Sprintf("/api/kitchen/items/%d/ready", order.Items[0].ID), testutil.Token(t, chef), nil)
	assert.Equal(t, http.StatusConflict, code)
}

func TestCreateOrderRules(t *testing.T) {
	db := testutil.OpenTestDB(t)
	ana := testutil.CreateUser(t, db, "Ana", "ana@example.com", models.RoleWaiter)
	bob := testutil.CreateUser(t, db, "Bob", "bob@example.com", models.RoleWaiter)
	table := testutil.CreateTable(t, db, "5", 2)
	router := setupFloorRouter(db, &recorder{})
	path := fmt.Sprintf("/api/tables/%d/orders", table.ID)
	items := map[string]interface{}{"items": []map[string]interface{}{{"product_name": "Soup"}}}

	code, _ := do(t, router, http.MethodPost, path, testutil.Token(t, ana), items)
	assert.Equal(t, http.StatusForbidden, code, "table not claimed yet")

	do(t, router, http.MethodPost, fmt.Sprintf("/api/tables/%d/claim", table.ID), testutil.Token(t, ana), nil)

	code, _ = do(t, router, http.MethodPost, path, testutil.Token(t, bob), items)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = do(t, router, http.MethodPost, path, testutil.Token(t, ana), map[string]interface{}{"items": []interface{}{}})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, router, http.MethodPost, "/api/tables/999/orders", testutil.Token(t, ana), items)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestMarkItemReadyRequiresKitchenRole(t *testing.T) {
	db := testutil.OpenTestDB(t)
	ana := testutil.CreateUser(t, db, "Ana", "ana@example.com", models.RoleWaiter)
	router := setupFloorRouter(db, &recorder{})

	code, _ := do(t, router, http.MethodPost, "/api/kitchen/items/1/ready", testutil.Token(t, ana), nil)
	assert.Equal(t, http.StatusForbidden, code)
}
