package controllers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-waiter/controllers"
	"github.com/yeremiapane/restaurant-waiter/middlewares"
	"github.com/yeremiapane/restaurant-waiter/models"
)

type readyCall struct {
	userID  uint
	payload models.OrderReady
}

// recorder menggantikan hub websocket di test controller
type recorder struct {
	mu      sync.Mutex
	changed int
	ready   []readyCall
}

func (r *recorder) BroadcastTablesChanged() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changed++
}

func (r *recorder) NotifyOrderReady(userID uint, payload models.OrderReady) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	payload.UserID = userID
	r.ready = append(r.ready, readyCall{userID: userID, payload: payload})
	return 1
}

func (r *recorder) changes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.changed
}

func setupFloorRouter(db *gorm.DB, rec controllers.Broadcaster) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	userCtrl := controllers.NewUserController(db)
	tableCtrl := controllers.NewTableController(db, rec)
	orderCtrl := controllers.NewOrderController(db, rec)

	router.POST("/register", userCtrl.Register)
	router.POST("/login", userCtrl.Login)

	api := router.Group("/api", middlewares.AuthMiddleware())
	api.GET("/profile", userCtrl.GetProfile)
	api.POST("/logout", userCtrl.Logout)
	api.GET("/tables", tableCtrl.GetAllTables)
	api.GET("/tables/mine", tableCtrl.GetMyTables)
	api.GET("/tables/:table_id", tableCtrl.GetTableByID)
	api.POST("/tables", middlewares.RequireRole(models.RoleAdmin), tableCtrl.CreateTable)
	api.POST("/tables/:table_id/claim", tableCtrl.ClaimTable)
	api.POST("/tables/:table_id/release", tableCtrl.ReleaseTable)
	api.POST("/tables/:table_id/orders", orderCtrl.CreateOrder)
	api.GET("/kitchen/items", orderCtrl.GetPendingItems)
	api.POST("/kitchen/items/:item_id/ready", middlewares.RequireRole(models.RoleChef, models.RoleAdmin), orderCtrl.MarkItemReady)
	return router
}

type response struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) (int, response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func decode[T any](t *testing.T, resp response) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	return out
}
