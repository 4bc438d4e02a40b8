package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/restaurant-waiter/hub"
	"github.com/yeremiapane/restaurant-waiter/middlewares"
	"github.com/yeremiapane/restaurant-waiter/models"
	"github.com/yeremiapane/restaurant-waiter/utils"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // origin sudah dibatasi oleh token
	},
}

type RealtimeController struct {
	Hub *hub.Hub
}

func NewRealtimeController(h *hub.Hub) *RealtimeController {
	return &RealtimeController{Hub: h}
}

// Serve -> endpoint websocket untuk waiter
func (rc *RealtimeController) Serve(c *gin.Context) {
	userID := c.GetUint(middlewares.ContextUserID)
	role := c.GetString(middlewares.ContextRole)

	if role != models.RoleWaiter && role != models.RoleAdmin {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Printf("websocket upgrade failed: %v", err)
		return
	}

	utils.InfoLogger.WithField("user_id", userID).Debug("realtime client connected")
	rc.Hub.Serve(rc.Hub.NewClient(ws, userID, role))
}
