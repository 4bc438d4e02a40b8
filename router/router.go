package router

import (
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-waiter/controllers"
	"github.com/yeremiapane/restaurant-waiter/hub"
	"github.com/yeremiapane/restaurant-waiter/middlewares"
	"github.com/yeremiapane/restaurant-waiter/models"
	"gorm.io/gorm"
)

func SetupRouter(db *gorm.DB, h *hub.Hub, corsOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(corsOrigins))
	r.Use(middlewares.LoggerMiddleware())

	// Inisialisasi controller
	userCtrl := controllers.NewUserController(db)
	tableCtrl := controllers.NewTableController(db, h)
	orderCtrl := controllers.NewOrderController(db, h)
	realtimeCtrl := controllers.NewRealtimeController(h)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	public := r.Group("/")
	public.Use(middlewares.NewStrictRateLimiter().RateLimit())
	{
		public.POST("/register", userCtrl.Register)
		public.POST("/login", userCtrl.Login)
	}

	// WebSocket: token lewat query string
	ws := r.Group("/ws")
	ws.Use(middlewares.WebSocketAuthMiddleware())
	{
		ws.GET("", realtimeCtrl.Serve)
	}

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	api := r.Group("/api")
	api.Use(middlewares.AuthMiddleware())

	api.GET("/profile", userCtrl.GetProfile)
	api.POST("/logout", userCtrl.Logout)

	// TABLES
	api.GET("/tables", tableCtrl.GetAllTables)
	api.GET("/tables/mine", tableCtrl.GetMyTables)
	api.GET("/tables/:table_id", tableCtrl.GetTableByID)
	api.POST("/tables", middlewares.RequireRole(models.RoleAdmin), tableCtrl.CreateTable)

	waiters := api.Group("/tables")
	waiters.Use(middlewares.RequireRole(models.RoleWaiter, models.RoleAdmin))
	{
		waiters.POST("/:table_id/claim", tableCtrl.ClaimTable)
		waiters.POST("/:table_id/release", tableCtrl.ReleaseTable)
		waiters.POST("/:table_id/orders", orderCtrl.CreateOrder)
	}

	// KITCHEN (chef/admin)
	kitchen := api.Group("/kitchen")
	kitchen.Use(middlewares.RequireRole(models.RoleChef, models.RoleAdmin))
	{
		kitchen.GET("/items", orderCtrl.GetPendingItems)
		kitchen.POST("/items/:item_id/ready", orderCtrl.MarkItemReady)
	}

	return r
}
