package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-waiter/middlewares"
	"github.com/yeremiapane/restaurant-waiter/models"
	"github.com/yeremiapane/restaurant-waiter/utils"
	"gorm.io/gorm"
)

type OrderController struct {
	DB  *gorm.DB
	Hub Broadcaster
}

func NewOrderController(db *gorm.DB, hub Broadcaster) *OrderController {
	return &OrderController{DB: db, Hub: hub}
}

// CreateOrder -> waiter pemilik meja menambahkan pesanan baru
func (oc *OrderController) CreateOrder(c *gin.Context) {
	userID := c.GetUint(middlewares.ContextUserID)
	role := c.GetString(middlewares.ContextRole)
	tableID, err := tableIDParam(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	type ItemReq struct {
		ProductName string `json:"product_name" binding:"required"`
		Quantity    int    `json:"quantity"`
		Notes       string `json:"notes"`
	}
	var body struct {
		Items []ItemReq `json:"items" binding:"required,min=1,dive"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var table models.Table
	if err := oc.DB.First(&table, tableID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("table not found"))
		return
	}
	if !table.OwnedBy(userID) && role != models.RoleAdmin {
		utils.RespondError(c, http.StatusForbidden, ErrNotTableOwner)
		return
	}

	order := models.Order{
		TableID:  table.ID,
		WaiterID: userID,
		Status:   models.OrderOpen,
	}
	for _, item := range body.Items {
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		order.Items = append(order.Items, models.OrderItem{
			ProductName: item.ProductName,
			Quantity:    qty,
			Notes:       item.Notes,
			Status:      models.ItemPending,
		})
	}

	// order + items dibuat sekaligus oleh gorm (association create)
	if err := oc.DB.Create(&order).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	oc.Hub.BroadcastTablesChanged()
	utils.InfoLogger.Printf("Order #%d created for table %s (%d items)", order.ID, table.Number, len(order.Items))
	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

// GetPendingItems -> antrian dapur
func (oc *OrderController) GetPendingItems(c *gin.Context) {
	var items []models.OrderItem
	if err := oc.DB.Where("status = ?", models.ItemPending).Order("id ASC").Find(&items).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Pending items", items)
}

// MarkItemReady -> chef menandai item "ready" lalu waiter pemilik meja
// menerima "pedido:listo" di room-nya.
func (oc *OrderController) MarkItemReady(c *gin.Context) {
	itemID, err := strconv.ParseUint(c.Param("item_id"), 10, 64)
	if err != nil || itemID == 0 {
		utils.RespondError(c, http.StatusBadRequest, ErrInvalidItemID)
		return
	}

	var item models.OrderItem
	if err := oc.DB.First(&item, itemID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	if item.Status == models.ItemReady {
		utils.RespondError(c, http.StatusConflict, fmt.Errorf("item #%d already ready", item.ID))
		return
	}

	var order models.Order
	if err := oc.DB.First(&order, item.OrderID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	var table models.Table
	if err := oc.DB.First(&table, order.TableID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	item.Status = models.ItemReady
	if err := oc.DB.Save(&item).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	// meja bisa saja sudah dilepas; kirim ke waiter yang membuat pesanan
	waiterID := order.WaiterID
	if table.WaiterID != nil {
		waiterID = *table.WaiterID
	}
	delivered := oc.Hub.NotifyOrderReady(waiterID, models.OrderReady{
		Table:   table.Number,
		Product: item.ProductName,
	})
	oc.Hub.BroadcastTablesChanged()

	utils.InfoLogger.Printf("Item #%d (%s) ready for table %s, delivered to %d connection(s)",
		item.ID, item.ProductName, table.Number, delivered)
	utils.RespondJSON(c, http.StatusOK, "Item ready", item)
}
