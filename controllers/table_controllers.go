package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-waiter/middlewares"
	"github.com/yeremiapane/restaurant-waiter/models"
	"github.com/yeremiapane/restaurant-waiter/utils"
	"gorm.io/gorm"
)

// Broadcaster is the part of the realtime hub the controllers push through.
type Broadcaster interface {
	BroadcastTablesChanged()
	NotifyOrderReady(userID uint, payload models.OrderReady) int
}

type TableController struct {
	DB  *gorm.DB
	Hub Broadcaster
}

func NewTableController(db *gorm.DB, hub Broadcaster) *TableController {
	return &TableController{DB: db, Hub: hub}
}

// withOrders preloads the waiter and the open orders with their items.
func withOrders(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Waiter").
		Preload("Orders", func(db *gorm.DB) *gorm.DB {
			return db.Where("status = ?", models.OrderOpen).Order("id ASC")
		}).
		Preload("Orders.Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		})
}

func tableIDParam(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("table_id"), 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidTableID
	}
	return uint(id), nil
}

func (tc *TableController) loadTable(id uint) (models.Table, error) {
	var table models.Table
	err := withOrders(tc.DB).First(&table, id).Error
	return table, err
}

// CreateTable -> menambahkan meja baru (admin)
func (tc *TableController) CreateTable(c *gin.Context) {
	var req struct {
		Number   string `json:"number" binding:"required"`
		Capacity int    `json:"capacity" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	table := models.Table{
		Number:   req.Number,
		Capacity: req.Capacity,
		Status:   models.TableFree,
	}
	if err := table.Validate(); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := tc.DB.Create(&table).Error; err != nil {
		utils.RespondError(c, http.StatusConflict, err)
		return
	}

	tc.Hub.BroadcastTablesChanged()
	utils.InfoLogger.Printf("New table created: %s (capacity=%d)", table.Number, table.Capacity)
	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", table)
}

// GetAllTables -> seluruh meja beserta pesanan aktif
func (tc *TableController) GetAllTables(c *gin.Context) {
	var tables []models.Table
	if err := withOrders(tc.DB).Order("id ASC").Find(&tables).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

// GetMyTables -> meja yang sedang dipegang waiter ini
func (tc *TableController) GetMyTables(c *gin.Context) {
	userID := c.GetUint(middlewares.ContextUserID)

	var tables []models.Table
	err := withOrders(tc.DB).
		Where("status = ? AND waiter_id = ?", models.TableOccupied, userID).
		Order("id ASC").
		Find(&tables).Error
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of my tables", tables)
}

// GetTableByID -> detail satu meja
func (tc *TableController) GetTableByID(c *gin.Context) {
	id, err := tableIDParam(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	table, err := tc.loadTable(id)
	if err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table detail", table)
}

// ClaimTable -> free => occupied oleh waiter yang login.
// Klaim ulang atas meja sendiri tetap sukses.
func (tc *TableController) ClaimTable(c *gin.Context) {
	userID := c.GetUint(middlewares.ContextUserID)
	id, err := tableIDParam(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	// update bersyarat supaya dua waiter tidak bisa mengambil meja yang sama
	res := tc.DB.Model(&models.Table{}).
		Where("id = ? AND status = ?", id, models.TableFree).
		Updates(map[string]interface{}{
			"status":    models.TableOccupied,
			"waiter_id": userID,
		})
	if res.Error != nil {
		utils.RespondError(c, http.StatusInternalServerError, res.Error)
		return
	}

	table, err := tc.loadTable(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, errors.New("table not found"))
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	if res.RowsAffected == 0 {
		if table.OwnedBy(userID) {
			utils.RespondJSON(c, http.StatusOK, "Table already assigned to you", table)
			return
		}
		utils.RespondError(c, http.StatusConflict, ErrTableTaken)
		return
	}

	tc.Hub.BroadcastTablesChanged()
	utils.InfoLogger.Printf("Table %s claimed by user %d", table.Number, userID)
	utils.RespondJSON(c, http.StatusOK, "Table assigned", table)
}

// ReleaseTable -> occupied(self) => free, pesanan terbuka ditutup.
// Melepas meja yang sudah free tetap sukses; admin boleh melepas meja siapa pun.
func (tc *TableController) ReleaseTable(c *gin.Context) {
	userID := c.GetUint(middlewares.ContextUserID)
	role := c.GetString(middlewares.ContextRole)
	id, err := tableIDParam(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	table, err := tc.loadTable(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, errors.New("table not found"))
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	if table.IsFree() {
		utils.RespondJSON(c, http.StatusOK, "Table already free", table)
		return
	}
	if !table.OwnedBy(userID) && role != models.RoleAdmin {
		utils.RespondError(c, http.StatusForbidden, ErrNotTableOwner)
		return
	}

	err = tc.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Table{}).
			Where("id = ? AND status = ? AND waiter_id = ?", id, models.TableOccupied, *table.WaiterID).
			Updates(map[string]interface{}{
				"status":    models.TableFree,
				"waiter_id": nil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTableTaken
		}
		return tx.Model(&models.Order{}).
			Where("table_id = ? AND status = ?", id, models.OrderOpen).
			Update("status", models.OrderClosed).Error
	})
	if errors.Is(err, ErrTableTaken) {
		utils.RespondError(c, http.StatusConflict, err)
		return
	}
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	table, err = tc.loadTable(id)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	tc.Hub.BroadcastTablesChanged()
	utils.InfoLogger.Printf("Table %s released by user %d", table.Number, userID)
	utils.RespondJSON(c, http.StatusOK, "Table released", table)
}
