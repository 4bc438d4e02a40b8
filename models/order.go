package models

import (
	"time"
)

const (
	OrderOpen   = "open"
	OrderClosed = "closed"
)

type Order struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	TableID   uint        `gorm:"not null;index" json:"table_id"`
	WaiterID  uint        `gorm:"not null;index" json:"waiter_id"`
	Status    string      `gorm:"type:varchar(20);not null;default:'open'" json:"status"`
	Items     []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
