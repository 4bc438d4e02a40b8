package models

import (
	"fmt"
	"time"
)

const (
	TableFree     = "free"
	TableOccupied = "occupied"
)

type Table struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Number    string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"number"`
	Capacity  int       `gorm:"not null;default:4" json:"capacity"`
	Status    string    `gorm:"type:varchar(20);not null;default:'free'" json:"status"`
	WaiterID  *uint     `gorm:"index" json:"waiter_id,omitempty"`
	Waiter    *User     `gorm:"foreignKey:WaiterID" json:"waiter,omitempty"`
	Orders    []Order   `gorm:"foreignKey:TableID" json:"orders"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t Table) IsFree() bool {
	return t.Status == TableFree
}

// OwnedBy reports whether the table is occupied by userID.
func (t Table) OwnedBy(userID uint) bool {
	return t.Status == TableOccupied && t.WaiterID != nil && *t.WaiterID == userID
}

// ActiveItemCount counts the line items of the first active order, which is
// what the "my tables" view shows per table.
func (t Table) ActiveItemCount() int {
	if len(t.Orders) == 0 {
		return 0
	}
	return len(t.Orders[0].Items)
}

// Validate checks the ownership invariant: a waiter is set iff occupied.
func (t Table) Validate() error {
	if t.Capacity <= 0 {
		return fmt.Errorf("table %s: capacity must be positive", t.Number)
	}
	switch t.Status {
	case TableFree:
		if t.WaiterID != nil {
			return fmt.Errorf("table %s: free table has a waiter", t.Number)
		}
	case TableOccupied:
		if t.WaiterID == nil {
			return fmt.Errorf("table %s: occupied table has no waiter", t.Number)
		}
	default:
		return fmt.Errorf("table %s: unknown status %q", t.Number, t.Status)
	}
	return nil
}
