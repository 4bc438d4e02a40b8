package database

import (
	"fmt"
	"os"
	"strings"

	"github.com/yeremiapane/restaurant-waiter/models"
	"github.com/yeremiapane/restaurant-waiter/utils"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// FloorPlan is the YAML seed document:
//
//	tables:
//	  - number: "1"
//	    capacity: 4
//	users:
//	  - name: Ana
//	    email: ana@example.com
//	    password: secret123
//	    role: waiter
type FloorPlan struct {
	Tables []SeedTable `yaml:"tables"`
	Users  []SeedUser  `yaml:"users"`
}

type SeedTable struct {
	Number   string `yaml:"number"`
	Capacity int    `yaml:"capacity"`
}

type SeedUser struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

func ParseFloorPlan(data []byte) (*FloorPlan, error) {
	var plan FloorPlan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parse floor plan: %w", err)
	}
	seen := make(map[string]bool)
	for i, t := range plan.Tables {
		if strings.TrimSpace(t.Number) == "" {
			return nil, fmt.Errorf("table #%d: number is required", i+1)
		}
		if t.Capacity <= 0 {
			return nil, fmt.Errorf("table %s: capacity must be positive", t.Number)
		}
		if seen[t.Number] {
			return nil, fmt.Errorf("table %s: duplicate number", t.Number)
		}
		seen[t.Number] = true
	}
	return &plan, nil
}

func SeedFloorFromFile(db *gorm.DB, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	plan, err := ParseFloorPlan(data)
	if err != nil {
		return err
	}
	return SeedFloor(db, plan)
}

// SeedFloor inserts the plan's tables only when the floor is empty, and
// users whose email is not registered yet.
func SeedFloor(db *gorm.DB, plan *FloorPlan) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Table{}).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			for _, t := range plan.Tables {
				table := models.Table{Number: t.Number, Capacity: t.Capacity, Status: models.TableFree}
				if err := table.Validate(); err != nil {
					return fmt.Errorf("seed: %w", err)
				}
				if err := tx.Create(&table).Error; err != nil {
					return fmt.Errorf("seed table %s: %w", t.Number, err)
				}
			}
			utils.InfoLogger.Printf("Seeded %d tables", len(plan.Tables))
		}

		for _, u := range plan.Users {
			email := strings.ToLower(u.Email)
			var existing int64
			if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				continue
			}
			hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			user := models.User{Name: u.Name, Email: email, Password: string(hashed), Role: u.Role}
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("seed user %s: %w", email, err)
			}
			utils.InfoLogger.Printf("Seeded user %s (role=%s)", email, u.Role)
		}
		return nil
	})
}
