// Package testutil starts an in-process floor server for tests.
package testutil

import (
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/restaurant-waiter/config"
	"github.com/yeremiapane/restaurant-waiter/hub"
	"github.com/yeremiapane/restaurant-waiter/models"
	"github.com/yeremiapane/restaurant-waiter/router"
	"github.com/yeremiapane/restaurant-waiter/utils"
)

// Password is the plain password of every user created by CreateUser.
const Password = "secret123"

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_]`)

// OpenTestDB opens an in-memory SQLite database private to t and migrates
// the floor schema. The database lives until t finishes.
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := unsafeName.ReplaceAllString(t.Name(), "_")
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("test db handle: %v", err)
	}
	// satu koneksi: sqlite in-memory tidak suka penulis paralel
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := config.AutoMigrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func CreateUser(t *testing.T, db *gorm.DB, name, email, role string) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := models.User{Name: name, Email: email, Password: string(hash), Role: role}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return user
}

func CreateTable(t *testing.T, db *gorm.DB, number string, capacity int) models.Table {
	t.Helper()
	table := models.Table{Number: number, Capacity: capacity, Status: models.TableFree}
	if err := db.Create(&table).Error; err != nil {
		t.Fatalf("create table %s: %v", number, err)
	}
	return table
}

// Token signs a token for user without going through /login, which is rate
// limited per client address.
func Token(t *testing.T, user models.User) string {
	t.Helper()
	token, err := utils.GenerateToken(user.ID, user.Role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func Session(t *testing.T, user models.User) models.Session {
	t.Helper()
	return models.Session{
		UserID: user.ID,
		Name:   user.Name,
		Role:   user.Role,
		Token:  Token(t, user),
	}
}

// FloorServer is the real router and hub behind an httptest server.
type FloorServer struct {
	*httptest.Server
	DB     *gorm.DB
	Hub    *hub.Hub
	Router *gin.Engine
}

func NewFloorServer(t *testing.T) *FloorServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := OpenTestDB(t)
	h := hub.New()
	r := router.SetupRouter(db, h, nil)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		h.Close()
		srv.Close()
	})
	return &FloorServer{Server: srv, DB: db, Hub: h, Router: r}
}
