package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"brand-review-api/config"
	"brand-review-api/models"
)

var notificationDBCounter int64

// setupNotificationDB points the package-level DB at a private in-memory
// SQLite database for the duration of one test.
func setupNotificationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:notification_test_%d?mode=memory&cache=shared", atomic.AddInt64(&notificationDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&models.Notification{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	previous := config.DB
	config.DB = db
	t.Cleanup(func() { config.DB = previous })

	return db
}

func notificationContext(t *testing.T, userID int) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/notifications", nil)
	c.Set("userID", userID)
	return c, recorder
}

func seedNotification(t *testing.T, db *gorm.DB, userID int, read bool) {
	t.Helper()
	notification := models.Notification{
		UserID:   userID,
		Title:    "Final decision recorded",
		Message:  "Acme Wellness is now Approved",
		Type:     "success",
		IsRead:   read,
		CreateAt: time.Now(),
	}
	if err := db.Create(&notification).Error; err != nil {
		t.Fatal(err)
	}
}

func TestGetMyNotificationsUnreadCount(t *testing.T) {
	db := setupNotificationDB(t)
	seedNotification(t, db, 7, false)
	seedNotification(t, db, 7, false)
	seedNotification(t, db, 7, true)
	seedNotification(t, db, 8, false)

	c, recorder := notificationContext(t, 7)
	GetMyNotifications(c)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}

	var body struct {
		Unread        int64                 `json:"unread"`
		Notifications []models.Notification `json:"notifications"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Unread != 2 {
		t.Fatalf("unread = %d, want 2", body.Unread)
	}
	if len(body.Notifications) != 3 {
		t.Fatalf("got %d notifications, want 3", len(body.Notifications))
	}
}

// A failed count must surface as an error, never as unread: 0.
func TestGetMyNotificationsCountFailure(t *testing.T) {
	db := setupNotificationDB(t)
	if err := db.Migrator().DropTable(&models.Notification{}); err != nil {
		t.Fatal(err)
	}

	c, recorder := notificationContext(t, 7)
	GetMyNotifications(c)

	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", recorder.Code)
	}
}
