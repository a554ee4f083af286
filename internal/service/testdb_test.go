package service

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"fieldforce/api/internal/model"
)

// newTestDB opens a fresh in-memory database with the full schema. Each call
// gets its own named shared-cache DSN so gorm's connection pool sees one
// database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	if err := db.AutoMigrate(
		&model.User{},
		&model.LoginLog{},
		&model.AttendanceRecord{},
		&model.Order{},
		&model.Outlet{},
		&model.Route{},
		&model.RouteOutlet{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	return db
}
