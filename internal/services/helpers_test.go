package services

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yungbote/gradebridge-backend/internal/db"
	"github.com/yungbote/gradebridge-backend/internal/logger"
)

// newTestDB opens a uniquely named shared in-memory sqlite database and runs
// the full migration. The unique name keeps pooled connections on the same
// database while isolating tests from each other.
func newTestDB(t *testing.T) (*gorm.DB, *logger.Logger) {
	t.Helper()

	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return gdb, log
}
