package database

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Hryurt/dezztech-backend/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	// A per-test database name keeps tests isolated; cache=shared still lets
	// all connections within one test see the same in-memory database.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestMigrateSuccessCreatesTables(t *testing.T) {
	db := newSQLiteDB(t)
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if !db.Migrator().HasTable(&domain.User{}) {
		t.Fatal("expected users table")
	}
	if !db.Migrator().HasTable(&domain.VerificationCode{}) {
		t.Fatal("expected verification_codes table")
	}
	if !db.Migrator().HasTable(&domain.PasswordResetToken{}) {
		t.Fatal("expected password_reset_tokens table")
	}
}

func TestMigrateFailureWhenDBClosed(t *testing.T) {
	db := newSQLiteDB(t)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB: %v", err)
	}
	if err := sqlDB.Close(); err != nil {
		t.Fatalf("close sql db: %v", err)
	}

	if err := Migrate(db); err == nil {
		t.Fatal("expected migrate error on closed database")
	}
}
