package seed

import (
	"context"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Hryurt/dezztech-backend/internal/domain"
)

func newSeedDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestNewRootCommandStructure(t *testing.T) {
	cmd := NewRootCommand()
	if cmd.Use != "seed" {
		t.Fatalf("unexpected root use: %s", cmd.Use)
	}
	for _, name := range []string{"apply", "dry-run", "verify-local-email"} {
		if c, _, err := cmd.Find([]string{name}); err != nil || c == nil {
			t.Fatalf("expected subcommand %q: err=%v", name, err)
		}
	}
	verify, _, err := cmd.Find([]string{"verify-local-email"})
	if err != nil {
		t.Fatalf("find verify-local-email: %v", err)
	}
	if f := verify.Flags().Lookup("email"); f == nil {
		t.Fatal("expected --email flag on verify-local-email")
	}
}

func TestRunCIPath(t *testing.T) {
	opts := &options{ci: true}
	details, err := run(opts, "seed apply", "seeding", func(ctx context.Context) ([]string, error) {
		return []string{"created super admin root@dezztech.local"}, nil
	})
	if err != nil || len(details) != 1 {
		t.Fatalf("expected success details, got details=%v err=%v", details, err)
	}
}

func TestAdminCredentialsFromEnv(t *testing.T) {
	t.Setenv("SEED_ADMIN_EMAIL", "root@dezztech.local")
	t.Setenv("SEED_ADMIN_PASSWORD", "Sup3r-secret")
	email, password, err := adminCredentials()
	if err != nil {
		t.Fatalf("adminCredentials: %v", err)
	}
	if email != "root@dezztech.local" || password != "Sup3r-secret" {
		t.Fatalf("unexpected credentials %q / %q", email, password)
	}

	t.Setenv("SEED_ADMIN_PASSWORD", "")
	if _, _, err := adminCredentials(); err == nil {
		t.Fatal("expected error when SEED_ADMIN_PASSWORD is unset")
	}
}

func TestVerifyLocalEmail(t *testing.T) {
	db := newSeedDBForTest(t)
	if err := db.Create(&domain.User{Email: "dev@dezztech.local", PasswordHash: "hash", Role: domain.RoleUser}).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	if _, err := verifyLocalEmail(db, "nobody@dezztech.local"); err == nil || !strings.Contains(err.Error(), "no account") {
		t.Fatalf("expected unknown-account error, got %v", err)
	}

	details, err := verifyLocalEmail(db, "dev@dezztech.local")
	if err != nil || len(details) != 1 || !strings.Contains(details[0], "verified") {
		t.Fatalf("expected verification, got details=%v err=%v", details, err)
	}
	var user domain.User
	if err := db.Where("email = ?", "dev@dezztech.local").First(&user).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if user.EmailVerifiedAt == nil || time.Since(*user.EmailVerifiedAt) > time.Minute {
		t.Fatalf("expected recent verification timestamp, got %v", user.EmailVerifiedAt)
	}

	details, err = verifyLocalEmail(db, "dev@dezztech.local")
	if err != nil || len(details) != 1 || !strings.Contains(details[0], "already verified") {
		t.Fatalf("expected already-verified report, got details=%v err=%v", details, err)
	}
}
