// Package seed implements the bootstrap data CLI.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/Hryurt/dezztech-backend/internal/config"
	"github.com/Hryurt/dezztech-backend/internal/database"
	"github.com/Hryurt/dezztech-backend/internal/domain"
	"github.com/Hryurt/dezztech-backend/internal/security"
	"github.com/Hryurt/dezztech-backend/internal/tools/common"
	"github.com/Hryurt/dezztech-backend/internal/tools/ui"
)

type options struct {
	ci      bool
	envFile string
}

// NewRootCommand builds the seed command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "seed",
		Short:         "Bootstrap local and deployment data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&opts.ci, "ci", false, "machine-readable JSON output")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "env file to load before reading configuration")

	root.AddCommand(&cobra.Command{
		Use:   "apply",
		Short: "Ensure the super admin account exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := run(opts, "seed apply", "seeding", func(ctx context.Context) ([]string, error) {
				cfg, db, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				email, password, err := adminCredentials()
				if err != nil {
					return nil, err
				}
				hash, err := security.NewPasswordHasher(cfg.BcryptCost).Hash(password)
				if err != nil {
					return nil, err
				}
				created, err := database.SeedSuperAdmin(db, email, hash)
				if err != nil {
					return nil, err
				}
				if created {
					return []string{"created super admin " + email}, nil
				}
				return []string{"super admin " + email + " already present"}, nil
			})
			return err
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "dry-run",
		Short: "Report what apply would change without writing",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := run(opts, "seed dry-run", "inspecting", func(ctx context.Context) ([]string, error) {
				_, db, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				email, _, err := adminCredentials()
				if err != nil {
					return nil, err
				}
				var user domain.User
				err = db.Where("email = ?", email).First(&user).Error
				switch {
				case errors.Is(err, gorm.ErrRecordNotFound):
					return []string{"would create super admin " + email}, nil
				case err != nil:
					return nil, err
				case user.Role == domain.RoleSuperAdmin && user.IsActive:
					return []string{"no changes: super admin " + email + " already present"}, nil
				default:
					return []string{"would promote " + email + " to active super admin"}, nil
				}
			})
			return err
		},
	})

	verify := &cobra.Command{
		Use:   "verify-local-email",
		Short: "Mark a local account's email as verified",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			_, err := run(opts, "seed verify-local-email", "verifying", func(ctx context.Context) ([]string, error) {
				if email == "" {
					return nil, errors.New("--email is required")
				}
				_, db, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				return verifyLocalEmail(db, email)
			})
			return err
		},
	}
	verify.Flags().String("email", "", "email address of the account to verify")
	root.AddCommand(verify)

	return root
}

func run(opts *options, title, status string, fn func(context.Context) ([]string, error)) ([]string, error) {
	if opts.ci {
		details, err := fn(context.Background())
		common.PrintCIResult(err == nil, title, details, err)
		return details, err
	}
	return ui.Run(fmt.Sprintf("%s (%s)", title, status), fn)
}

func loadConfigDB(envFile string) (*config.Config, *gorm.DB, error) {
	if err := common.LoadEnvFile(envFile); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func adminCredentials() (email, password string, err error) {
	email = os.Getenv("SEED_ADMIN_EMAIL")
	password = os.Getenv("SEED_ADMIN_PASSWORD")
	if email == "" || password == "" {
		return "", "", errors.New("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD are required")
	}
	return email, password, nil
}

func verifyLocalEmail(db *gorm.DB, email string) ([]string, error) {
	var user domain.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no account with email %s", email)
		}
		return nil, err
	}
	if user.IsVerified() {
		return []string{email + " already verified"}, nil
	}
	now := time.Now().UTC()
	if err := db.Model(&user).Update("email_verified_at", now).Error; err != nil {
		return nil, err
	}
	return []string{"verified " + email}, nil
}
