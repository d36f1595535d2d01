// Package migrate implements the schema migration CLI.
package migrate

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/Hryurt/dezztech-backend/internal/config"
	"github.com/Hryurt/dezztech-backend/internal/database"
	"github.com/Hryurt/dezztech-backend/internal/domain"
	"github.com/Hryurt/dezztech-backend/internal/tools/common"
	"github.com/Hryurt/dezztech-backend/internal/tools/ui"
)

type options struct {
	ci      bool
	timeout time.Duration
	envFile string
}

// NewRootCommand builds the migrate command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&opts.ci, "ci", false, "machine-readable JSON output")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "per-command timeout")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "env file to load before reading configuration")

	root.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending schema changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := run(opts, "migrate up", "applying", func(ctx context.Context) ([]string, error) {
				_, db, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				if err := database.Migrate(db); err != nil {
					return nil, err
				}
				return tableReport(db), nil
			})
			return err
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show which tables exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := run(opts, "migrate status", "inspecting", func(ctx context.Context) ([]string, error) {
				_, db, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				return tableReport(db), nil
			})
			return err
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "plan",
		Short: "List tables that would be created by up",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := run(opts, "migrate plan", "planning", func(ctx context.Context) ([]string, error) {
				_, db, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				var pending []string
				for name, model := range migratedTables() {
					if !db.Migrator().HasTable(model) {
						pending = append(pending, "create "+name)
					}
				}
				if len(pending) == 0 {
					pending = []string{"schema up to date"}
				}
				return pending, nil
			})
			return err
		},
	})
	return root
}

func run(opts *options, title, status string, fn func(context.Context) ([]string, error)) ([]string, error) {
	wrapped := func(ctx context.Context) ([]string, error) {
		ctx, cancel := context.WithTimeout(ctx, opts.timeout)
		defer cancel()
		return fn(ctx)
	}
	if opts.ci {
		details, err := wrapped(context.Background())
		common.PrintCIResult(err == nil, title, details, err)
		return details, err
	}
	return ui.Run(fmt.Sprintf("%s (%s)", title, status), wrapped)
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

func migratedTables() map[string]any {
	return map[string]any{
		"users":                 &domain.User{},
		"verification_codes":    &domain.VerificationCode{},
		"password_reset_tokens": &domain.PasswordResetToken{},
	}
}

func tableReport(db *gorm.DB) []string {
	report := make([]string, 0, 3)
	for name, model := range migratedTables() {
		state := "missing"
		if db.Migrator().HasTable(model) {
			state = "present"
		}
		report = append(report, fmt.Sprintf("%s: %s", name, state))
	}
	return report
}
