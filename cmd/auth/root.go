package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/opsmind/auth/internal/config"
	"github.com/opsmind/auth/internal/hash"
	"github.com/opsmind/auth/internal/otp"
	"github.com/opsmind/auth/internal/repo"
	pkgconfig "github.com/opsmind/auth/pkg/config"
	"github.com/opsmind/auth/pkg/db"
	"github.com/opsmind/auth/pkg/logging"
)

var envFiles []string

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "auth",
		Short:        "OpsMind authentication service",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files to load before reading the environment")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())
	cmd.AddCommand(NewPurgeOTPsCmd())
	return cmd
}

// bootstrap loads the dotenv files and the configuration and builds the
// process logger.
func bootstrap() (*config.Config, *slog.Logger, error) {
	pkgconfig.LoadDotEnv(logging.New("info"), envFiles...)

	cfg, err := config.Load(nil)
	if err != nil {
		return nil, nil, err
	}
	log := logging.New(cfg.LogLevel).With("env", cfg.AppEnv)
	slog.SetDefault(log)
	return cfg, log, nil
}

func openStore(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	gdb, err := db.Open(ctx, cfg.DBDriver, cfg.DSN())
	if err != nil {
		return nil, err
	}
	if err := repo.Migrate(ctx, gdb); err != nil {
		_ = db.Close(gdb)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return gdb, nil
}

func newRepo(gdb *gorm.DB, cfg *config.Config) *repo.GormRepo {
	return repo.New(gdb, hash.New(cfg.BcryptCost), otp.NewGenerator(cfg.OTPLength, cfg.OTPWindow()))
}

func seedAdmin(cfg *config.Config) repo.SeedAdmin {
	return repo.SeedAdmin{
		Email:     cfg.SeedAdminEmail,
		Password:  cfg.SeedAdminPassword,
		FirstName: "System",
		LastName:  "Administrator",
	}
}
