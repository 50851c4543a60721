package main

import (
	"github.com/spf13/cobra"

	"github.com/opsmind/auth/internal/service"
	"github.com/opsmind/auth/pkg/db"
)

func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := bootstrap()
			if err != nil {
				return err
			}
			gdb, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close(gdb)

			cmd.Println("Migrations completed successfully")
			return nil
		},
	}
}

func NewSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the roles, the administrator account and the default buildings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			gdb, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close(gdb)

			if err := newRepo(gdb, cfg).Seed(cmd.Context(), seedAdmin(cfg), log); err != nil {
				return err
			}
			cmd.Println("Seed completed successfully")
			return nil
		},
	}
}

func NewPurgeOTPsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge-otps",
		Short: "Delete used and expired OTP challenges once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			gdb, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close(gdb)

			sweeper := &service.Sweeper{Store: newRepo(gdb, cfg), Log: log.With("svc", "otp_sweeper")}
			n, err := sweeper.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("Deleted %d OTP challenges\n", n)
			return nil
		},
	}
}
