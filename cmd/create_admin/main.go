package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"rajhholding/internal/config"
	"rajhholding/internal/identity"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "create_admin",
		Short: "Create the dashboard admin account in Supabase Auth",
		Long: "create_admin provisions a confirmed user through the Supabase admin API.\n" +
			"SUPABASE_URL, SUPABASE_ANON_KEY and SUPABASE_SERVICE_ROLE_KEY are read from the environment or .env.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			return createAdmin(ctx, email, password)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin e-mail address")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func createAdmin(ctx context.Context, email, password string) error {
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "create_admin"})

	_ = godotenv.Load()
	cfg, err := env.ParseAs[config.SupabaseConfig]()
	if err != nil {
		logger.Error("Failed to load config", "err", err)
		return err
	}

	client, err := identity.New(&cfg)
	if err != nil {
		logger.Error("Invalid Supabase configuration", "err", err)
		return err
	}

	user, err := client.CreateUser(ctx, email, password)
	if err != nil {
		var providerErr *identity.Error
		if errors.As(err, &providerErr) && providerErr.Status == 422 {
			logger.Warn("Admin user already exists", "email", email)
			return nil
		}
		logger.Error("Failed to create admin user", "email", email, "err", err)
		return err
	}

	logger.Info("Admin user created", "email", user.Email, "id", user.ID, "host", client.Host())
	return nil
}
