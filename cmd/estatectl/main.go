// Package main provides estatectl, the operator CLI for the listing backend.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"estate_api/internal/adapters/observability"
)

// configFile is set by the --config flag.
var configFile string

// env is the store and services opened by PersistentPreRunE.
var env *stack

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "estatectl",
	Short:         "estatectl manages the listing database",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v, err := loadConfig(configFile, cmd.Flags())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		log.Logger = observability.NewLogger(v.GetString(keyAppEnv))
		env, err = openStack(cmd.Context(), v)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if env != nil {
			return env.Close()
		}
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file (default: ./estatectl.yaml)")
	pf.String("db-driver", "", "database driver: sqlite or mysql (env DB_DRIVER)")
	pf.String("db-dsn", "", "database DSN (env DB_DSN)")
	pf.String("redis-addr", "", "redis address for cache invalidation (env REDIS_ADDR)")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(createAdminCmd)
	rootCmd.AddCommand(seedAmenitiesCmd)
	rootCmd.AddCommand(importCmd)
}
