package main

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// schema is applied by PersistentPreRunE
		fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
		return nil
	},
}

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account, or promote an existing one",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		name, _ := cmd.Flags().GetString("name")
		if email == "" || password == "" {
			return errors.New("--email and --password are required")
		}
		u, created, err := env.svc.Auth.EnsureAdmin(cmd.Context(), name, email, password)
		if err != nil {
			return err
		}
		verb := "promoted"
		if created {
			verb = "created"
		}
		log.Info().Int64("id", u.ID).Str("email", u.Email).Bool("created", created).Msg("admin ready")
		fmt.Fprintf(cmd.OutOrStdout(), "%s admin %s (id %d)\n", verb, u.Email, u.ID)
		return nil
	},
}

var seedAmenitiesCmd = &cobra.Command{
	Use:   "seed-amenities",
	Short: "Insert the default amenity catalogue",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := env.svc.Amenities.Seed(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d amenities\n", n)
		return nil
	},
}

func init() {
	createAdminCmd.Flags().String("email", "", "admin email")
	createAdminCmd.Flags().String("password", "", "admin password (min 8 characters)")
	createAdminCmd.Flags().String("name", "Administrator", "display name")
}
