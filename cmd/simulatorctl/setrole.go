package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/marketing-simulator/internal/config"
	"github.com/magabrotheeeer/marketing-simulator/internal/lib/sl"
	"github.com/magabrotheeeer/marketing-simulator/internal/models"
	"github.com/magabrotheeeer/marketing-simulator/internal/security"
	"github.com/magabrotheeeer/marketing-simulator/internal/storage/repository"
)

var setRoleCmd = &cobra.Command{
	Use:   "set-role",
	Short: "Assign a role to the user with the given email",
	Long:  "Assign a role directly in the database. Used to bootstrap the first administrator.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		email := mustString(cmd, "email")
		role := models.Role(mustString(cmd, "role"))
		if !role.Valid() {
			return fmt.Errorf("%w: %q", models.ErrInvalidRole, role)
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := sl.New(cfg.Env)

		db, err := repository.New(cmd.Context(), cfg.Database.DSN())
		if err != nil {
			return err
		}
		defer db.Close()

		user, err := db.GetUserByEmail(cmd.Context(), email)
		if err != nil {
			return err
		}
		updated, err := db.SetRole(cmd.Context(), user.ID, role)
		if err != nil {
			return err
		}

		security.New(logger).Log(cmd.Context(), security.Event{
			Kind:   security.KindAdminAction,
			UserID: updated.ID,
			Email:  updated.Email,
			Details: map[string]any{
				"action":   "set_role",
				"old_role": string(user.Role),
				"new_role": string(updated.Role),
				"source":   "simulatorctl",
			},
		})
		cmd.Printf("user %d (%s): %s -> %s\n", updated.ID, updated.Email, user.Role, updated.Role)
		return nil
	},
}

func mustString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

func init() {
	setRoleCmd.Flags().String("email", "", "user email")
	setRoleCmd.Flags().String("role", "", "role: user, premium_user or admin")
	_ = setRoleCmd.MarkFlagRequired("email")
	_ = setRoleCmd.MarkFlagRequired("role")
}
