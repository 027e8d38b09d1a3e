package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"tfgRecruit/internal/auth"
	"tfgRecruit/internal/database"
	"tfgRecruit/internal/store"
)

const oneTimePasswordLength = 20

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage reviewer accounts",
}

var (
	userName string
	userRole string
)

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a reviewer account with a one-time password",
	Long:  "Create a reviewer account. The generated password is printed once and must be changed at first login.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		return createUser(cmd.Context(), st, cmd.OutOrStdout(), userName, userRole)
	},
}

func init() {
	userCreateCmd.Flags().StringVar(&userName, "username", "", "login name (required)")
	userCreateCmd.Flags().StringVar(&userRole, "role", database.UserRoleRecruiter, "account role: admin or recruiter")
	_ = userCreateCmd.MarkFlagRequired("username")

	userCmd.AddCommand(userCreateCmd)
	rootCmd.AddCommand(userCmd)
}

type userStore interface {
	UserByUsername(ctx context.Context, username string) (*database.User, error)
	CreateUser(ctx context.Context, user *database.User) error
}

// createUser stores a new account and prints its one-time password.
// Usernames are stored lowercased because login lowercases them.
func createUser(ctx context.Context, users userStore, out io.Writer, username, role string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return errors.New("username is required")
	}
	if role != database.UserRoleAdmin && role != database.UserRoleRecruiter {
		return fmt.Errorf("unknown role %q", role)
	}

	switch _, err := users.UserByUsername(ctx, username); {
	case err == nil:
		return fmt.Errorf("user %q already exists", username)
	case errors.Is(err, store.ErrNotFound):
	default:
		return fmt.Errorf("query user: %w", err)
	}

	password, err := auth.GeneratePassword(oneTimePasswordLength)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := &database.User{
		Username:           username,
		Role:               role,
		PasswordHash:       hash,
		MustChangePassword: true,
	}
	if err := users.CreateUser(ctx, user); err != nil {
		return err
	}

	fmt.Fprintf(out, "created %s account (password change required at first login)\n", role)
	fmt.Fprintf(out, "username: %s\n", username)
	fmt.Fprintf(out, "password: %s\n", password)
	fmt.Fprintln(out, "this password is shown only once")
	return nil
}
