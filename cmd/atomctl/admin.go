package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"atomvideo/internal/models"
	"atomvideo/internal/repository"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newAdminCmd(conn func() *gorm.DB) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Grant, revoke and list admin accounts",
	}

	setRole := func(role models.Role) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			repo := repository.NewUserRepository(conn())
			return changeRole(cmd.Context(), cmd.OutOrStdout(), repo, args[0], role)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "promote <user id or email>",
		Short: "Make a user an admin",
		Args:  cobra.ExactArgs(1),
		RunE:  setRole(models.RoleAdmin),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "demote <user id or email>",
		Short: "Return an admin to the user role",
		Args:  cobra.ExactArgs(1),
		RunE:  setRole(models.RoleUser),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List admin accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := repository.NewUserRepository(conn())
			return listAdmins(cmd.Context(), cmd.OutOrStdout(), repo)
		},
	})

	return cmd
}

// findUser accepts a numeric id or an email address.
func findUser(ctx context.Context, repo repository.UserRepository, ref string) (*models.User, error) {
	if id, err := strconv.ParseUint(ref, 10, 32); err == nil {
		return repo.GetByID(ctx, uint(id))
	}
	user, err := repo.GetByEmail(ctx, ref)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User")
	}
	return user, nil
}

func changeRole(ctx context.Context, w io.Writer, repo repository.UserRepository, ref string, role models.Role) error {
	user, err := findUser(ctx, repo, ref)
	if err != nil {
		return fmt.Errorf("%s: %w", ref, err)
	}
	if user.Role == role {
		fmt.Fprintf(w, "%s (ID: %d) already has role %s\n", user.Username, user.ID, role)
		return nil
	}
	if err := repo.UpdateRole(ctx, user.ID, role); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s (ID: %d) is now %s\n", user.Username, user.ID, role)
	return nil
}

func listAdmins(ctx context.Context, w io.Writer, repo repository.UserRepository) error {
	admins, err := repo.ListByRole(ctx, models.RoleAdmin)
	if err != nil {
		return err
	}
	if len(admins) == 0 {
		fmt.Fprintln(w, "no admins")
		return nil
	}
	for _, u := range admins {
		fmt.Fprintf(w, "%d\t%s\t%s\n", u.ID, u.Username, u.Email)
	}
	return nil
}
