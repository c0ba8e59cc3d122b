package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"fileshare/internal/app"
	"fileshare/internal/models"
	"fileshare/internal/permissions"

	"github.com/spf13/cobra"
)

var (
	flagEmail    string
	flagName     string
	flagPassword string
	flagLimit    int
	flagOffset   int
)

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printUsers(w io.Writer, users []models.User) error {
	if flagJSON {
		return printJSON(w, users)
	}
	if len(users) == 0 {
		fmt.Fprintln(w, "No users found.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tROLE\tVERIFIED\tACTIVE")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\t%t\n", u.ID, u.Email, u.Name, u.Role, u.IsVerified, u.IsActive)
	}
	return tw.Flush()
}

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create a verified administrator account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			user, err := a.Identity.CreateAdmin(cmd.Context(), flagEmail, flagName, flagPassword)
			if err != nil {
				return fmt.Errorf("creating admin: %w", err)
			}
			return printUsers(cmd.OutOrStdout(), []models.User{*user})
		})
	},
}

var listUsersCmd = &cobra.Command{
	Use:   "list-users",
	Short: "List accounts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			users, err := a.Identity.List(cmd.Context(), flagLimit, flagOffset)
			if err != nil {
				return fmt.Errorf("listing users: %w", err)
			}
			return printUsers(cmd.OutOrStdout(), users)
		})
	},
}

var verifyUserCmd = &cobra.Command{
	Use:   "verify-user <email>",
	Short: "Mark an account's email as confirmed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			user, err := a.Identity.Verify(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("verifying %s: %w", args[0], err)
			}
			return printUsers(cmd.OutOrStdout(), []models.User{*user})
		})
	},
}

var changeRoleCmd = &cobra.Command{
	Use:   "change-role <email> <role>",
	Short: "Assign one of admin, manager, user, guest",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := permissions.ParseRole(args[1])
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(a *app.App) error {
			user, err := a.Identity.GetByEmail(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("looking up %s: %w", args[0], err)
			}
			if err := a.Identity.SetRole(cmd.Context(), user.ID, role); err != nil {
				return fmt.Errorf("changing role: %w", err)
			}
			user.Role = role
			return printUsers(cmd.OutOrStdout(), []models.User{*user})
		})
	},
}

var setActiveCmd = &cobra.Command{
	Use:   "set-active <email> <true|false>",
	Short: "Enable or disable an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var active bool
		switch args[1] {
		case "true", "yes", "1":
			active = true
		case "false", "no", "0":
		default:
			return fmt.Errorf("expected true or false, got %q", args[1])
		}
		return withApp(cmd.Context(), func(a *app.App) error {
			user, err := a.Identity.GetByEmail(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("looking up %s: %w", args[0], err)
			}
			if active {
				err = a.Identity.Reactivate(cmd.Context(), user.ID)
			} else {
				err = a.Identity.Deactivate(cmd.Context(), user.ID)
			}
			if err != nil {
				return err
			}
			user.IsActive = active
			return printUsers(cmd.OutOrStdout(), []models.User{*user})
		})
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&flagEmail, "email", "", "Administrator email")
	createAdminCmd.Flags().StringVar(&flagName, "name", "", "Display name (default: Administrator)")
	createAdminCmd.Flags().StringVar(&flagPassword, "password", "", "Initial password")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")

	listUsersCmd.Flags().IntVar(&flagLimit, "limit", 100, "Maximum number of users")
	listUsersCmd.Flags().IntVar(&flagOffset, "offset", 0, "Number of users to skip")

	rootCmd.AddCommand(createAdminCmd, listUsersCmd, verifyUserCmd, changeRoleCmd, setActiveCmd)
}
