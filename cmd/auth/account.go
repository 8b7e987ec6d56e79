package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/kubarr/internal/auth/app"
	"github.com/aussiebroadwan/kubarr/internal/auth/domain"
	"github.com/aussiebroadwan/kubarr/internal/auth/service"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Account administration",
}

var (
	accountEmail    string
	accountPassword string
	accountRoles    []string
)

var accountCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Create an account",
	Long:  "Create an active account. Without --password the password is read from the first line of stdin.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password := accountPassword
		if password == "" {
			var err error
			if password, err = readPassword(cmd); err != nil {
				return err
			}
		}

		return withAdmin(func(a *app.Admin) error {
			acct, err := a.Accounts.CreateAccount(cmd.Context(), service.AccountInput{
				Username: args[0],
				Email:    accountEmail,
				Password: password,
				Roles:    accountRoles,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created account %s (%s)\n", acct.Username, acct.ID)
			return nil
		})
	},
}

var accountUnlockCmd = &cobra.Command{
	Use:   "unlock <username|email|id>",
	Short: "Clear the login lockout of an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdmin(func(a *app.Admin) error {
			id, err := a.Accounts.ResolveAccountID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := a.Credentials.ClearLockout(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "unlocked %s\n", id)
			return nil
		})
	},
}

var roleCmd = &cobra.Command{
	Use:   "role",
	Short: "Role administration",
}

var (
	rolePermissions []string
	roleApps        []string
	roleRequire2FA  bool
	roleDescription string
)

var roleCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a role",
	Example: `  kubarr-auth role create admin --permission oauth.clients.manage --permission users.manage --require-2fa
  kubarr-auth role create family --app sonarr --app radarr`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdmin(func(a *app.Admin) error {
			role, err := a.Accounts.CreateRole(cmd.Context(), domain.Role{
				Name:              args[0],
				Description:       roleDescription,
				RequiresTwoFactor: roleRequire2FA,
				Permissions:       rolePermissions,
				AppGrants:         roleApps,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created role %s (%s)\n", role.Name, role.ID)
			return nil
		})
	},
}

var roleGrantCmd = &cobra.Command{
	Use:   "grant <username|email> <role>",
	Short: "Assign a role to an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdmin(func(a *app.Admin) error {
			if err := a.Accounts.GrantRole(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "granted %s to %s\n", args[1], args[0])
			return nil
		})
	},
}

func init() {
	accountCreateCmd.Flags().StringVar(&accountEmail, "email", "", "email address")
	accountCreateCmd.Flags().StringVar(&accountPassword, "password", "", "password (visible in the process list, prefer stdin)")
	accountCreateCmd.Flags().StringSliceVar(&accountRoles, "role", nil, "role to assign (repeatable)")
	accountCmd.AddCommand(accountCreateCmd, accountUnlockCmd)

	roleCreateCmd.Flags().StringVar(&roleDescription, "description", "", "role description")
	roleCreateCmd.Flags().StringSliceVar(&rolePermissions, "permission", nil, "permission to grant (repeatable)")
	roleCreateCmd.Flags().StringSliceVar(&roleApps, "app", nil, "application to grant access to (repeatable)")
	roleCreateCmd.Flags().BoolVar(&roleRequire2FA, "require-2fa", false, "members must use two-factor authentication")
	roleCmd.AddCommand(roleCreateCmd, roleGrantCmd)
}

func readPassword(cmd *cobra.Command) (string, error) {
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.New("password must be given on stdin")
	}
	return strings.TrimRight(line, "\r\n"), nil
}
