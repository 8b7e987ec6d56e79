package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/kubarr/internal/auth/app"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kubarr-auth",
	Short: "Kubarr authentication service",
	Long: `Single sign-on for the media stack.

Without a subcommand the HTTP server starts. The account, role and client
commands administer the database directly and need no running server.
Configuration comes from the environment and an optional .env file.`,
	Version:       app.BuildVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, accountCmd, roleCmd, clientCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// withAdmin opens the database for one administrative command.
func withAdmin(fn func(a *app.Admin) error) error {
	a, err := app.OpenAdmin(app.LoadConfig())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
