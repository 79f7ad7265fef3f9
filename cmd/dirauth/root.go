package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var (
	configFile string
	logFormat  string
	logLevel   string
)

// NewRootCmd creates the root command for the dirauth CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dirauth",
		Short: "dirauth - directory username/password authentication",
		Long: `dirauth authenticates usernames and passwords against an LDAP
directory using search-then-bind: the username is resolved to a
distinguished name first, then proven with a bind as that DN.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: json or text")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	cmd.AddCommand(newCheckCmd())

	return cmd
}
