// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

// configPath is the directory holding main.toml, empty means ./etc/.
var configPath string //nolint: gochecknoglobals

var rootCmd = &cobra.Command{ //nolint: gochecknoglobals
	Use:   "membergate",
	Short: "MemberGate is the sign in front door of the member area",
	Long: `MemberGate guards the member area of the site. It signs members in
against the local database, an LDAP directory or an OpenID Connect
provider, issues their sessions and decides where each member lands
after signing in.`,
	Args: cobra.OnlyValidArgs,
}

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVar(
		&configPath,
		"config",
		"",
		`Path to the configuration directory (default "./etc/")`,
	)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
