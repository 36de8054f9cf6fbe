package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/go-membergate/membergate/internal/auth"
	"github.com/go-membergate/membergate/internal/config"
	"github.com/go-membergate/membergate/internal/daemon"
	"github.com/go-membergate/membergate/internal/db/models"
	"github.com/go-membergate/membergate/internal/logger"
)

func init() { //nolint: gochecknoinits
	userAddCmd.Flags().StringVar(&userPassword, "password", "",
		"Initial password, the member must change it at the first sign in")
	userAddCmd.Flags().StringVar(&userFirstName, "first-name", "", "First name")
	userAddCmd.Flags().StringVar(&userLastName, "last-name", "", "Last name")

	userPasswdCmd.Flags().StringVar(&userPassword, "password", "",
		"New password, the member must change it at the next sign in")

	userTOTPCmd.Flags().BoolVar(&totpDisable, "disable", false, "Remove the member's second factor")

	userCmd.AddCommand(
		userAddCmd,
		userPasswdCmd,
		userExpireCmd,
		userTOTPCmd,
		userListCmd,
		userDelCmd,
	)

	rootCmd.AddCommand(userCmd)
}

var (
	userPassword  string
	userFirstName string
	userLastName  string
	totpDisable   bool

	userCmd = &cobra.Command{
		Use:   "user",
		Short: "Manage local member accounts",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if cfg, err = config.ReadConfig(configPath); err != nil {
				panic(err)
			}

			if err = logger.Init(cfg.Log); err != nil {
				panic(err)
			}
		},
	}

	userAddCmd = &cobra.Command{
		Use:   "add <username> <email>",
		Short: "Create a local member account",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			if userPassword == "" {
				return errors.New("--password is required")
			}

			members, err := openMembers()
			if err != nil {
				return err
			}

			user, err := members.CreateUser(args[0], args[1], userPassword, userFirstName, userLastName)
			if err != nil {
				return err
			}

			// the initial password is known to whoever ran this command
			if err := members.ExpirePassword(user.ID); err != nil {
				return err
			}

			fmt.Printf("created member %s (id %d), the password must be changed at the first sign in\n",
				user.Username, user.ID)

			return nil
		},
	}

	userPasswdCmd = &cobra.Command{
		Use:   "passwd <username>",
		Short: "Reset a member's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if userPassword == "" {
				return errors.New("--password is required")
			}

			members, err := openMembers()
			if err != nil {
				return err
			}

			user, err := resolveMember(members, args[0])
			if err != nil {
				return err
			}

			if err := members.ResetPassword(user.ID, userPassword); err != nil {
				return err
			}

			fmt.Printf("reset password for %s, it must be changed at the next sign in\n", user.Username)

			return nil
		},
	}

	userExpireCmd = &cobra.Command{
		Use:   "expire <username>",
		Short: "Force a password change at the member's next sign in",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			members, err := openMembers()
			if err != nil {
				return err
			}

			user, err := resolveMember(members, args[0])
			if err != nil {
				return err
			}

			if err := members.ExpirePassword(user.ID); err != nil {
				return err
			}

			fmt.Printf("password of %s expires at the next sign in\n", user.Username)

			return nil
		},
	}

	userTOTPCmd = &cobra.Command{
		Use:   "totp <username>",
		Short: "Enroll or remove a member's second factor",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			members, err := openMembers()
			if err != nil {
				return err
			}

			user, err := resolveMember(members, args[0])
			if err != nil {
				return err
			}

			if totpDisable {
				if err := members.DisableTOTP(user.ID); err != nil {
					return err
				}

				fmt.Printf("removed second factor of %s\n", user.Username)

				return nil
			}

			key, err := members.EnrollTOTP(user.ID)
			if err != nil {
				return err
			}

			fmt.Printf("enrolled second factor for %s\nsecret: %s\nenrollment url: %s\n",
				user.Username, key.Secret(), key.String())

			return nil
		},
	}

	userListCmd = &cobra.Command{
		Use:   "list",
		Short: "List member accounts",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			members, err := openMembers()
			if err != nil {
				return err
			}

			users, total, err := members.ListUsers("", nil, listPageSize, 0)
			if err != nil {
				return err
			}

			fmt.Printf("%-6s %-24s %-32s %-8s %-8s %-4s\n",
				"ID", "USERNAME", "EMAIL", "SOURCE", "ACTIVE", "2FA")

			for _, u := range users {
				twoFA := "no"
				if u.TOTPSecret != "" {
					twoFA = "yes"
				}

				fmt.Printf("%-6d %-24s %-32s %-8s %-8t %-4s\n",
					u.ID, u.Username, u.Email, u.AuthSource, u.Active, twoFA)
			}

			if int(total) > listPageSize {
				fmt.Printf("showing %d of %d accounts\n", listPageSize, total)
			}

			return nil
		},
	}

	userDelCmd = &cobra.Command{
		Use:   "del <username>",
		Short: "Delete a member account",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			members, err := openMembers()
			if err != nil {
				return err
			}

			user, err := resolveMember(members, args[0])
			if err != nil {
				return err
			}

			if err := members.DeleteUser(user.ID); err != nil {
				return err
			}

			fmt.Printf("deleted member %s\n", user.Username)

			return nil
		},
	}
)

const listPageSize = 500

// openMembers connects to the database and returns the local account
// provider the user commands operate through.
func openMembers() (*auth.LocalProvider, error) {
	db, err := daemon.OpenDatabase(&cfg)
	if err != nil {
		return nil, err
	}

	if err := daemon.Migrate(db); err != nil {
		return nil, err
	}

	return auth.NewLocalProvider(db), nil
}

func resolveMember(members *auth.LocalProvider, username string) (*models.User, error) {
	user, err := members.GetUserByUsername(username)

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("no member named %q", username)
	case err != nil:
		return nil, err
	}

	return user, nil
}
