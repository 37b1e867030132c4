package cmd

import (
	"fmt"

	"example.com/backstage/services/laundry/config"
	"example.com/backstage/services/laundry/internal/auth"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login <token>",
	Short: "Store a bearer token for the client commands",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := openSession()
		if err != nil {
			return err
		}

		identity, err := session.Login(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", describeIdentity(identity))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored bearer token",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := openSession()
		if err != nil {
			return err
		}
		if err := session.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := openSession()
		if err != nil {
			return err
		}

		identity, ok := session.Identity()
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), describeIdentity(identity))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}

func openSession() (*auth.Session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return sessionFor(cfg.Client)
}

func sessionFor(cfg config.ClientConfig) (*auth.Session, error) {
	return auth.NewSession(auth.NewFileTokenStore(cfg.TokenFile))
}

func describeIdentity(identity auth.Identity) string {
	s := string(identity.Role)
	if identity.Name != "" {
		s += " " + identity.Name
	}
	if identity.PhoneNumber != "" {
		s += " (" + identity.PhoneNumber + ")"
	}
	return s
}
