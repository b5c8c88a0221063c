package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/s0up4200/reelshelf/catalog"
)

var (
	authEmail    string
	authName     string
	authPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and remember the session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		creds, err := readCredentials(cmd)
		if err != nil {
			return err
		}

		outcome, err := controller.Login(cmd.Context(), creds)
		if err != nil {
			return fail(err)
		}
		fmt.Fprintf(out, "Logged in as %s\n", creds.Email)
		logger.Debug().Str("next", outcome.Next).Msg("Login complete")
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and log in",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		creds, err := readCredentials(cmd)
		if err != nil {
			return err
		}

		name := authName
		if name == "" {
			if name, err = prompt(out, "Name: "); err != nil {
				return err
			}
		}
		confirmPassword := authPassword
		if !cmd.Flags().Changed("password") {
			if confirmPassword, err = promptPassword(out, "Confirm password: "); err != nil {
				return err
			}
		}

		_, err = controller.Register(cmd.Context(), catalog.Registration{
			Email:           creds.Email,
			Name:            name,
			Password:        creds.Password,
			ConfirmPassword: confirmPassword,
		})
		if err != nil {
			return fail(err)
		}
		fmt.Fprintf(out, "Registered and logged in as %s\n", creds.Email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the session token and cached results",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := controller.Logout(); err != nil {
			return fail(err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show whether a session is active",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if !sess.Authenticated() {
			fmt.Fprintf(out, "Not logged in to %s\n", client.BaseURL())
			return nil
		}
		fmt.Fprintf(out, "Logged in to %s\n", client.BaseURL())
		return nil
	},
}

func readCredentials(cmd *cobra.Command) (catalog.Credentials, error) {
	out := cmd.OutOrStdout()
	creds := catalog.Credentials{Email: authEmail, Password: authPassword}

	var err error
	if creds.Email == "" {
		if creds.Email, err = prompt(out, "Email: "); err != nil {
			return creds, err
		}
	}
	if !cmd.Flags().Changed("password") {
		if creds.Password, err = promptPassword(out, "Password: "); err != nil {
			return creds, err
		}
	}
	return creds, nil
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVarP(&authEmail, "email", "e", "", "account email")
		c.Flags().StringVarP(&authPassword, "password", "p", "", "account password (prompted when omitted)")
	}
	registerCmd.Flags().StringVarP(&authName, "name", "n", "", "display name")

	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)
}
