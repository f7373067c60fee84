package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MichelMeloG/JurChat/model"
	"github.com/MichelMeloG/JurChat/service"
)

var (
	registerUsername string
	registerEmail    string
)

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Log in and remember the session",
	Long: `Checks the credentials with the analysis workflow and stores the session in
the system keyring. Credentials are hashed before they leave this machine.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and log in",
	Args:  cobra.NoArgs,
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func init() {
	registerCmd.Flags().StringVarP(&registerUsername, "username", "u", "", "account name")
	registerCmd.Flags().StringVarP(&registerEmail, "email", "e", "", "account email")

	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	p := newPrompter(cmd)

	var given string
	if len(args) == 1 {
		given = args[0]
	}
	username, err := p.required("Username: ", given)
	if err != nil {
		return err
	}
	password, err := p.password("Password: ")
	if err != nil {
		return err
	}

	creds := service.HashCredentials(username, "", password)
	ok, err := backend.Authenticate(cmd.Context(), creds.UserHash, creds.PasswordHash)
	if err != nil {
		return fmt.Errorf("login failed, try again: %w", err)
	}
	if !ok {
		return errors.New("invalid credentials")
	}

	if err := saveSession(model.Session{Username: username, UserHash: creds.UserHash}); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", username)
	return nil
}

func runRegister(cmd *cobra.Command, _ []string) error {
	p := newPrompter(cmd)

	username, err := p.required("Username: ", registerUsername)
	if err != nil {
		return err
	}
	email, err := p.required("Email: ", registerEmail)
	if err != nil {
		return err
	}
	password, err := p.password("Password: ")
	if err != nil {
		return err
	}

	creds := service.HashCredentials(username, email, password)
	ok, err := backend.Register(cmd.Context(), creds.UserHash, creds.EmailHash, creds.PasswordHash)
	if err != nil {
		return fmt.Errorf("registration failed, try again: %w", err)
	}
	if !ok {
		return errors.New("registration was not accepted")
	}

	if err := saveSession(model.Session{Username: username, UserHash: creds.UserHash}); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Account created, logged in as %s\n", username)
	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	existed, err := clearSession()
	if err != nil {
		return err
	}
	if !existed {
		fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
	return nil
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	session, err := loadSession()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), session.Username)
	return nil
}
