package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"resumebuilder/internal/session"
)

var (
	signupName   string
	signupEmail  string
	signupSecret string
	loginEmail   string
	loginSecret  string
)

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and sign in",
	RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, _ []string, e *env) error {
		account, err := e.sessions.Signup(ctx, session.SignupInput{Name: signupName, Email: signupEmail, Secret: signupSecret})
		if err != nil {
			return fmt.Errorf("signup: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (%s)\n", account.Email, account.ID)
		return nil
	}),
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to an existing account",
	RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, _ []string, e *env) error {
		account, err := e.sessions.Login(ctx, session.LoginInput{Email: loginEmail, Secret: loginSecret})
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (%s)\n", account.Email, account.ID)
		return nil
	}),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out of the current account",
	RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, _ []string, e *env) error {
		if err := e.sessions.Logout(ctx); err != nil {
			return fmt.Errorf("logout: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "signed out")
		return nil
	}),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Print the signed-in account",
	RunE: withEnv(func(_ context.Context, cmd *cobra.Command, _ []string, e *env) error {
		account, ok := e.sessions.CurrentAccount()
		if !ok {
			return fmt.Errorf("not signed in")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> %s\n", account.Name, account.Email, account.ID)
		return nil
	}),
}

func init() {
	signupCmd.Flags().StringVar(&signupName, "name", "", "Display name (required)")
	signupCmd.Flags().StringVar(&signupEmail, "email", "", "Email address (required)")
	signupCmd.Flags().StringVar(&signupSecret, "secret", "", "Password (required)")
	for _, name := range []string{"name", "email", "secret"} {
		if err := signupCmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
		}
	}

	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Email address (required)")
	loginCmd.Flags().StringVar(&loginSecret, "secret", "", "Password (required)")
	for _, name := range []string{"email", "secret"} {
		if err := loginCmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
		}
	}

	rootCmd.AddCommand(signupCmd, loginCmd, logoutCmd, whoamiCmd)
}
