/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"fmt"
	"log/slog"
	"strings"

	"github.com/baymax-health/apiserver/internal/client"
	"github.com/spf13/cobra"
)

var (
	signupFirstName string
	signupLastName  string
	signupEmail     string
	signupPhone     string
	loginEmail      string
)

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and log in",
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := bufio.NewReader(cmd.InOrStdin())
		var err error
		if signupEmail == "" {
			if signupEmail, err = promptLine(cmd, reader, "Email"); err != nil {
				return err
			}
		}
		password, err := promptPassword(cmd, reader, "Password")
		if err != nil {
			return err
		}
		confirm, err := promptPassword(cmd, reader, "Confirm password")
		if err != nil {
			return err
		}

		base := resolveAPIURL(client.Session{})
		res, err := client.New(base, "").Signup(cmd.Context(), client.SignupRequest{
			FirstName:       signupFirstName,
			LastName:        signupLastName,
			Email:           signupEmail,
			Phone:           signupPhone,
			Password:        password,
			ConfirmPassword: confirm,
		})
		if err != nil {
			return err
		}
		return saveSession(cmd, base, res)
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and remember the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := bufio.NewReader(cmd.InOrStdin())
		var err error
		if loginEmail == "" {
			if loginEmail, err = promptLine(cmd, reader, "Email"); err != nil {
				return err
			}
		}
		password, err := promptPassword(cmd, reader, "Password")
		if err != nil {
			return err
		}

		base := resolveAPIURL(client.Session{})
		res, err := client.New(base, "").Login(cmd.Context(), loginEmail, password)
		if err != nil {
			return err
		}
		return saveSession(cmd, base, res)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the current token and forget the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveSessionPath()
		if err != nil {
			return err
		}
		s, err := client.LoadSession(path)
		if err == nil {
			s.BaseURL = resolveAPIURL(s)
			if err := s.Client().Logout(cmd.Context()); err != nil {
				slog.WarnContext(cmd.Context(), "Server-side logout failed", slog.Any("err", err))
			}
		}
		if err := client.ClearSession(path); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(s client.Session, api *client.Client) error {
			user, err := api.Me(cmd.Context())
			if err != nil {
				return err
			}
			name := strings.TrimSpace(user.FirstName + " " + user.LastName)
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\n", name, user.Email)
			fmt.Fprintf(cmd.OutOrStdout(), "id: %s\napi: %s\n", user.ID, s.BaseURL)
			return nil
		})
	},
}

func saveSession(cmd *cobra.Command, base string, res client.AuthResult) error {
	path, err := resolveSessionPath()
	if err != nil {
		return err
	}
	s := client.Session{
		BaseURL: base,
		Token:   res.Token,
		UserID:  res.User.ID,
		Email:   res.User.Email,
		Name:    strings.TrimSpace(res.User.FirstName + " " + res.User.LastName),
	}
	if err := s.Save(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", res.User.Email)
	return nil
}

func init() {
	rootCmd.AddCommand(signupCmd, loginCmd, logoutCmd, whoamiCmd)

	signupCmd.Flags().StringVar(&signupFirstName, "first-name", "", "First name")
	signupCmd.Flags().StringVar(&signupLastName, "last-name", "", "Last name")
	signupCmd.Flags().StringVar(&signupEmail, "email", "", "E-mail address")
	signupCmd.Flags().StringVar(&signupPhone, "phone", "", "Phone number")
	_ = signupCmd.MarkFlagRequired("first-name")
	_ = signupCmd.MarkFlagRequired("last-name")

	loginCmd.Flags().StringVar(&loginEmail, "email", "", "E-mail address")
}
