/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/baymax-health/apiserver/internal/client"
	"github.com/spf13/cobra"
)

var (
	profileFirstName string
	profileLastName  string
	profilePhone     string
	profilePassword  bool
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Edit your name, phone or password, only the given flags are updated",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(s client.Session, api *client.Client) error {
			user, err := api.Me(cmd.Context())
			if err != nil {
				return err
			}

			req := client.ProfileRequest{
				FirstName: user.FirstName,
				LastName:  user.LastName,
				Phone:     user.Phone,
			}
			flags := cmd.Flags()
			if flags.Changed("first-name") {
				req.FirstName = profileFirstName
			}
			if flags.Changed("last-name") {
				req.LastName = profileLastName
			}
			if flags.Changed("phone") {
				req.Phone = profilePhone
			}
			if profilePassword {
				reader := bufio.NewReader(cmd.InOrStdin())
				if req.Password, err = promptPassword(cmd, reader, "New password"); err != nil {
					return err
				}
				if req.ConfirmPassword, err = promptPassword(cmd, reader, "Confirm password"); err != nil {
					return err
				}
			}

			updated, err := api.UpdateProfile(cmd.Context(), req)
			if err != nil {
				return err
			}

			path, err := resolveSessionPath()
			if err != nil {
				return err
			}
			s.Name = strings.TrimSpace(updated.FirstName + " " + updated.LastName)
			if err := s.Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated profile for %s <%s>\n", s.Name, updated.Email)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)

	profileCmd.Flags().StringVar(&profileFirstName, "first-name", "", "First name")
	profileCmd.Flags().StringVar(&profileLastName, "last-name", "", "Last name")
	profileCmd.Flags().StringVar(&profilePhone, "phone", "", "Phone number")
	profileCmd.Flags().BoolVar(&profilePassword, "password", false, "Prompt for a new password")
}
