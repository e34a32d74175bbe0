/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/baymax-health/apiserver/internal/client"
	"github.com/spf13/cobra"
)

var (
	contactName  string
	contactType  string
	contactPhone string
)

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "List your doctors and pharmacies",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(_ client.Session, api *client.Client) error {
			contacts, err := api.Contacts(cmd.Context())
			if err != nil {
				return err
			}
			if len(contacts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No contacts yet.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tTYPE\tPHONE")
			for _, c := range contacts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Type, c.Phone)
			}
			return tw.Flush()
		})
	},
}

var contactsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a doctor or pharmacy",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(_ client.Session, api *client.Client) error {
			c, err := api.CreateContact(cmd.Context(), client.ContactRequest{
				Name:  contactName,
				Type:  contactType,
				Phone: contactPhone,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s (%s)\n", c.Type, c.Name, c.ID)
			return nil
		})
	},
}

var contactsRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a contact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(_ client.Session, api *client.Client) error {
			if err := api.DeleteContact(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Contact deleted successfully")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(contactsCmd)
	contactsCmd.AddCommand(contactsAddCmd, contactsRmCmd)

	contactsAddCmd.Flags().StringVar(&contactName, "name", "", "Contact name")
	contactsAddCmd.Flags().StringVar(&contactType, "type", "doctor", "doctor or pharmacy")
	contactsAddCmd.Flags().StringVar(&contactPhone, "phone", "", "Phone number")
	_ = contactsAddCmd.MarkFlagRequired("name")
	_ = contactsAddCmd.MarkFlagRequired("phone")
}
