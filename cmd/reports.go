/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/baymax-health/apiserver/internal/client"
	"github.com/baymax-health/apiserver/types"
	"github.com/spf13/cobra"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List your stored adherence reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(_ client.Session, api *client.Client) error {
			ids, err := api.Reports(cmd.Context())
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No reports yet. Create one with `baymax reports new`.")
				return nil
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		})
	},
}

var reportsNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Snapshot an adherence report of every medicine",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(_ client.Session, api *client.Client) error {
			key, report, err := api.CreateReport(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored report %s at %s\n", report.ID, key)
			return renderReport(cmd.OutOrStdout(), report)
		})
	},
}

var reportsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a stored report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(_ client.Session, api *client.Client) error {
			report, err := api.Report(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return renderReport(cmd.OutOrStdout(), report)
		})
	},
}

var reportsRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a stored report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(_ client.Session, api *client.Client) error {
			if err := api.DeleteReport(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted report %s\n", args[0])
			return nil
		})
	},
}

func renderReport(w io.Writer, report types.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Generated %s\n", report.GeneratedAt.Format(time.RFC1123))
	fmt.Fprintln(tw, "NAME\tDOSE\tLEFT\tDAYS LOGGED\tTAKEN\tPROGRESS")
	for _, m := range report.Medicines {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d/%d\t%.0f%%\n",
			m.Name, m.Dose, m.Quantity, m.DaysLogged,
			m.Progress.PillsConsumed, m.Progress.TotalPillsNeeded, m.Progress.ProgressPercentage)
	}
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(reportsCmd)
	reportsCmd.AddCommand(reportsNewCmd, reportsShowCmd, reportsRmCmd)
}
