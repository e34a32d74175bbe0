/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/baymax-health/apiserver/internal/client"
	"github.com/baymax-health/apiserver/types"
	"github.com/spf13/cobra"
)

var (
	medName         string
	medDose         string
	medProgram      int
	medQuantity     int
	medFoodRelation string
	medMorning      int
	medNoon         int
	medNight        int
	takeCount       int

	editName         string
	editDose         string
	editProgram      int
	editQuantity     int
	editFoodRelation string
	editMorning      int
	editNoon         int
	editNight        int
)

var medsCmd = &cobra.Command{
	Use:   "meds",
	Short: "List your medicines and their progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(_ client.Session, api *client.Client) error {
			meds, err := api.Medicines(cmd.Context())
			if err != nil {
				return err
			}
			if len(meds) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No medicines yet. Add one with `baymax meds add`.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tDOSE\tSCHEDULE\tLEFT\tPROGRESS\tDAYS TO GO")
			for _, m := range meds {
				d := m.DailyDosage
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d-%d-%d\t%d\t%.0f%%\t%d\n",
					m.ID, m.Name, m.Dose, d.Morning, d.Noon, d.Night, m.Quantity,
					m.Progress.ProgressPercentage, m.Progress.DaysRemaining)
			}
			return tw.Flush()
		})
	},
}

var medsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a medicine",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(_ client.Session, api *client.Client) error {
			m, err := api.CreateMedicine(cmd.Context(), client.MedicineRequest{
				Name:         medName,
				Dose:         medDose,
				Program:      medProgram,
				Quantity:     medQuantity,
				FoodRelation: medFoodRelation,
				DailyDosage:  types.DailyDosage{Morning: medMorning, Noon: medNoon, Night: medNight},
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s), %d pills needed over %d days\n",
				m.Name, m.ID, m.Progress.TotalPillsNeeded, m.Program)
			return nil
		})
	},
}

var medsEditCmd = &cobra.Command{
	Use:   "edit <medicine>",
	Short: "Change a medicine's regimen, only the given flags are updated",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(_ client.Session, api *client.Client) error {
			board := client.NewBoard(api, nil)
			if err := board.Refresh(cmd.Context()); err != nil {
				return err
			}
			m, err := board.Resolve(args[0])
			if err != nil {
				return err
			}

			req := client.MedicineRequest{
				Name:         m.Name,
				Dose:         m.Dose,
				Program:      m.Program,
				Quantity:     m.Quantity,
				FoodRelation: string(m.FoodRelation),
				DailyDosage:  m.DailyDosage,
			}
			flags := cmd.Flags()
			if flags.Changed("name") {
				req.Name = editName
			}
			if flags.Changed("dose") {
				req.Dose = editDose
			}
			if flags.Changed("days") {
				req.Program = editProgram
			}
			if flags.Changed("quantity") {
				req.Quantity = editQuantity
			}
			if flags.Changed("food") {
				req.FoodRelation = editFoodRelation
			}
			if flags.Changed("morning") {
				req.DailyDosage.Morning = editMorning
			}
			if flags.Changed("noon") {
				req.DailyDosage.Noon = editNoon
			}
			if flags.Changed("night") {
				req.DailyDosage.Night = editNight
			}

			updated, err := api.UpdateMedicine(cmd.Context(), m.ID, req)
			if err != nil {
				return err
			}
			d := updated.DailyDosage
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s: %d-%d-%d for %d days, %d pills left\n",
				updated.Name, d.Morning, d.Noon, d.Night, updated.Program, updated.Quantity)
			return nil
		})
	},
}

var medsRmCmd = &cobra.Command{
	Use:   "rm <medicine>",
	Short: "Delete a medicine by id or name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(_ client.Session, api *client.Client) error {
			board := client.NewBoard(api, nil)
			if err := board.Refresh(cmd.Context()); err != nil {
				return err
			}
			m, err := board.Resolve(args[0])
			if err != nil {
				return err
			}
			if err := api.DeleteMedicine(cmd.Context(), m.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", m.Name)
			return nil
		})
	},
}

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show today's doses grouped by time of day",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(_ client.Session, api *client.Client) error {
			schedule, err := api.Today(cmd.Context())
			if err != nil {
				return err
			}
			return client.RenderSchedule(cmd.OutOrStdout(), schedule)
		})
	},
}

var takeCmd = &cobra.Command{
	Use:   "take <medicine> <morning|noon|night>",
	Short: "Mark today's dose as taken",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return recordIntake(cmd, args[0], args[1], true)
	},
}

var undoCmd = &cobra.Command{
	Use:   "undo <medicine> <morning|noon|night>",
	Short: "Undo today's dose and return the pills to stock",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return recordIntake(cmd, args[0], args[1], false)
	},
}

func recordIntake(cmd *cobra.Command, ref, slotArg string, taken bool) error {
	slot := types.TimeOfDay(slotArg)
	if !slot.Valid() {
		return fmt.Errorf("unknown time of day %q, use morning, noon or night", slotArg)
	}
	loc, err := clientLocation()
	if err != nil {
		return err
	}
	return withSession(func(_ client.Session, api *client.Client) error {
		board := client.NewBoard(api, loc)
		if err := board.Refresh(cmd.Context()); err != nil {
			return err
		}
		m, err := board.Resolve(ref)
		if err != nil {
			return err
		}
		updated, err := board.Record(cmd.Context(), m.ID, slot, taken, takeCount)
		if err != nil {
			return err
		}
		verb := "Took"
		if !taken {
			verb = "Undid"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s, %d pills left\n", verb, slot, updated.Name, updated.Quantity)
		return client.RenderSchedule(cmd.OutOrStdout(), board.Schedule())
	})
}

func init() {
	rootCmd.AddCommand(medsCmd, todayCmd, takeCmd, undoCmd)
	medsCmd.AddCommand(medsAddCmd, medsEditCmd, medsRmCmd)

	medsAddCmd.Flags().StringVar(&medName, "name", "", "Medicine name")
	medsAddCmd.Flags().StringVar(&medDose, "dose", "", "Strength, e.g. 500")
	medsAddCmd.Flags().IntVar(&medProgram, "days", 0, "Length of the program in days")
	medsAddCmd.Flags().IntVar(&medQuantity, "quantity", 0, "Pills on hand")
	medsAddCmd.Flags().StringVar(&medFoodRelation, "food", "after", "Take before or after food")
	medsAddCmd.Flags().IntVar(&medMorning, "morning", 0, "Pills in the morning")
	medsAddCmd.Flags().IntVar(&medNoon, "noon", 0, "Pills at noon")
	medsAddCmd.Flags().IntVar(&medNight, "night", 0, "Pills at night")
	_ = medsAddCmd.MarkFlagRequired("name")
	_ = medsAddCmd.MarkFlagRequired("dose")
	_ = medsAddCmd.MarkFlagRequired("days")

	medsEditCmd.Flags().StringVar(&editName, "name", "", "Medicine name")
	medsEditCmd.Flags().StringVar(&editDose, "dose", "", "Strength, e.g. 500")
	medsEditCmd.Flags().IntVar(&editProgram, "days", 0, "Length of the program in days")
	medsEditCmd.Flags().IntVar(&editQuantity, "quantity", 0, "Pills on hand")
	medsEditCmd.Flags().StringVar(&editFoodRelation, "food", "", "Take before or after food")
	medsEditCmd.Flags().IntVar(&editMorning, "morning", 0, "Pills in the morning")
	medsEditCmd.Flags().IntVar(&editNoon, "noon", 0, "Pills at noon")
	medsEditCmd.Flags().IntVar(&editNight, "night", 0, "Pills at night")

	takeCmd.Flags().IntVar(&takeCount, "count", 0, "Pills taken (default the scheduled dosage)")
	undoCmd.Flags().IntVar(&takeCount, "count", 0, "Pills to return (default what was recorded)")
}
