package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"ledger/internal/backend"
	"ledger/internal/core"

	"github.com/spf13/cobra"
)

func dueCmd() *cobra.Command {
	var (
		userID string
		days   int
	)
	cmd := &cobra.Command{
		Use:   "due",
		Short: "List unpaid obligations due soon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days < 0 {
				days = appCfg.DueSoonHorizonDays
			}
			return withBackend(cmd.Context(), func(b *backend.Backend) error {
				var (
					obs []core.ScheduledObligation
					err error
				)
				if userID == "" {
					obs, err = b.Ledger.DueSoonForAll(cmd.Context(), days)
				} else {
					obs, err = b.Ledger.DueSoon(cmd.Context(), userID, days)
				}
				if err != nil {
					return err
				}
				printObligations(cmd.OutOrStdout(), obs)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "only this user (default all users)")
	cmd.Flags().IntVar(&days, "days", -1, "horizon in days (default DUE_SOON_HORIZON_DAYS)")
	return cmd
}

func printObligations(out io.Writer, obs []core.ScheduledObligation) {
	if len(obs) == 0 {
		fmt.Fprintln(out, "Nothing due.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "DUE\tUSER\tAMOUNT\tDESCRIPTION")
	for _, o := range obs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", o.DueDate, o.UserID, o.Amount, o.Description)
	}
}

func summaryCmd() *cobra.Command {
	var (
		userID      string
		year, month int
		push        bool
	)
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show month or year totals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if push && month == 0 {
				return errors.New("--push needs --month")
			}
			return withBackend(cmd.Context(), func(b *backend.Backend) error {
				ctx := cmd.Context()
				out := cmd.OutOrStdout()
				if month == 0 {
					months, err := b.Ledger.YearOverview(ctx, userID, year)
					if err != nil {
						return err
					}
					printYear(out, months)
					return nil
				}

				o, err := b.Ledger.MonthOverview(ctx, userID, year, month)
				if err != nil {
					return err
				}
				printMonth(out, o)
				if push {
					ref, err := b.Ledger.PushMonthOverview(ctx, b.Sheets, userID, year, month)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "pushed: %s\n", ref)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "year")
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12 (default whole year)")
	cmd.Flags().BoolVar(&push, "push", false, "append the month summary to the summary sheet")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func printMonth(out io.Writer, o core.MonthOverview) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "Month\t%04d-%02d\n", o.Year, o.Month)
	fmt.Fprintf(w, "Income\t%s\n", o.Income)
	fmt.Fprintf(w, "Expenses\t%s\n", o.Expenses)
	fmt.Fprintf(w, "Balance\t%s\n", o.Balance)
	fmt.Fprintf(w, "Savings\t%s\n", o.Savings)
	for _, c := range o.ByCategory {
		fmt.Fprintf(w, "  %s\t%s\n", c.Name, c.Amount)
	}
}

func printYear(out io.Writer, months []core.MonthOverview) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "MONTH\tINCOME\tEXPENSES\tBALANCE")
	var total core.MonthOverview
	for _, o := range months {
		fmt.Fprintf(w, "%04d-%02d\t%s\t%s\t%s\n", o.Year, o.Month, o.Income, o.Expenses, o.Balance)
		total.Income = total.Income.Add(o.Income)
		total.Expenses = total.Expenses.Add(o.Expenses)
		total.Balance = total.Balance.Add(o.Balance)
	}
	fmt.Fprintf(w, "TOTAL\t%s\t%s\t%s\n", total.Income, total.Expenses, total.Balance)
}
