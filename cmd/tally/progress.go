package main

import (
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/pocketledger/tally/internal/progress"
	"github.com/pocketledger/tally/internal/report"
)

func progressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "Show review progress and earned XP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := openSession()
			if err != nil {
				return err
			}
			defer sess.close()

			stats, err := sess.controller.Stats(cmd.Context(), sess.cfg.UserID)
			if err != nil {
				return fmt.Errorf("failed to compute stats: %w", err)
			}

			fraction := progress.Progress(stats)
			game := progress.Gamification(stats)
			fmt.Println(report.RenderProgress(fraction, stats, game))
			return nil
		},
	}
}

func summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize spending by category with month-over-month trend",
		RunE:  runSummary,
	}

	cmd.Flags().String("month", "", "month to summarize (YYYY-MM, default: current)")
	return cmd
}

func runSummary(cmd *cobra.Command, _ []string) error {
	monthFlag, _ := cmd.Flags().GetString("month")

	month := time.Now().UTC()
	if monthFlag != "" {
		parsed, err := time.Parse("2006-01", monthFlag)
		if err != nil {
			return fmt.Errorf("invalid month %q: expected YYYY-MM", monthFlag)
		}
		month = parsed
	}

	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	priorStart := start.AddDate(0, -1, 0)
	priorEnd := start.Add(-time.Nanosecond)

	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.close()
	ctx := cmd.Context()

	current, err := sess.store.GetCommittedByDateRange(ctx, sess.cfg.UserID, start, end)
	if err != nil {
		return fmt.Errorf("failed to load transactions: %w", err)
	}
	prior, err := sess.store.GetCommittedByDateRange(ctx, sess.cfg.UserID, priorStart, priorEnd)
	if err != nil {
		return fmt.Errorf("failed to load prior period: %w", err)
	}

	summaries := report.Summarize(current, prior)
	if len(summaries) == 0 {
		fmt.Printf("No committed transactions in %s.\n", start.Format("January 2006"))
		return nil
	}

	fmt.Printf("Spending for %s\n\n", start.Format("January 2006"))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Category", "Total", "Count", "Average", "vs Prior"})
	table.SetBorder(false)

	for _, s := range summaries {
		table.Append([]string{
			s.Category,
			formatAmount(s.Total),
			fmt.Sprintf("%d", s.Count),
			formatAmount(s.Average),
			report.RenderTrend(s),
		})
	}

	table.Render()
	return nil
}
