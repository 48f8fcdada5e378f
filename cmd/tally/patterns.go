package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func patternsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "patterns",
		Short: "Detect recurring merchants across the ledger",
		Long: `Scan the committed ledger for merchants that charge a stable amount
at a stable interval, such as subscriptions and rent.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := openSession()
			if err != nil {
				return err
			}
			defer sess.close()

			patterns, err := sess.controller.Patterns(cmd.Context(), sess.cfg.UserID)
			if err != nil {
				return fmt.Errorf("failed to detect patterns: %w", err)
			}
			if len(patterns) == 0 {
				fmt.Println("No recurring patterns found yet. Commit more history and try again.")
				return nil
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Merchant", "Frequency", "Avg Amount", "Seen", "Next Expected"})
			table.SetBorder(false)

			for _, p := range patterns {
				table.Append([]string{
					truncate(p.MerchantName, 30),
					string(p.Frequency),
					formatAmount(p.AverageAmount),
					fmt.Sprintf("%d×", p.Occurrences),
					p.NextEstimatedDate.Format("2006-01-02"),
				})
			}

			table.Render()
			return nil
		},
	}
}

func splitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "splits",
		Short: "Flag staged transactions that may be shared bills",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := openSession()
			if err != nil {
				return err
			}
			defer sess.close()

			candidates, err := sess.controller.SplitCandidates(cmd.Context(), sess.cfg.UserID)
			if err != nil {
				return fmt.Errorf("failed to detect split candidates: %w", err)
			}
			if len(candidates) == 0 {
				fmt.Println("No likely shared bills in staging.")
				return nil
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Merchant", "Amount", "Conf", "Why"})
			table.SetBorder(false)
			table.SetAutoWrapText(false)

			for _, c := range candidates {
				why := ""
				for i, reason := range c.Reasons {
					if i > 0 {
						why += "; "
					}
					why += reason
				}
				table.Append([]string{
					truncate(c.PendingID, 10),
					truncate(c.Merchant, 30),
					formatAmount(c.Amount),
					fmt.Sprintf("%.2f", c.Confidence),
					why,
				})
			}

			table.Render()
			return nil
		},
	}
}
