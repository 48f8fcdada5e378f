package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/pocketledger/tally/internal/service"
)

func reviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "List staged transactions awaiting review",
		RunE:  runReview,
	}

	cmd.Flags().String("import", "", "only show transactions from this import")
	cmd.Flags().Bool("needs-review", false, "only show transactions flagged for review")
	cmd.Flags().Int("limit", 0, "maximum rows to show")
	return cmd
}

func runReview(cmd *cobra.Command, _ []string) error {
	importID, _ := cmd.Flags().GetString("import")
	needsReviewOnly, _ := cmd.Flags().GetBool("needs-review")
	limit, _ := cmd.Flags().GetInt("limit")

	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.close()

	filter := service.PendingFilter{ImportID: importID, Limit: limit}
	if needsReviewOnly {
		flag := true
		filter.NeedsReview = &flag
	}

	pending, err := sess.store.ListPending(cmd.Context(), sess.cfg.UserID, filter)
	if err != nil {
		return fmt.Errorf("failed to list staged transactions: %w", err)
	}
	if len(pending) == 0 {
		fmt.Println("Nothing staged. Run 'tally import' to stage a statement.")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Date", "Merchant", "Amount", "Conf", "Flags", "Top Suggestion"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)

	for _, p := range pending {
		amount := "?"
		if p.Data.HasAmount() {
			amount = formatAmount(p.Data.AmountValue())
		}

		flags := ""
		if p.NeedsReview {
			flags += "review "
		}
		if p.PossibleDuplicate != nil {
			flags += "dup "
		}
		if p.SplitConfidence > 0 {
			flags += "split"
		}

		suggestion := ""
		if len(p.Suggestions) > 0 {
			top := p.Suggestions[0]
			if top.Category != "" {
				suggestion = top.Category
			} else {
				suggestion = top.Action
			}
			suggestion = fmt.Sprintf("%s (%.2f)", suggestion, top.Confidence)
		}

		table.Append([]string{
			truncate(p.ID, 10),
			p.Data.Date,
			truncate(p.Data.Merchant, 30),
			amount,
			fmt.Sprintf("%.2f", p.Confidence.Overall),
			flags,
			suggestion,
		})
	}

	table.Render()
	return nil
}
