package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func approveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approve <pending-id>",
		Short: "Promote a staged transaction into the ledger",
		Long: `Commit a staged transaction as a manual, full-confidence ledger entry.
When a category is given, tally learns a categorization rule from it so
future imports of the same merchant are categorized automatically.`,
		Args: cobra.ExactArgs(1),
		RunE: runApprove,
	}

	cmd.Flags().StringP("category", "c", "", "category to assign")
	cmd.Flags().String("subcategory", "", "subcategory to assign")
	return cmd
}

func runApprove(cmd *cobra.Command, args []string) error {
	category, _ := cmd.Flags().GetString("category")
	subcategory, _ := cmd.Flags().GetString("subcategory")

	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.close()

	committed, err := sess.controller.Approve(cmd.Context(), sess.cfg.UserID, args[0], category, subcategory)
	if err != nil {
		return fmt.Errorf("failed to approve transaction: %w", err)
	}

	fmt.Printf("Committed %s %s %s", committed.PostedAt.Format("2006-01-02"),
		committed.MerchantName, formatAmount(committed.Amount))
	if committed.Category != "" {
		fmt.Printf(" as %s", committed.Category)
	}
	fmt.Println()
	return nil
}

func rejectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reject <pending-id>",
		Short: "Discard a staged transaction without committing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession()
			if err != nil {
				return err
			}
			defer sess.close()

			if err := sess.controller.Reject(cmd.Context(), sess.cfg.UserID, args[0]); err != nil {
				return fmt.Errorf("failed to reject transaction: %w", err)
			}
			fmt.Printf("Rejected %s\n", args[0])
			return nil
		},
	}
}

func commitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commit <import-id>",
		Short: "Promote every staged transaction of an import into the ledger",
		Long: `Commit an entire import at once. Learned rules categorize what they
can; everything else lands uncategorized. An import can only be
committed once.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession()
			if err != nil {
				return err
			}
			defer sess.close()

			n, err := sess.controller.CommitImport(cmd.Context(), sess.cfg.UserID, args[0])
			if err != nil {
				return fmt.Errorf("failed to commit import: %w", err)
			}
			fmt.Printf("Committed %d transactions from import %s\n", n, args[0])
			return nil
		},
	}
}

func recomputeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recompute",
		Short: "Re-run scoring and suggestions over all staged transactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := openSession()
			if err != nil {
				return err
			}
			defer sess.close()

			result, err := sess.controller.RecomputePending(cmd.Context(), sess.cfg.UserID)
			if err != nil {
				return fmt.Errorf("failed to recompute: %w", err)
			}
			fmt.Printf("Recomputed %d staged transactions (%d failed)\n", result.Succeeded, result.Failed)
			return nil
		},
	}
}
