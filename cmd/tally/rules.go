package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage learned categorization rules",
	}

	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesApplyCmd())
	return cmd
}

func rulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List learned rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := openSession()
			if err != nil {
				return err
			}
			defer sess.close()

			rules, err := sess.store.GetRules(cmd.Context(), sess.cfg.UserID)
			if err != nil {
				return fmt.Errorf("failed to load rules: %w", err)
			}
			if len(rules) == 0 {
				fmt.Println("No rules learned yet. Approving categorized transactions creates them.")
				return nil
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Merchant Pattern", "Category", "Conf", "Updated"})
			table.SetBorder(false)

			for _, r := range rules {
				table.Append([]string{
					r.MerchantPattern,
					r.SuggestedCategory,
					fmt.Sprintf("%.2f", r.Confidence),
					r.UpdatedAt.Format("2006-01-02"),
				})
			}

			table.Render()
			return nil
		},
	}
}

func rulesApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Categorize uncategorized ledger entries using learned rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := openSession()
			if err != nil {
				return err
			}
			defer sess.close()

			result, err := sess.controller.ApplyRulesToCommitted(cmd.Context(), sess.cfg.UserID)
			if err != nil {
				return fmt.Errorf("failed to apply rules: %w", err)
			}
			fmt.Printf("Categorized %d ledger entries (%d failed)\n", result.Succeeded, result.Failed)
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := openSession()
			if err != nil {
				return err
			}
			defer sess.close()

			if err := sess.store.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Println("Database is up to date.")
			return nil
		},
	}
}
