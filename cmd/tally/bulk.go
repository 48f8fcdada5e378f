package main

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/pocketledger/tally/internal/bulk"
	"github.com/pocketledger/tally/internal/common"
	"github.com/pocketledger/tally/internal/model"
	"github.com/pocketledger/tally/internal/service"
)

func bulkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulk <approve|reject|categorize|mark-recurring|archive> <id...>",
		Short: "Apply one action to many transactions at once",
		Long: `Run a batch action over staged or committed transactions. Eligibility
is checked per item before anything runs: approve and reject need staged
rows, mark-recurring and archive need committed rows, categorize needs a
merchant name. Failures are counted and skipped; the batch never halts.`,
		Args: cobra.MinimumNArgs(2),
		RunE: runBulk,
	}

	cmd.Flags().StringP("category", "c", "", "category for the categorize action")
	return cmd
}

func runBulk(cmd *cobra.Command, args []string) error {
	action := bulk.Action(args[0])
	ids := args[1:]
	category, _ := cmd.Flags().GetString("category")

	if action == bulk.ActionCategorize && category == "" {
		return fmt.Errorf("categorize requires --category")
	}

	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.close()
	ctx := cmd.Context()

	items, err := resolveItems(ctx, sess, ids)
	if err != nil {
		return err
	}

	outcome := bulk.Plan(action, items)
	for _, item := range outcome.Ineligible {
		fmt.Printf("skipping %s: not eligible for %s\n", item.ID, action)
	}
	if len(outcome.Eligible) == 0 {
		return fmt.Errorf("no eligible transactions for %s", action)
	}

	bar := progressbar.Default(int64(len(outcome.Eligible)), string(action))
	result := bulk.Execute(ctx, outcome.Eligible, func(ctx context.Context, item bulk.Item) error {
		defer func() { _ = bar.Add(1) }()
		return applyBulkAction(ctx, sess, action, item, category)
	})
	_ = bar.Finish()

	result.Failed += len(outcome.Ineligible)
	result.Total += len(outcome.Ineligible)
	common.LogInfo("Bulk action finished", common.Fields{
		"action":    string(action),
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	})
	fmt.Printf("\n%d succeeded, %d failed of %d\n", result.Succeeded, result.Failed, result.Total)
	return nil
}

// resolveItems maps IDs onto staged or committed records for planning.
func resolveItems(ctx context.Context, sess *session, ids []string) ([]bulk.Item, error) {
	pending, err := sess.store.ListPending(ctx, sess.cfg.UserID, service.PendingFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list staged transactions: %w", err)
	}
	history, err := sess.store.GetCommittedHistory(ctx, sess.cfg.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	staged := make(map[string]model.PendingTransaction, len(pending))
	for _, p := range pending {
		staged[p.ID] = p
	}
	committed := make(map[string]model.CommittedTransaction, len(history))
	for _, t := range history {
		committed[t.ID] = t
	}

	items := make([]bulk.Item, 0, len(ids))
	for _, id := range ids {
		switch {
		case staged[id].ID != "":
			items = append(items, bulk.Item{
				ID:       id,
				Merchant: staged[id].Data.Merchant,
				State:    bulk.StatePending,
			})
		case committed[id].ID != "":
			items = append(items, bulk.Item{
				ID:       id,
				Merchant: committed[id].MerchantName,
				State:    bulk.StateCommitted,
			})
		default:
			// Unknown IDs still enter the plan; no action accepts them.
			items = append(items, bulk.Item{ID: id})
		}
	}
	return items, nil
}

func applyBulkAction(ctx context.Context, sess *session, action bulk.Action, item bulk.Item, category string) error {
	switch action {
	case bulk.ActionApprove:
		_, err := sess.controller.Approve(ctx, sess.cfg.UserID, item.ID, category, "")
		return err
	case bulk.ActionReject:
		return sess.controller.Reject(ctx, sess.cfg.UserID, item.ID)
	case bulk.ActionCategorize:
		if item.State == bulk.StatePending {
			_, err := sess.controller.Approve(ctx, sess.cfg.UserID, item.ID, category, "")
			return err
		}
		return sess.store.UpdateCommittedCategory(ctx, sess.cfg.UserID, item.ID, category, "")
	case bulk.ActionMarkRecurring:
		return sess.store.MarkCommittedRecurring(ctx, sess.cfg.UserID, item.ID)
	case bulk.ActionArchive:
		return sess.store.ArchiveCommitted(ctx, sess.cfg.UserID, item.ID)
	default:
		return fmt.Errorf("unsupported action %q", action)
	}
}
