package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pocketledger/tally/internal/common"
	"github.com/pocketledger/tally/internal/engine"
	"github.com/pocketledger/tally/internal/ofx"
	"github.com/pocketledger/tally/internal/service"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Stage transactions from OFX/QFX statement files",
		Long: `Parse OFX or QFX files exported from your bank and stage their
transactions for review. Each file becomes one import; staged rows carry
confidence scores, duplicate flags, and category suggestions.

Examples:
  tally import ~/Downloads/statement_jan.qfx
  tally import ~/Downloads/*.qfx --dry-run`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}

	cmd.Flags().BoolP("dry-run", "d", false, "Parse and report without staging anything")
	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	var files []string
	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err == nil {
				files = append(files, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
		} else {
			files = append(files, matches...)
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found to import")
	}

	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.close()

	ctx := cmd.Context()
	err = common.WithRetry(ctx, func() error {
		return sess.store.Migrate(ctx)
	}, service.RetryOptions{MaxAttempts: 3})
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	parser := ofx.NewParser()
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			common.LogError(err, "Failed to open file", common.Fields{"file": path})
			continue
		}
		extracted, err := parser.ParseFile(ctx, f)
		_ = f.Close()
		if err != nil {
			common.LogError(err, "Failed to parse OFX file", common.Fields{"file": path})
			continue
		}
		if len(extracted) == 0 {
			slog.Warn("No transactions found in file", "file", filepath.Base(path))
			continue
		}

		if dryRun {
			fmt.Printf("%s: %d transactions (dry run, nothing staged)\n",
				filepath.Base(path), len(extracted))
			continue
		}

		parsed := make([]engine.ParsedTransaction, 0, len(extracted))
		for _, e := range extracted {
			parsed = append(parsed, engine.ParsedTransaction{Data: e.Data, RawText: e.RawText})
		}

		imp, pending, err := sess.controller.IngestStaging(ctx, sess.cfg.UserID, filepath.Base(path), parsed)
		if err != nil {
			common.LogError(err, "Failed to stage transactions", common.Fields{"file": path})
			continue
		}

		flagged := 0
		for _, p := range pending {
			if p.NeedsReview {
				flagged++
			}
		}
		fmt.Printf("%s: staged %d transactions as import %s (%d need review)\n",
			filepath.Base(path), len(pending), imp.ID, flagged)
	}

	return nil
}
