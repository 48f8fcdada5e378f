package storage

import (
	"context"
	"fmt"

	"github.com/pocketledger/tally/internal/common"
)

// validateString checks that a required string parameter is non-empty.
func validateString(value, name string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty: %w", name, common.ErrInvalidConfig)
	}
	return nil
}

// validateContext checks that the context is usable.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil: %w", common.ErrInvalidConfig)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context is done: %w", err)
	}
	return nil
}
