package cmd

import (
	"fmt"

	"github.com/gophertribe/devtool/test"
	"github.com/spf13/cobra"
)

// TestCmd runs the unit tests. None of them need the charger attached.
func TestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Run unit tests",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := test.Test(); err != nil {
				return fmt.Errorf("tests failed: %w", err)
			}
			return nil
		},
	}
}

func LintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint",
		Short: "Run linters",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := test.Lint(); err != nil {
				return fmt.Errorf("lint failed: %w", err)
			}
			return nil
		},
	}
}
