package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Process every subscribed feed and link the new articles",
		Long: `Reads the subscriptions table, scrapes and extracts each unseen feed item,
and links the resulting articles to the catalog. The command returns once every
feed has been processed and the queue is drained.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := appInstance.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("run pipeline: %w", err)
			}
			appInstance.Logger().Info("run finished")
			return nil
		},
	}
}
