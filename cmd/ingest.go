package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/newslinker/internal/linker"
)

func newIngestCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Link articles read as JSON lines from a file or stdin",
		Long: `Reads one queue message per line ({"title","url","text","site","people",...})
and links each article to the catalog. With --dry-run the records are resolved
against an empty in-memory catalog and nothing is written to the database.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open input: %w", err)
				}
				defer func() {
					if cerr := f.Close(); cerr != nil {
						appInstance.Logger().Warn("close input failed", zap.Error(cerr))
					}
				}()
				in = f
			}

			res, err := appInstance.Ingest(cmd.Context(), in, dryRun)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "records: %d\n", res.Records)
			if res.Catalog != nil {
				for _, c := range linker.Categories() {
					fmt.Fprintf(out, "%s: %d\n", c.Table(), len(res.Catalog.Entities(c)))
				}
				fmt.Fprintf(out, "links: %d\n", len(res.Catalog.Links()))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "resolve against an in-memory catalog")
	return cmd
}
