package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/gita-knowledge-api/internal/indexer"
)

func newBuildIndexCmd() *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "build-index",
		Short: "Embed every verse into the configured vector index",
		Long: `Builds the vector index from the corpus. An index that already holds
documents is left untouched; an index built with a different embedding
function is reported as an error.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, openOptions{embeddings: true, index: true})
			if err != nil {
				return err
			}
			defer e.close()

			res, err := indexer.NewBuilder(e.index, e.embeddings, e.chapter.Verses(), indexer.Config{
				Collection: e.cfg.CollectionName,
				BatchSize:  batchSize,
				Logger:     e.logger,
			}).Build(ctx)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd, res)
			}
			if res.Skipped {
				cmd.Printf("Collection %s already holds %d documents, nothing to do.\n", res.Collection, res.Documents)
				return nil
			}
			cmd.Printf("Indexed %d verses into %s in %s.\n", res.Documents, res.Collection, res.Duration.Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", 32, "documents embedded per request")
	return cmd
}
