package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/gita-knowledge-api/internal/models"
	"github.com/gita-knowledge-api/internal/repository"
)

// DataPoint is one line of a Vertex AI Vector Search batch import file
type DataPoint struct {
	ID        string     `json:"id"`
	Embedding []float32  `json:"embedding"`
	Restricts []Restrict `json:"restricts,omitempty"`
}

// Restrict defines a token-based filter
type Restrict struct {
	Namespace string   `json:"namespace"`
	Allow     []string `json:"allow"`
}

func newExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export indexed embeddings as JSONL for Vertex AI Vector Search",
		Long: `Writes one datapoint per verse, restricted to the collection namespace
used by the vertex backend. Upload the file to Cloud Storage and create the
index from it, then point VERTEX_INDEX_ID at the new index.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, openOptions{index: true})
			if err != nil {
				return err
			}
			defer e.close()

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			defer f.Close()

			w := bufio.NewWriter(f)
			n, err := writeDatapoints(ctx, e.index, e.cfg.CollectionName, w)
			if err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return fmt.Errorf("flush output: %w", err)
			}

			cmd.Printf("Exported %d embeddings to %s\n", n, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "embeddings.jsonl", "output JSONL file path")
	return cmd
}

func writeDatapoints(ctx context.Context, exp repository.Exporter, collection string, w io.Writer) (int, error) {
	enc := json.NewEncoder(w)
	count := 0
	err := exp.All(ctx, func(m models.Match) error {
		dp := DataPoint{
			ID:        m.ID,
			Embedding: m.Embedding,
			Restricts: []Restrict{{Namespace: "collection", Allow: []string{collection}}},
		}
		if err := enc.Encode(dp); err != nil {
			return fmt.Errorf("encode data point %s: %w", m.ID, err)
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("export datapoints: %w", err)
	}
	return count, nil
}
