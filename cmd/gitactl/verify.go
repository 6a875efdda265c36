package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/gita-knowledge-api/internal/retrieval"
)

const (
	defaultVerifyQuery = "What is the soul?"
	statusNotReady     = "not_ready"
)

type verifyReport struct {
	Collection    string  `json:"collection"`
	Backend       string  `json:"backend"`
	Documents     int     `json:"documents"`
	SizeBytes     int64   `json:"size_bytes,omitempty"`
	Query         string  `json:"query"`
	Status        string  `json:"status"`
	TopVerse      int     `json:"top_verse,omitempty"`
	TopSimilarity float64 `json:"top_similarity"`
}

// retriever is the part of the engine the verify command needs
type retriever interface {
	MarkReady(ctx context.Context) error
	Retrieve(ctx context.Context, query string, k int) (*retrieval.Result, error)
}

func newVerifyCmd() *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that the persisted index is populated and answers a test query",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, openOptions{embeddings: true, index: true})
			if err != nil {
				return err
			}
			defer e.close()

			report := verifyReport{
				Collection: e.cfg.CollectionName,
				Backend:    e.cfg.VectorBackend,
				Query:      query,
			}
			if e.cfg.VectorBackend == "sqlite" {
				if info, statErr := os.Stat(e.cfg.SQLitePath); statErr == nil {
					report.SizeBytes = info.Size()
				}
			}

			engine := retrieval.NewEngine(e.index, e.embeddings, retrieval.Options{
				TopK:       1,
				Threshold:  e.cfg.RelevanceThreshold,
				Dimensions: e.embeddings.Identity().Dimensions,
				Logger:     e.logger,
			})
			if err := fillVerifyReport(ctx, e.index, engine, &report); err != nil {
				return err
			}
			return printVerifyReport(cmd, report)
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", defaultVerifyQuery, "test question")
	return cmd
}

// fillVerifyReport records the document count and, for a populated index, the test query outcome.
// An empty index is reported as not_ready without querying.
func fillVerifyReport(ctx context.Context, index interface {
	Count(ctx context.Context) (int, error)
}, engine retriever, report *verifyReport) error {
	n, err := index.Count(ctx)
	if err != nil {
		return err
	}
	report.Documents = n
	if n == 0 {
		report.Status = statusNotReady
		return nil
	}

	if err := engine.MarkReady(ctx); err != nil {
		return err
	}
	res, err := engine.Retrieve(ctx, report.Query, 1)
	if err != nil {
		return err
	}
	report.Status = string(res.Status)
	report.TopSimilarity = res.TopSimilarity
	if len(res.Candidates) > 0 {
		report.TopVerse = res.Candidates[0].Verse.Verse
	}
	return nil
}

func printVerifyReport(cmd *cobra.Command, report verifyReport) error {
	if jsonOutput {
		return printJSON(cmd, report)
	}
	cmd.Printf("Collection: %s (%s)\n", report.Collection, report.Backend)
	cmd.Printf("Documents:  %d\n", report.Documents)
	if report.SizeBytes > 0 {
		cmd.Printf("Size:       %.2f MB\n", float64(report.SizeBytes)/(1024*1024))
	}
	if report.Status == statusNotReady {
		cmd.Printf("Status:     %s (run build-index)\n", report.Status)
		return nil
	}
	cmd.Printf("Query:      %q -> %s", report.Query, report.Status)
	if report.TopVerse > 0 {
		cmd.Printf(", verse %d", report.TopVerse)
	}
	cmd.Printf(" (similarity %.4f)\n", report.TopSimilarity)
	return nil
}
