package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"litpipe/internal/enhance"
	"litpipe/internal/ingest"
	"litpipe/internal/pipeline"
	"litpipe/internal/ports"
	"litpipe/internal/quality"
	"litpipe/internal/report"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		inputPath   string
		query       string
		domain      string
		maxFlag     int
		yearFrom    int
		yearTo      int
		quiet       bool
		enhanceFlag bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a pipeline run over a records file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(inputPath) == "" {
				return fmt.Errorf("--input is required")
			}
			if strings.TrimSpace(query) == "" {
				return fmt.Errorf("--query is required")
			}

			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			if err := os.MkdirAll(cfg.Paths.WorkspaceDir, 0o755); err != nil {
				return fmt.Errorf("ensure workspace: %w", err)
			}

			// One run per workspace at a time; concurrent runs would race on
			// the download directory and the ingest database.
			lock := flock.New(filepath.Join(cfg.Paths.WorkspaceDir, "litpipe.lock"))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire workspace lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("another run holds the workspace lock at %s", lock.Path())
			}
			defer func() { _ = lock.Unlock() }()

			store, err := ingest.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			collab := pipeline.Collaborators{
				Search:     &fileSearchProvider{path: inputPath},
				Classifier: &overlapClassifier{query: query},
				Fetcher:    localFetcher{},
				Extractor:  plainTextExtractor{},
				Structurer: outlineStructurer{},
				Ingestor:   store,
			}

			out := cmd.OutOrStdout()
			opts := []pipeline.Option{}
			if !quiet {
				opts = append(opts, pipeline.WithProgress(func(stepName string, percent int, _ map[string]any) {
					fmt.Fprintf(out, "[%3d%%] %s\n", percent, stepName)
				}))
			}

			orch := pipeline.New(cfg, collab, logger, opts...)
			result, runErr := orch.Execute(cmd.Context(), ports.SearchParams{
				Query:      query,
				Domain:     domain,
				MaxResults: maxFlag,
				YearFrom:   yearFrom,
				YearTo:     yearTo,
			})
			if result != nil {
				fmt.Fprintln(out)
				renderSections(out, report.RunSections(result))
			}
			if runErr != nil {
				return runErr
			}

			if enhanceFlag {
				loop := enhance.NewLoop(quality.NewEngine(), digestGenerator{},
					enhance.PolicyFromConfig(cfg.Enhancement), logger, "")
				final, err := loop.Run(cmd.Context(), result.Survivors())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "\nExperience refined over %d rounds: score %.1f (%s), stopped because %s\n",
					final.Round, final.Assessment.OverallScore, final.Assessment.Level, final.StopReason)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "JSON file of raw literature records")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Search query")
	cmd.Flags().StringVar(&domain, "domain", "", "Subject domain")
	cmd.Flags().IntVar(&maxFlag, "max-results", 0, "Cap on records (defaults to the configured max_results)")
	cmd.Flags().IntVar(&yearFrom, "year-from", 0, "Earliest publication year")
	cmd.Flags().IntVar(&yearTo, "year-to", 0, "Latest publication year")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Suppress progress output")
	cmd.Flags().BoolVar(&enhanceFlag, "enhance", false, "Refine an experience document from the surviving items")
	return cmd
}
