package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/script-agent/internal/extraction"
	"github.com/jonathan/script-agent/internal/observability"
	"github.com/jonathan/script-agent/internal/pipeline"
	"github.com/jonathan/script-agent/internal/types"
)

type extractOptions struct {
	projectID          string
	scriptIDs          []string
	provider           string
	normalizedScriptID string
	concurrency        int
	quiet              bool
}

func newExtractCmd(a *app) *cobra.Command {
	opts := &extractOptions{}

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract candidate entities from one or more scripts",
		Long: `Runs candidate extraction for each --script against its latest normalized version
(or the version given by --normalized-script). Several scripts run in parallel.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			requests, err := opts.requests()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			database, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			progress := cmd.ErrOrStderr()
			if opts.quiet {
				progress = io.Discard
			}
			coordinator := a.newCoordinator(database, a.promptLoader(), pipeline.WithProgress(progressPrinter(progress)))
			return runExtractions(ctx, coordinator, requests, opts.concurrency, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.projectID, "project", "p", "", "Project ID (required)")
	cmd.Flags().StringSliceVarP(&opts.scriptIDs, "script", "s", nil, "Script ID; repeat or comma-separate for several (required)")
	cmd.Flags().StringVar(&opts.provider, "provider", extraction.ProviderMock, "Extraction provider")
	cmd.Flags().StringVar(&opts.normalizedScriptID, "normalized-script", "", "Pin a normalized script version (single script only)")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 4, "Maximum scripts processed at once")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Do not print per-chunk progress")

	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("script")
	return cmd
}

// requests validates the flags and builds one request per script.
func (o *extractOptions) requests() ([]pipeline.Request, error) {
	projectID, err := uuid.Parse(o.projectID)
	if err != nil {
		return nil, fmt.Errorf("invalid --project: %w", err)
	}
	if len(o.scriptIDs) == 0 {
		return nil, fmt.Errorf("at least one --script is required")
	}
	if o.concurrency < 1 {
		return nil, fmt.Errorf("--concurrency must be at least 1")
	}

	var pinned *uuid.UUID
	if o.normalizedScriptID != "" {
		if len(o.scriptIDs) != 1 {
			return nil, fmt.Errorf("--normalized-script requires exactly one --script")
		}
		id, err := uuid.Parse(o.normalizedScriptID)
		if err != nil {
			return nil, fmt.Errorf("invalid --normalized-script: %w", err)
		}
		pinned = &id
	}

	seen := make(map[uuid.UUID]bool, len(o.scriptIDs))
	requests := make([]pipeline.Request, 0, len(o.scriptIDs))
	for _, raw := range o.scriptIDs {
		scriptID, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid --script %q: %w", raw, err)
		}
		if seen[scriptID] {
			continue
		}
		seen[scriptID] = true

		req := types.ExtractRequest{ProjectID: projectID, ScriptID: scriptID, Provider: o.provider, NormalizedScriptID: pinned}
		if err := req.Validate(); err != nil {
			return nil, err
		}
		requests = append(requests, pipeline.Request{
			ProjectID:          req.ProjectID,
			ScriptID:           req.ScriptID,
			Provider:           req.Provider,
			NormalizedScriptID: req.NormalizedScriptID,
		})
	}
	return requests, nil
}

// triggerer runs one extraction behind the failure boundary.
type triggerer interface {
	Trigger(ctx context.Context, req pipeline.Request) (*types.RunSummary, error)
}

// runExtractions runs every request with at most limit in flight. A failing
// script does not stop the others; summaries are printed in request order.
func runExtractions(ctx context.Context, t triggerer, requests []pipeline.Request, limit int, out io.Writer) error {
	summaries := make([]*types.RunSummary, len(requests))
	errs := make([]error, len(requests))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, req := range requests {
		g.Go(func() error {
			summaries[i], errs[i] = t.Trigger(gctx, req)
			return nil
		})
	}
	_ = g.Wait()

	printer := observability.NewPrinter(out)
	var failed []error
	for i, req := range requests {
		if errs[i] != nil {
			failed = append(failed, fmt.Errorf("script %s: %w", req.ScriptID, errs[i]))
			continue
		}
		printer.PrintRunSummary(summaries[i])
	}
	return errors.Join(failed...)
}

// progressPrinter writes one line per processed chunk. Runs report
// concurrently, so writes are serialized.
func progressPrinter(w io.Writer) pipeline.ProgressCallback {
	var mu sync.Mutex
	return func(e pipeline.ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		_, _ = fmt.Fprintf(w, "[%s] chunk %d/%d (%d rows) → %d candidates\n",
			e.RunID.String()[:8], e.Chunk, e.ChunkCount, e.ChunkSize, e.Candidates)
	}
}
