package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/script-agent/internal/db"
	"github.com/jonathan/script-agent/internal/observability"
	"github.com/jonathan/script-agent/internal/types"
)

// runReader is the persistence used by show-run. *db.DB implements it.
type runReader interface {
	GetRun(ctx context.Context, id uuid.UUID) (*db.Run, error)
	ListCandidates(ctx context.Context, runID uuid.UUID, entityType *types.EntityType) ([]types.Candidate, error)
	GetSnapshot(ctx context.Context, runID uuid.UUID) (*db.Snapshot, error)
}

func newShowRunCmd(a *app) *cobra.Command {
	var (
		entityType   string
		showSnapshot bool
	)

	cmd := &cobra.Command{
		Use:   "show-run <run-id>",
		Short: "Show a run and its candidates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid run ID: %w", err)
			}
			var filter *types.EntityType
			if entityType != "" {
				et := types.EntityType(entityType)
				if !et.Valid() {
					return fmt.Errorf("invalid --entity-type %q", entityType)
				}
				filter = &et
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

			return showRun(ctx, database, runID, filter, showSnapshot, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&entityType, "entity-type", "", "Only show candidates of this type")
	cmd.Flags().BoolVar(&showSnapshot, "snapshot", false, "Print the audit snapshot JSON")
	return cmd
}

func showRun(ctx context.Context, store runReader, runID uuid.UUID, filter *types.EntityType, withSnapshot bool, out io.Writer) error {
	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", runID)
	}

	printer := observability.NewPrinter(out)
	printer.PrintRun(run)

	candidates, err := store.ListCandidates(ctx, runID, filter)
	if err != nil {
		return err
	}
	printer.PrintCandidates(candidates)

	if !withSnapshot {
		return nil
	}
	snapshot, err := store.GetSnapshot(ctx, runID)
	if err != nil {
		return err
	}
	if snapshot == nil {
		_, _ = fmt.Fprintln(out, "no snapshot (run did not complete)")
		return nil
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, snapshot.Payload, "", "  "); err != nil {
		return fmt.Errorf("failed to format snapshot: %w", err)
	}
	_, _ = fmt.Fprintln(out, pretty.String())
	return nil
}
