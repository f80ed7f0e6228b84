package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/script-agent/internal/db"
	"github.com/jonathan/script-agent/internal/types"
)

type importOptions struct {
	projectID    string
	projectName  string
	scriptID     string
	scriptName   string
	rowsPath     string
	contentPath  string
	versionLabel string
}

// importStore is the persistence used by import. *db.DB implements it.
type importStore interface {
	CreateProject(ctx context.Context, name, description string) (*db.Project, error)
	GetProject(ctx context.Context, id uuid.UUID) (*db.Project, error)
	CreateScript(ctx context.Context, projectID uuid.UUID, name, content string) (*db.Script, error)
	GetScript(ctx context.Context, id uuid.UUID) (*db.Script, error)
	CreateNormalizedScript(ctx context.Context, scriptID uuid.UUID, versionLabel string, contentJSON []byte) (*db.NormalizedScript, error)
}

type importResult struct {
	ProjectID          uuid.UUID
	ScriptID           uuid.UUID
	NormalizedScriptID uuid.UUID
	Rows               int
}

func newImportCmd(a *app) *cobra.Command {
	opts := &importOptions{}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a normalized script",
		Long: `Stores a normalized script (a JSON array of row objects) as a new version.

Without --script-id a project (new, or existing via --project-id) and a script are created first.
Row objects are stored with their original key order and extra keys.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			database, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			result, err := importScript(ctx, database, opts)
			if err != nil {
				return err
			}
			printImportResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.rowsPath, "rows", "", "Path to the normalized rows JSON file (required)")
	cmd.Flags().StringVar(&opts.projectID, "project-id", "", "Existing project ID")
	cmd.Flags().StringVar(&opts.projectName, "project-name", "", "Name of a new project")
	cmd.Flags().StringVar(&opts.scriptID, "script-id", "", "Existing script ID; adds a new normalized version")
	cmd.Flags().StringVar(&opts.scriptName, "script-name", "", "Name of a new script")
	cmd.Flags().StringVar(&opts.contentPath, "content", "", "Path to the original screenplay text (optional)")
	cmd.Flags().StringVar(&opts.versionLabel, "version-label", "", "Label for the normalized version")

	_ = cmd.MarkFlagRequired("rows")
	cmd.MarkFlagsMutuallyExclusive("project-id", "project-name")
	cmd.MarkFlagsMutuallyExclusive("script-id", "script-name")
	return cmd
}

func importScript(ctx context.Context, store importStore, opts *importOptions) (*importResult, error) {
	data, err := os.ReadFile(opts.rowsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	data = bytes.TrimSpace(data)
	rows, err := types.ParseNormalizedContent(data)
	if err != nil {
		return nil, fmt.Errorf("invalid rows file %s: %w", opts.rowsPath, err)
	}

	if opts.scriptID != "" {
		return addVersion(ctx, store, opts, data, len(rows))
	}

	var content string
	if opts.contentPath != "" {
		raw, err := os.ReadFile(opts.contentPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read content: %w", err)
		}
		content = string(raw)
	}

	var project *db.Project
	if opts.projectID != "" {
		id, err := uuid.Parse(opts.projectID)
		if err != nil {
			return nil, fmt.Errorf("invalid --project-id: %w", err)
		}
		if project, err = store.GetProject(ctx, id); err != nil {
			return nil, err
		}
		if project == nil {
			return nil, fmt.Errorf("project %s not found", id)
		}
	}

	req := types.ImportScriptRequest{
		ProjectName:  opts.projectName,
		ScriptName:   opts.scriptName,
		VersionLabel: opts.versionLabel,
		Rows:         rows,
	}
	if project != nil {
		req.ProjectName = project.Name
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid import: %w", err)
	}

	if project == nil {
		if project, err = store.CreateProject(ctx, req.ProjectName, ""); err != nil {
			return nil, err
		}
	}
	script, err := store.CreateScript(ctx, project.ID, req.ScriptName, content)
	if err != nil {
		return nil, err
	}
	normalized, err := store.CreateNormalizedScript(ctx, script.ID, req.VersionLabel, data)
	if err != nil {
		return nil, err
	}

	return &importResult{
		ProjectID:          project.ID,
		ScriptID:           script.ID,
		NormalizedScriptID: normalized.ID,
		Rows:               len(rows),
	}, nil
}

func addVersion(ctx context.Context, store importStore, opts *importOptions, data []byte, rowCount int) (*importResult, error) {
	id, err := uuid.Parse(opts.scriptID)
	if err != nil {
		return nil, fmt.Errorf("invalid --script-id: %w", err)
	}
	script, err := store.GetScript(ctx, id)
	if err != nil {
		return nil, err
	}
	if script == nil {
		return nil, fmt.Errorf("script %s not found", id)
	}

	normalized, err := store.CreateNormalizedScript(ctx, script.ID, opts.versionLabel, data)
	if err != nil {
		return nil, err
	}
	return &importResult{
		ProjectID:          script.ProjectID,
		ScriptID:           script.ID,
		NormalizedScriptID: normalized.ID,
		Rows:               rowCount,
	}, nil
}

func printImportResult(w io.Writer, r *importResult) {
	_, _ = fmt.Fprintf(w, "project_id:           %s\n", r.ProjectID)
	_, _ = fmt.Fprintf(w, "script_id:            %s\n", r.ScriptID)
	_, _ = fmt.Fprintf(w, "normalized_script_id: %s\n", r.NormalizedScriptID)
	_, _ = fmt.Fprintf(w, "rows:                 %d\n", r.Rows)
}
