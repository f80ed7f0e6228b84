package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/script-agent/internal/db"
)

// memImportStore records what import writes
type memImportStore struct {
	projects   map[uuid.UUID]*db.Project
	scripts    map[uuid.UUID]*db.Script
	normalized []*db.NormalizedScript
}

func newMemImportStore() *memImportStore {
	return &memImportStore{projects: map[uuid.UUID]*db.Project{}, scripts: map[uuid.UUID]*db.Script{}}
}

func (m *memImportStore) CreateProject(_ context.Context, name, _ string) (*db.Project, error) {
	p := &db.Project{ID: uuid.New(), Name: name, CreatedAt: time.Now()}
	m.projects[p.ID] = p
	return p, nil
}

func (m *memImportStore) GetProject(_ context.Context, id uuid.UUID) (*db.Project, error) {
	return m.projects[id], nil
}

func (m *memImportStore) CreateScript(_ context.Context, projectID uuid.UUID, name, content string) (*db.Script, error) {
	s := &db.Script{ID: uuid.New(), ProjectID: projectID, Name: name, CreatedAt: time.Now()}
	if content != "" {
		s.Content = &content
	}
	m.scripts[s.ID] = s
	return s, nil
}

func (m *memImportStore) GetScript(_ context.Context, id uuid.UUID) (*db.Script, error) {
	return m.scripts[id], nil
}

func (m *memImportStore) CreateNormalizedScript(_ context.Context, scriptID uuid.UUID, label string, content []byte) (*db.NormalizedScript, error) {
	n := &db.NormalizedScript{ID: uuid.New(), ScriptID: scriptID, ContentJSON: append([]byte(nil), content...), CreatedAt: time.Now()}
	if label != "" {
		n.VersionLabel = &label
	}
	m.normalized = append(m.normalized, n)
	return n, nil
}

const rowsJSON = `[
  {"line_id": "1", "type": "scene_header", "text": "INT. KITCHEN - NIGHT", "page": 1},
  {"line_id": "2", "type": "dialogue", "text": "Mia: hello"}
]`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestImportScript_NewProject(t *testing.T) {
	store := newMemImportStore()
	opts := &importOptions{
		rowsPath:     writeFile(t, "rows.json", "\n"+rowsJSON+"\n"),
		contentPath:  writeFile(t, "script.txt", "INT. KITCHEN - NIGHT\nMIA: hello"),
		projectName:  "Pilot",
		scriptName:   "Episode 1",
		versionLabel: "v1",
	}

	result, err := importScript(context.Background(), store, opts)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Rows)
	require.Contains(t, store.projects, result.ProjectID)
	assert.Equal(t, "Pilot", store.projects[result.ProjectID].Name)
	require.Contains(t, store.scripts, result.ScriptID)
	require.NotNil(t, store.scripts[result.ScriptID].Content)

	require.Len(t, store.normalized, 1)
	assert.Equal(t, rowsJSON, string(store.normalized[0].ContentJSON), "stored as given, whitespace trimmed")
	assert.Equal(t, "v1", *store.normalized[0].VersionLabel)
}

func TestImportScript_ExistingProject(t *testing.T) {
	store := newMemImportStore()
	project, _ := store.CreateProject(context.Background(), "Feature", "")

	result, err := importScript(context.Background(), store, &importOptions{
		rowsPath:   writeFile(t, "rows.json", rowsJSON),
		projectID:  project.ID.String(),
		scriptName: "Draft",
	})
	require.NoError(t, err)
	assert.Equal(t, project.ID, result.ProjectID)
	assert.Len(t, store.projects, 1)
}

func TestImportScript_NewVersion(t *testing.T) {
	store := newMemImportStore()
	project, _ := store.CreateProject(context.Background(), "Feature", "")
	script, _ := store.CreateScript(context.Background(), project.ID, "Draft", "")

	result, err := importScript(context.Background(), store, &importOptions{
		rowsPath: writeFile(t, "rows.json", `[]`),
		scriptID: script.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, script.ID, result.ScriptID)
	assert.Equal(t, project.ID, result.ProjectID)
	assert.Equal(t, 0, result.Rows)
	assert.Len(t, store.scripts, 1)
}

func TestImportScript_Errors(t *testing.T) {
	rows := writeFile(t, "rows.json", rowsJSON)

	tests := []struct {
		name string
		opts *importOptions
	}{
		{"missing rows file", &importOptions{rowsPath: filepath.Join(t.TempDir(), "nope.json"), projectName: "P", scriptName: "S"}},
		{"rows not an array", &importOptions{rowsPath: writeFile(t, "obj.json", `{"rows": []}`), projectName: "P", scriptName: "S"}},
		{"missing names", &importOptions{rowsPath: rows}},
		{"missing script name", &importOptions{rowsPath: rows, projectName: "P"}},
		{"unknown project", &importOptions{rowsPath: rows, projectID: uuid.NewString(), scriptName: "S"}},
		{"bad project id", &importOptions{rowsPath: rows, projectID: "x", scriptName: "S"}},
		{"unknown script", &importOptions{rowsPath: rows, scriptID: uuid.NewString()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemImportStore()
			_, err := importScript(context.Background(), store, tt.opts)
			assert.Error(t, err)
			assert.Empty(t, store.normalized)
		})
	}
}
