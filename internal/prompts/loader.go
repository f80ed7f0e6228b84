// Package prompts loads named extraction prompt templates and fingerprints
// them so every run records exactly which prompt text produced its output.
// Templates are read from an optional directory first and fall back to the
// copies embedded at compile time.
package prompts

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"
)

//go:embed templates/*.txt
var embedded embed.FS

// DefaultName is the prompt used by the candidate extraction step.
const DefaultName = "asset_extraction_step2.txt"

// ErrNotFound is returned when no layer contains the requested prompt.
var ErrNotFound = errors.New("prompt not found")

// Prompt is a loaded template together with its content digest.
type Prompt struct {
	Name    string
	Content string
	SHA256  string
}

// Loader resolves prompt names against its layers and caches the results.
type Loader struct {
	dir    string
	layers []fs.FS

	mu    sync.RWMutex
	cache map[string]*Prompt
}

// NewLoader creates a loader that looks in dir (if non-empty) before the
// embedded templates.
func NewLoader(dir string) *Loader {
	var layers []fs.FS
	if dir != "" {
		layers = append(layers, os.DirFS(dir))
	}
	if sub, err := fs.Sub(embedded, "templates"); err == nil {
		layers = append(layers, sub)
	}
	return &Loader{
		dir:    dir,
		layers: layers,
		cache:  make(map[string]*Prompt),
	}
}

// Dir returns the override directory, empty when only embedded templates are used.
func (l *Loader) Dir() string {
	return l.dir
}

// Load returns the named prompt. The name must be a bare file name.
func (l *Loader) Load(name string) (*Prompt, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || !fs.ValidPath(name) {
		return nil, fmt.Errorf("invalid prompt name %q", name)
	}

	l.mu.RLock()
	if p, ok := l.cache[name]; ok {
		l.mu.RUnlock()
		return p, nil
	}
	l.mu.RUnlock()

	for _, layer := range l.layers {
		data, err := fs.ReadFile(layer, name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to read prompt %s: %w", name, err)
		}

		content := string(data)
		p := &Prompt{Name: name, Content: content, SHA256: Digest(content)}

		l.mu.Lock()
		l.cache[name] = p
		l.mu.Unlock()
		return p, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Forget drops a single cached prompt.
func (l *Loader) Forget(name string) {
	l.mu.Lock()
	delete(l.cache, name)
	l.mu.Unlock()
}

// ClearCache drops every cached prompt.
func (l *Loader) ClearCache() {
	l.mu.Lock()
	l.cache = make(map[string]*Prompt)
	l.mu.Unlock()
}

// List returns the names of all available prompts across layers, sorted.
func (l *Loader) List() ([]string, error) {
	seen := make(map[string]struct{})
	for _, layer := range l.layers {
		entries, err := fs.ReadDir(layer, ".")
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to list prompts: %w", err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				seen[entry.Name()] = struct{}{}
			}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Digest returns the lowercase hex SHA-256 of content.
func Digest(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
