package apps

import (
	"bytes"
	"context"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"gopkg.in/yaml.v3"

	ferrors "github.com/appdock/appdock/internal/foundation/errors"
)

// CatalogEntry describes one installable application. Exactly one of Script,
// ScriptPath or Git provides the installer script.
type CatalogEntry struct {
	ID          string     `yaml:"id" json:"id"`
	Name        string     `yaml:"name" json:"name"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	Script      string     `yaml:"script,omitempty" json:"-"`
	ScriptPath  string     `yaml:"script_path,omitempty" json:"-"`
	Git         *GitSource `yaml:"git,omitempty" json:"-"`
}

// GitSource points at an installer script inside a git repository.
type GitSource struct {
	URL  string `yaml:"url"`
	Ref  string `yaml:"ref,omitempty"`
	Path string `yaml:"path"`
}

// Catalog is the searchable set of installable applications. It is reloadable
// (the config watcher swaps the entry set) and safe for concurrent readers.
type Catalog struct {
	mu       sync.RWMutex
	entries  map[string]CatalogEntry
	path     string
	cacheDir string
	markdown goldmark.Markdown
}

// LoadCatalog reads the catalog file. A missing file yields an empty catalog
// rather than an error so a fresh install starts clean.
func LoadCatalog(path, cacheDir string) (*Catalog, error) {
	c := &Catalog{
		entries:  make(map[string]CatalogEntry),
		path:     path,
		cacheDir: cacheDir,
		markdown: goldmark.New(),
	}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads the catalog file and atomically replaces the entry set.
func (c *Catalog) Reload() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return ferrors.WrapError(err, ferrors.CategoryCatalog, "read catalog file").
			WithContext("path", c.path).Build()
	}

	var doc struct {
		Apps []CatalogEntry `yaml:"apps"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryCatalog, "parse catalog file").
			WithContext("path", c.path).Build()
	}

	entries := make(map[string]CatalogEntry, len(doc.Apps))
	for _, e := range doc.Apps {
		if e.ID == "" {
			return ferrors.CatalogError("catalog entry missing id").WithContext("name", e.Name).Build()
		}
		if _, dup := entries[e.ID]; dup {
			return ferrors.CatalogError("duplicate catalog entry").WithContext("id", e.ID).Build()
		}
		entries[e.ID] = e
	}

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
	return nil
}

// Get returns the entry for an app id.
func (c *Catalog) Get(appID string) (CatalogEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[appID]
	if !ok {
		return CatalogEntry{}, ferrors.NotFoundError("application not in catalog").
			WithContext("app_id", appID).Build()
	}
	return e, nil
}

// Search returns entries whose id, name or description contains the query,
// case-insensitively. An empty query lists everything. Results are ordered by
// id for determinism.
func (c *Catalog) Search(query string) []CatalogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	var out []CatalogEntry
	for _, e := range c.entries {
		if q == "" ||
			strings.Contains(strings.ToLower(e.ID), q) ||
			strings.Contains(strings.ToLower(e.Name), q) ||
			strings.Contains(strings.ToLower(e.Description), q) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DescriptionHTML renders an entry's markdown description for UI consumption.
func (c *Catalog) DescriptionHTML(e CatalogEntry) (string, error) {
	var buf bytes.Buffer
	if err := c.markdown.Convert([]byte(e.Description), &buf); err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryCatalog, "render description").
			WithContext("app_id", e.ID).Build()
	}
	return buf.String(), nil
}

// Script looks an app up and resolves its installer script in one step.
func (c *Catalog) Script(ctx context.Context, appID string) (string, error) {
	e, err := c.Get(appID)
	if err != nil {
		return "", err
	}
	return c.ResolveScript(ctx, e)
}

// ResolveScript returns the raw installer script for an entry, fetching from
// git when the entry is git-sourced.
func (c *Catalog) ResolveScript(ctx context.Context, e CatalogEntry) (string, error) {
	switch {
	case e.Script != "":
		return e.Script, nil
	case e.ScriptPath != "":
		data, err := os.ReadFile(e.ScriptPath)
		if err != nil {
			return "", ferrors.WrapError(err, ferrors.CategoryCatalog, "read installer script").
				WithContext("app_id", e.ID).WithContext("path", e.ScriptPath).Build()
		}
		return string(data), nil
	case e.Git != nil:
		return fetchGitScript(ctx, c.cacheDir, e.ID, *e.Git)
	default:
		return "", ferrors.CatalogError("catalog entry has no installer script").
			WithContext("app_id", e.ID).Build()
	}
}
