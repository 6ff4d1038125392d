package apps

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	ferrors "github.com/appdock/appdock/internal/foundation/errors"
)

func writeCatalog(t *testing.T, content string) *Catalog {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	c, err := LoadCatalog(path, filepath.Join(dir, "scripts"))
	require.NoError(t, err)
	return c
}

const sampleCatalog = `apps:
  - id: nginx
    name: NGINX
    description: |
      A **web server** and reverse proxy.
    script: |
      VERSION 1.27.0
      RUN echo install
      LAUNCH nginx
  - id: redis
    name: Redis
    description: In-memory data store.
    script: RUN echo install redis
`

func TestCatalog_GetAndSearch(t *testing.T) {
	c := writeCatalog(t, sampleCatalog)

	e, err := c.Get("nginx")
	require.NoError(t, err)
	require.Equal(t, "NGINX", e.Name)

	_, err = c.Get("ghost")
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))

	require.Len(t, c.Search(""), 2)
	require.Len(t, c.Search("web server"), 1)
	require.Len(t, c.Search("REDIS"), 1)
	require.Len(t, c.Search("nothing matches"), 0)

	// Deterministic ordering by id.
	all := c.Search("")
	require.Equal(t, "nginx", all[0].ID)
	require.Equal(t, "redis", all[1].ID)
}

func TestCatalog_ResolveInlineScript(t *testing.T) {
	c := writeCatalog(t, sampleCatalog)

	e, err := c.Get("nginx")
	require.NoError(t, err)

	script, err := c.ResolveScript(context.Background(), e)
	require.NoError(t, err)
	require.Contains(t, script, "VERSION 1.27.0")
}

func TestCatalog_ResolveScriptPath(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "install.txt")
	require.NoError(t, os.WriteFile(scriptPath, []byte("RUN echo hi\n"), 0o644))

	c := writeCatalog(t, "apps:\n  - id: app\n    name: App\n    script_path: "+scriptPath+"\n")
	e, err := c.Get("app")
	require.NoError(t, err)

	script, err := c.ResolveScript(context.Background(), e)
	require.NoError(t, err)
	require.Equal(t, "RUN echo hi\n", script)
}

func TestCatalog_EntryWithoutScript(t *testing.T) {
	c := writeCatalog(t, "apps:\n  - id: empty\n    name: Empty\n")
	e, err := c.Get("empty")
	require.NoError(t, err)

	_, err = c.ResolveScript(context.Background(), e)
	require.Error(t, err)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryCatalog))
}

func TestCatalog_RejectsDuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("apps:\n  - id: a\n    name: A\n  - id: a\n    name: A again\n"), 0o644))

	_, err := LoadCatalog(path, dir)
	require.Error(t, err)
}

func TestCatalog_MissingFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	c, err := LoadCatalog(filepath.Join(dir, "absent.yaml"), dir)
	require.NoError(t, err)
	require.Len(t, c.Search(""), 0)
}

func TestCatalog_DescriptionHTML(t *testing.T) {
	c := writeCatalog(t, sampleCatalog)
	e, err := c.Get("nginx")
	require.NoError(t, err)

	html, err := c.DescriptionHTML(e)
	require.NoError(t, err)
	require.Contains(t, html, "<strong>web server</strong>")
}

func TestCatalog_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("apps:\n  - id: a\n    name: A\n"), 0o644))

	c, err := LoadCatalog(path, dir)
	require.NoError(t, err)
	require.Len(t, c.Search(""), 1)

	require.NoError(t, os.WriteFile(path, []byte("apps:\n  - id: a\n    name: A\n  - id: b\n    name: B\n"), 0o644))
	require.NoError(t, c.Reload())
	require.Len(t, c.Search(""), 2)
}
