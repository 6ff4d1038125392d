package apps

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	ferrors "github.com/appdock/appdock/internal/foundation/errors"
	"github.com/appdock/appdock/internal/logfields"
)

// DirProvider provisions one directory per application under a root and runs
// the recipe's install steps inside it with the recipe environment applied.
type DirProvider struct {
	root string
}

// NewDirProvider creates a provider rooted at dir.
func NewDirProvider(root string) *DirProvider {
	return &DirProvider{root: root}
}

// Ensure implements EnvironmentProvider. It is idempotent: an existing
// environment directory is reused and the steps run again, which is what a
// re-install after an Error state needs.
func (p *DirProvider) Ensure(ctx context.Context, appID string, recipe Recipe) (EnvironmentHandle, error) {
	dir := filepath.Join(p.root, appID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return EnvironmentHandle{}, ferrors.WrapError(err, ferrors.CategoryProvision, "create environment directory").
			WithContext("app_id", appID).Build()
	}

	for i, step := range recipe.Steps {
		cmd := exec.CommandContext(ctx, "sh", "-c", step)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(), recipe.Env...)
		out, err := cmd.CombinedOutput()
		if err != nil {
			slog.Warn("Install step failed",
				logfields.AppID(appID), slog.Int("step", i+1), logfields.Error(err))
			return EnvironmentHandle{}, ferrors.WrapError(err, ferrors.CategoryProvision, "install step failed").
				WithContext("app_id", appID).
				WithContext("step", step).
				WithContext("output", string(out)).
				Build()
		}
	}

	return EnvironmentHandle{AppID: appID, Root: dir}, nil
}

// Remove implements EnvironmentProvider.
func (p *DirProvider) Remove(appID string) error {
	dir := filepath.Join(p.root, appID)
	if err := os.RemoveAll(dir); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryProvision, "remove environment directory").
			WithContext("app_id", appID).Build()
	}
	return nil
}

// Root returns the environment directory an app would get. The launch path
// uses it as the process working directory.
func (p *DirProvider) Root(appID string) string {
	return filepath.Join(p.root, appID)
}
