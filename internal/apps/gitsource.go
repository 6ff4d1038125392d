package apps

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	ferrors "github.com/appdock/appdock/internal/foundation/errors"
	"github.com/appdock/appdock/internal/logfields"
)

// fetchGitScript clones (or reuses) a working copy of the source repository
// under cacheDir and reads the installer script out of it.
func fetchGitScript(ctx context.Context, cacheDir, appID string, src GitSource) (string, error) {
	if src.URL == "" || src.Path == "" {
		return "", ferrors.CatalogError("git source requires url and path").
			WithContext("app_id", appID).Build()
	}

	repoPath := filepath.Join(cacheDir, appID)

	repo, err := git.PlainOpen(repoPath)
	switch err {
	case nil:
		// Refresh best-effort; a stale script beats a failed install when the
		// remote is unreachable.
		if wt, werr := repo.Worktree(); werr == nil {
			if perr := wt.PullContext(ctx, &git.PullOptions{}); perr != nil && perr != git.NoErrAlreadyUpToDate {
				slog.Debug("Script repository pull failed, using cached copy",
					logfields.AppID(appID), logfields.Error(perr))
			}
		}
	case git.ErrRepositoryNotExists:
		opts := &git.CloneOptions{URL: src.URL, Depth: 1}
		if src.Ref != "" {
			opts.ReferenceName = plumbing.ReferenceName("refs/heads/" + src.Ref)
			opts.SingleBranch = true
		}
		repo, err = git.PlainCloneContext(ctx, repoPath, false, opts)
		if err != nil {
			_ = os.RemoveAll(repoPath)
			return "", ferrors.WrapError(err, ferrors.CategoryCatalog, "clone script repository").
				WithContext("app_id", appID).WithContext("url", src.URL).Build()
		}
		slog.Info("Script repository cloned", logfields.AppID(appID), "url", src.URL)
	default:
		return "", ferrors.WrapError(err, ferrors.CategoryCatalog, "open script repository").
			WithContext("app_id", appID).Build()
	}

	data, err := os.ReadFile(filepath.Join(repoPath, src.Path))
	if err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryCatalog, "read installer script from repository").
			WithContext("app_id", appID).WithContext("path", src.Path).Build()
	}
	return string(data), nil
}
