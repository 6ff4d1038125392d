package state

import (
	"context"
	"database/sql"
	"log/slog"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	ferrors "github.com/appdock/appdock/internal/foundation/errors"
	"github.com/appdock/appdock/internal/logfields"
)

// Store is the system-of-record for all ApplicationState: a write-through
// in-memory cache over SQLite. Reads are served from the cache and may happen
// concurrently; writes go through Apply, which exactly one worker calls.
type Store struct {
	db       *sql.DB
	mu       sync.RWMutex
	apps     map[string]ApplicationState
	revision uint64
	now      func() time.Time
}

// Open opens (or creates) the store at dbPath, runs pending migrations and
// warms the cache. Use ":memory:" for tests.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryStore, "open sqlite database").
			Fatal().WithContext("path", dbPath).Build()
	}
	// The store serializes writes itself; a single connection keeps the
	// in-memory cache and the database in lockstep.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{
		db:   db,
		apps: make(map[string]ApplicationState),
		now:  time.Now,
	}
	if err := s.warmCache(); err != nil {
		_ = db.Close()
		return nil, err
	}

	slog.Info("State store opened", "path", dbPath, "apps", len(s.apps), logfields.Revision(s.revision))
	return s, nil
}

func (s *Store) warmCache() error {
	rows, err := s.db.Query(`SELECT app_id, install_status, run_status, process_id, pid,
		endpoint, version, last_error, revision, created_at, updated_at FROM apps`)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryStore, "load application states").Fatal().Build()
	}
	defer rows.Close()

	for rows.Next() {
		var a ApplicationState
		var created, updated int64
		if err := rows.Scan(&a.AppID, &a.InstallStatus, &a.RunStatus, &a.ProcessID, &a.PID,
			&a.Endpoint, &a.Version, &a.LastError, &a.Revision, &created, &updated); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryStore, "scan application state").Fatal().Build()
		}
		a.CreatedAt = time.Unix(created, 0)
		a.UpdatedAt = time.Unix(updated, 0)
		s.apps[a.AppID] = a
		if a.Revision > s.revision {
			s.revision = a.Revision
		}
	}
	return rows.Err()
}

// Get returns a copy of the application's state, or a not-found error.
func (s *Store) Get(appID string) (ApplicationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.apps[appID]
	if !ok {
		return ApplicationState{}, ferrors.NotFoundError("application not known").
			WithContext("app_id", appID).Build()
	}
	return a, nil
}

// GetOrInit returns the application's state, creating the initial
// NotInstalled/Stopped record in memory if this is the first reference. The
// record is not persisted until the first Apply commits something.
func (s *Store) GetOrInit(appID string) ApplicationState {
	s.mu.RLock()
	a, ok := s.apps[appID]
	s.mu.RUnlock()
	if ok {
		return a
	}
	return ApplicationState{
		AppID:         appID,
		InstallStatus: InstallNotInstalled,
		RunStatus:     RunStopped,
		CreatedAt:     s.now(),
	}
}

// Apply validates the delta against the state machine and commits it: one
// SQLite write, one cache update, one revision bump. Only the worker calls
// Apply; a database failure here is fatal because the worker would otherwise
// keep running without a source of truth.
func (s *Store) Apply(ctx context.Context, appID string, d Delta) (ApplicationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.apps[appID]
	if !ok {
		cur = ApplicationState{
			AppID:         appID,
			InstallStatus: InstallNotInstalled,
			RunStatus:     RunStopped,
			CreatedAt:     s.now(),
		}
	}

	if err := validateTransition(cur, d); err != nil {
		return cur, err
	}

	if d.Remove {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM apps WHERE app_id = ?`, appID); err != nil {
			return cur, ferrors.WrapError(err, ferrors.CategoryStore, "delete application state").
				Fatal().WithContext("app_id", appID).Build()
		}
		delete(s.apps, appID)
		s.revision++
		return ApplicationState{AppID: appID, Revision: s.revision}, nil
	}

	next := apply(cur, d)
	s.revision++
	next.Revision = s.revision
	next.UpdatedAt = s.now()
	if next.CreatedAt.IsZero() {
		next.CreatedAt = next.UpdatedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO apps (app_id, install_status, run_status, process_id, pid, endpoint, version, last_error, revision, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(app_id) DO UPDATE SET
			install_status = excluded.install_status,
			run_status = excluded.run_status,
			process_id = excluded.process_id,
			pid = excluded.pid,
			endpoint = excluded.endpoint,
			version = excluded.version,
			last_error = excluded.last_error,
			revision = excluded.revision,
			updated_at = excluded.updated_at`,
		next.AppID, string(next.InstallStatus), string(next.RunStatus), next.ProcessID, next.PID,
		next.Endpoint, next.Version, next.LastError, next.Revision,
		next.CreatedAt.Unix(), next.UpdatedAt.Unix())
	if err != nil {
		s.revision--
		return cur, ferrors.WrapError(err, ferrors.CategoryStore, "persist application state").
			Fatal().WithContext("app_id", appID).Build()
	}

	s.apps[appID] = next
	return next, nil
}

// Snapshot returns an immutable copy of the full state set. Because writes are
// serialized through Apply under the same lock, every snapshot reflects a
// single committed worker step.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	apps := make([]ApplicationState, 0, len(s.apps))
	for _, a := range s.apps {
		apps = append(apps, a)
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].AppID < apps[j].AppID })

	return Snapshot{
		Revision: s.revision,
		TakenAt:  s.now(),
		Apps:     apps,
	}
}

// Revision returns the id of the last committed worker step.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
