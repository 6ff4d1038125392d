package state

import (
	"context"
	"database/sql"
	"time"

	ferrors "github.com/appdock/appdock/internal/foundation/errors"
)

// JobRecord is the durable audit row for a completed job. The live queue is
// deliberately in-memory; only terminal outcomes are persisted so operators
// can answer "what happened to job N" after a restart.
type JobRecord struct {
	JobID       uint64     `json:"job_id"`
	Kind        string     `json:"kind"`
	AppID       string     `json:"app_id"`
	Status      string     `json:"status"`
	Detail      string     `json:"detail,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// RecordJob writes (or overwrites) the audit row for a job.
func (s *Store) RecordJob(ctx context.Context, r JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var started, finished any
	if r.StartedAt != nil {
		started = r.StartedAt.Unix()
	}
	if r.FinishedAt != nil {
		finished = r.FinishedAt.Unix()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_audit (job_id, kind, app_id, status, detail, submitted_at, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET
			status = excluded.status,
			detail = excluded.detail,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at`,
		r.JobID, r.Kind, r.AppID, r.Status, r.Detail, r.SubmittedAt.Unix(), started, finished)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryStore, "persist job audit record").
			Fatal().WithContext("job_id", r.JobID).Build()
	}
	return nil
}

// JobAudit looks up the audit row for a job id.
func (s *Store) JobAudit(ctx context.Context, jobID uint64) (JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var r JobRecord
	var submitted int64
	var started, finished sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT job_id, kind, app_id, status, detail, submitted_at, started_at, finished_at
		FROM job_audit WHERE job_id = ?`, jobID).
		Scan(&r.JobID, &r.Kind, &r.AppID, &r.Status, &r.Detail, &submitted, &started, &finished)
	if err == sql.ErrNoRows {
		return JobRecord{}, ferrors.NotFoundError("job not known").WithContext("job_id", jobID).Build()
	}
	if err != nil {
		return JobRecord{}, ferrors.WrapError(err, ferrors.CategoryStore, "read job audit record").Build()
	}

	r.SubmittedAt = time.Unix(submitted, 0)
	if started.Valid {
		t := time.Unix(started.Int64, 0)
		r.StartedAt = &t
	}
	if finished.Valid {
		t := time.Unix(finished.Int64, 0)
		r.FinishedAt = &t
	}
	return r, nil
}

// PruneAudit deletes audit rows finished before the cutoff and returns how
// many were removed.
func (s *Store) PruneAudit(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM job_audit WHERE finished_at IS NOT NULL AND finished_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, ferrors.WrapError(err, ferrors.CategoryStore, "prune job audit records").Build()
	}
	n, _ := res.RowsAffected()
	return n, nil
}
