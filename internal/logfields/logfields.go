package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyJobID      = "job_id"
	KeyJobKind    = "job_kind"
	KeyJobStatus  = "job_status"
	KeyAppID      = "app_id"
	KeyRevision   = "revision"
	KeyEndpoint   = "endpoint"
	KeyDurationMS = "duration_ms"
	KeyQueueDepth = "queue_depth"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func JobID(id uint64) slog.Attr        { return slog.Uint64(KeyJobID, id) }
func JobKind(k string) slog.Attr       { return slog.String(KeyJobKind, k) }
func JobStatus(s string) slog.Attr     { return slog.String(KeyJobStatus, s) }
func AppID(id string) slog.Attr        { return slog.String(KeyAppID, id) }
func Revision(rev uint64) slog.Attr    { return slog.Uint64(KeyRevision, rev) }
func Endpoint(url string) slog.Attr    { return slog.String(KeyEndpoint, url) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func QueueDepth(n int) slog.Attr       { return slog.Int(KeyQueueDepth, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
