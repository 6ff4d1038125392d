package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifiedError_Error(t *testing.T) {
	err := HandlerError("install failed").WithContext("app_id", "nginx").Build()
	require.Equal(t, "[handler:error] install failed", err.Error())
	require.Equal(t, CategoryHandler, err.Category())
	require.Equal(t, RetryReissue, err.RetryStrategy())

	v, ok := err.Context().Get("app_id")
	require.True(t, ok)
	require.Equal(t, "nginx", v)
}

func TestClassifiedError_WrapsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := ProvisionError("environment create failed").Build()
	wrapped := WrapError(cause, CategoryProvision, "environment create failed").Build()

	require.ErrorIs(t, wrapped, cause)
	require.Contains(t, wrapped.Error(), "connection refused")
	// Same category + message compare equal regardless of cause.
	require.True(t, stderrors.Is(wrapped, err))
}

func TestSeverityRouting(t *testing.T) {
	require.False(t, IsFatal(TimeoutError("job exceeded deadline").Build()))
	require.False(t, IsFatal(UnrecognizedJobError("kind 99").Build()))
	require.True(t, IsFatal(StoreError("database unreachable").Build()))
	require.True(t, IsFatal(SchemaError("schema version 9 is newer than supported 2").Build()))
	require.False(t, IsFatal(fmt.Errorf("plain error")))
}

func TestHasCategory(t *testing.T) {
	err := QueueFullError("queue at capacity").WithContext("depth", 64).Build()
	require.True(t, HasCategory(err, CategoryQueue))
	require.False(t, HasCategory(err, CategoryHandler))
	require.False(t, HasCategory(stderrors.New("plain"), CategoryQueue))
	require.Equal(t, CategoryInternal, GetCategory(stderrors.New("plain")))
}

func TestWithContextDoesNotMutateOriginal(t *testing.T) {
	base := StateError("cannot stop app that is not running").Build()
	derived := base.WithContext("run_status", "stopped")

	_, ok := base.Context().Get("run_status")
	require.False(t, ok)
	_, ok = derived.Context().Get("run_status")
	require.True(t, ok)
}
