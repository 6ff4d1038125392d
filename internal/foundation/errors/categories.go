package errors

import "maps"

// ErrorCategory represents the broad category of an error for classification and routing.
type ErrorCategory string

const (
	// CategoryConfig represents user-facing configuration and input errors.
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryNotFound   ErrorCategory = "not_found"

	// CategoryQueue covers job admission failures (full queue, closed queue).
	CategoryQueue    ErrorCategory = "queue"
	CategoryDispatch ErrorCategory = "dispatch"
	CategoryHandler  ErrorCategory = "handler"
	CategoryTimeout  ErrorCategory = "timeout"

	// CategoryState covers state-machine violations; CategoryStore covers the
	// persistence layer underneath it.
	CategoryState  ErrorCategory = "state"
	CategoryStore  ErrorCategory = "store"
	CategorySchema ErrorCategory = "schema"

	// Collaborator failures, wrapped into handler errors by the dispatcher.
	CategoryTranslate ErrorCategory = "translate"
	CategoryProvision ErrorCategory = "provision"
	CategoryProcess   ErrorCategory = "process"
	CategoryCatalog   ErrorCategory = "catalog"

	// CategoryRuntime represents runtime and infrastructure errors.
	CategoryRuntime  ErrorCategory = "runtime"
	CategoryDaemon   ErrorCategory = "daemon"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates the impact level of an error.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops the daemon
	SeverityError   ErrorSeverity = "error"   // Fails the current job
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// RetryStrategy indicates how an error should be handled when re-issuing work.
type RetryStrategy string

const (
	RetryNever      RetryStrategy = "never"   // Permanent failure, re-issuing won't help
	RetryReissue    RetryStrategy = "reissue" // A fresh job of the same kind may succeed
	RetryBackoff    RetryStrategy = "backoff" // Transient downstream condition
	RetryUserAction RetryStrategy = "user"    // Requires user intervention
)

// ErrorContext provides structured context for errors.
type ErrorContext map[string]any

// Set adds or updates a context value.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	if c == nil {
		c = make(ErrorContext)
	}
	c[key] = value
	return c
}

// Get retrieves a context value.
func (c ErrorContext) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	value, exists := c[key]
	return value, exists
}

// Merge combines two contexts, with other taking precedence.
func (c ErrorContext) Merge(other ErrorContext) ErrorContext {
	if c == nil {
		return other
	}
	if other == nil {
		return c
	}
	result := make(ErrorContext)
	maps.Copy(result, c)
	maps.Copy(result, other)
	return result
}
