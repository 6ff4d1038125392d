package errors

// ErrorBuilder provides a fluent API for creating ClassifiedError instances.
type ErrorBuilder struct {
	category ErrorCategory
	severity ErrorSeverity
	retry    RetryStrategy
	message  string
	cause    error
	context  ErrorContext
}

// NewError creates a new ErrorBuilder with the specified category and message.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{
		category: category,
		severity: SeverityError,
		retry:    RetryNever,
		message:  message,
		context:  make(ErrorContext),
	}
}

// WrapError creates a new ErrorBuilder that wraps an existing error.
func WrapError(err error, category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{
		category: category,
		severity: SeverityError,
		retry:    RetryNever,
		message:  message,
		cause:    err,
		context:  make(ErrorContext),
	}
}

// WithSeverity sets the error severity.
func (b *ErrorBuilder) WithSeverity(severity ErrorSeverity) *ErrorBuilder {
	b.severity = severity
	return b
}

// WithRetry sets the retry strategy.
func (b *ErrorBuilder) WithRetry(strategy RetryStrategy) *ErrorBuilder {
	b.retry = strategy
	return b
}

// WithContext adds a context key-value pair.
func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.context = b.context.Set(key, value)
	return b
}

// Fatal sets the severity to fatal.
func (b *ErrorBuilder) Fatal() *ErrorBuilder {
	return b.WithSeverity(SeverityFatal)
}

// Warning sets the severity to warning.
func (b *ErrorBuilder) Warning() *ErrorBuilder {
	return b.WithSeverity(SeverityWarning)
}

// Reissuable marks the error as recoverable by submitting a fresh job.
func (b *ErrorBuilder) Reissuable() *ErrorBuilder {
	return b.WithRetry(RetryReissue)
}

// Transient sets the retry strategy to backoff.
func (b *ErrorBuilder) Transient() *ErrorBuilder {
	return b.WithRetry(RetryBackoff)
}

// UserAction sets the retry strategy to require user action.
func (b *ErrorBuilder) UserAction() *ErrorBuilder {
	return b.WithRetry(RetryUserAction)
}

// Build creates the final ClassifiedError.
func (b *ErrorBuilder) Build() *ClassifiedError {
	return &ClassifiedError{
		category: b.category,
		severity: b.severity,
		retry:    b.retry,
		message:  b.message,
		cause:    b.cause,
		context:  b.context,
	}
}

// Convenience constructors for the orchestration error taxonomy.

// ConfigError creates a configuration error.
func ConfigError(message string) *ErrorBuilder {
	return NewError(CategoryConfig, message).Fatal()
}

// ValidationError creates a validation error.
func ValidationError(message string) *ErrorBuilder {
	return NewError(CategoryValidation, message)
}

// NotFoundError creates a lookup-miss error.
func NotFoundError(message string) *ErrorBuilder {
	return NewError(CategoryNotFound, message)
}

// QueueFullError reports that a bounded queue rejected an enqueue.
func QueueFullError(message string) *ErrorBuilder {
	return NewError(CategoryQueue, message).Transient()
}

// UnrecognizedJobError reports that the dispatcher has no handler for a job kind.
func UnrecognizedJobError(message string) *ErrorBuilder {
	return NewError(CategoryDispatch, message)
}

// HandlerError creates a job handler failure.
func HandlerError(message string) *ErrorBuilder {
	return NewError(CategoryHandler, message).Reissuable()
}

// TimeoutError reports that a handler exceeded its allotted time.
func TimeoutError(message string) *ErrorBuilder {
	return NewError(CategoryTimeout, message).Reissuable()
}

// StateError creates a state-machine violation error.
func StateError(message string) *ErrorBuilder {
	return NewError(CategoryState, message).UserAction()
}

// StoreError creates a fatal persistence-layer error. A worker that cannot
// commit has no source of truth and must not continue.
func StoreError(message string) *ErrorBuilder {
	return NewError(CategoryStore, message).Fatal()
}

// SchemaError reports persisted data the binary cannot interpret. Distinct
// from StoreError: the store is reachable, the data is not usable.
func SchemaError(message string) *ErrorBuilder {
	return NewError(CategorySchema, message).Fatal().UserAction()
}

// TranslateError creates an installer-script translation error.
func TranslateError(message string) *ErrorBuilder {
	return NewError(CategoryTranslate, message).UserAction()
}

// ProvisionError creates an environment provisioning error.
func ProvisionError(message string) *ErrorBuilder {
	return NewError(CategoryProvision, message).Reissuable()
}

// ProcessError creates a process start/stop error.
func ProcessError(message string) *ErrorBuilder {
	return NewError(CategoryProcess, message).Reissuable()
}

// CatalogError creates a catalog lookup/load error.
func CatalogError(message string) *ErrorBuilder {
	return NewError(CategoryCatalog, message)
}

// RuntimeError creates a runtime error.
func RuntimeError(message string) *ErrorBuilder {
	return NewError(CategoryRuntime, message).Fatal()
}

// DaemonError creates a daemon error.
func DaemonError(message string) *ErrorBuilder {
	return NewError(CategoryDaemon, message).Fatal()
}

// InternalError creates an internal error.
func InternalError(message string) *ErrorBuilder {
	return NewError(CategoryInternal, message).Fatal()
}
