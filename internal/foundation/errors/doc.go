// Package errors provides classified errors for appdock.
//
// Every error that crosses a package boundary carries a category (what
// subsystem failed), a severity (whether the worker loop, the current job, or
// nothing dies) and a retry strategy (whether re-issuing the job can help).
// The worker uses the severity to decide between failing the current job and
// stopping the daemon.
package errors
