package engine

import "fmt"

// LoadError reports a failed engine initialization. The pipeline cannot
// proceed past it.
type LoadError struct {
	Message string
	Err     error
}

// Error formats the load failure.
func (e *LoadError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("engine load: %s", e.Message)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *LoadError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// MuxError reports a failed transcoding invocation (audio extraction or
// subtitle burn-in) with optional command context.
type MuxError struct {
	Op         string
	Message    string
	CommandLog CommandLog
	Err        error
}

// Error formats transcoding failures for logs and UI.
func (e *MuxError) Error() string {
	if e == nil {
		return ""
	}
	if e.CommandLog.Command == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf(
		"%s: %s (cmd=%s exit=%d)",
		e.Op,
		e.Message,
		e.CommandLog.Command,
		e.CommandLog.ExitCode,
	)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *MuxError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
