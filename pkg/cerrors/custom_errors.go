package cerrors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Error is the user-friendly error raised by every component of the harness.
// It renders as a compact json document so that it can be copied verbatim into the result.
type Error struct {
	ErrorCode ErrorType `json:"errorCode"`
	Phase     string    `json:"phase,omitempty"`
	Reason    string    `json:"reason"`
	Target    string    `json:"target,omitempty"`
}

func (e Error) Error() string {
	out, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf("%s: %s", e.ErrorCode, e.Reason)
	}
	return string(out)
}

func (e Error) UserFriendly() bool {
	return true
}

func (e Error) ErrorType() ErrorType {
	return e.ErrorCode
}

// Engine is raised when the storage engine exits with a non-zero status
type Engine struct {
	Command  string
	ExitCode int
	Stderr   string
	Reason   string
}

func (e Engine) Error() string {
	msg := fmt.Sprintf("engine command '%s' failed with exit code %d", e.Command, e.ExitCode)
	if e.Reason != "" {
		msg += ", " + e.Reason
	}
	if e.Stderr != "" {
		msg += ", stderr: " + e.Stderr
	}
	return msg
}

func (e Engine) UserFriendly() bool {
	return true
}

func (e Engine) ErrorType() ErrorType {
	switch e.ExitCode {
	case TimeoutExitCode:
		return ErrorTypeTimeout
	case CanceledExitCode:
		return ErrorTypeGeneric
	}
	return ErrorTypeEngine
}

const (
	// TimeoutExitCode marks an engine invocation killed after its deadline
	TimeoutExitCode = -2
	// CanceledExitCode marks an engine invocation killed because the campaign was interrupted
	CanceledExitCode = -3
)

// ContextExitCode returns the exit code recorded for an invocation stopped by ctxErr
func ContextExitCode(ctxErr error) int {
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return TimeoutExitCode
	}
	return CanceledExitCode
}
