package cerrors

import "github.com/palantir/stacktrace"

type ErrorType string

const (
	ErrorTypeNonUserFriendly ErrorType = "NON_USER_FRIENDLY_ERROR"
	ErrorTypeGeneric         ErrorType = "GENERIC_ERROR"
	ErrorTypeSetup           ErrorType = "SETUP_ERROR"
	ErrorTypeEngine          ErrorType = "ENGINE_ERROR"
	ErrorTypeVerification    ErrorType = "VERIFICATION_ERROR"
	ErrorTypeFaultInjection  ErrorType = "FAULT_INJECTION_ERROR"
	ErrorTypeStatusChecks    ErrorType = "STATUS_CHECKS_ERROR"
	ErrorTypeTimeout         ErrorType = "TIMEOUT_ERROR"
	ErrorTypeResult          ErrorType = "RESULT_WRITE_ERROR"
)

type userFriendly interface {
	UserFriendly() bool
	ErrorType() ErrorType
}

// IsUserFriendly returns true if err is marked as safe to present to failstep
func IsUserFriendly(err error) bool {
	ufe, ok := err.(userFriendly)
	return ok && ufe.UserFriendly()
}

// GetErrorType returns the type of error if the error is user-friendly
func GetErrorType(err error) ErrorType {
	if ufe, ok := err.(userFriendly); ok {
		return ufe.ErrorType()
	}
	return ErrorTypeNonUserFriendly
}

// GetRootCauseAndErrorCode unwraps the propagated stack and returns the message
// to record as fail step along with its error type
func GetRootCauseAndErrorCode(err error) (string, ErrorType) {
	rootCause := stacktrace.RootCause(err)
	errorType := GetErrorType(rootCause)
	if !IsUserFriendly(rootCause) {
		return err.Error(), errorType
	}
	return rootCause.Error(), errorType
}
