package errors

import (
	"errors"
	"fmt"
)

const (
	ErrNotFound     = "NOT FOUND"
	ErrInvalidInput = "INVALID INPUT"
	ErrAuth         = "UNAUTHORIZED"
	ErrAccessDenied = "ACCESS DENIED"
	ErrConflict     = "CONFLICT"
	ErrInternal     = "INTERNAL"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e ErrorResponse) Error() string {
	return fmt.Sprintf("code: %s, message: %s", e.Code, e.Message)
}

// CodeOf returns the app error code of err, looking through fmt.Errorf
// wrapping, or ErrInternal when no ErrorResponse is in the chain.
func CodeOf(err error) string {
	var appErr ErrorResponse
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

func New(code string, message string) ErrorResponse {
	return ErrorResponse{Code: code, Message: message}
}

func Newf(code string, format string, args ...interface{}) ErrorResponse {
	return ErrorResponse{Code: code, Message: fmt.Sprintf(format, args...)}
}
