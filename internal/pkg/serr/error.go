package serr

import (
	"fmt"
	"runtime/debug"
)

// ServiceError is an error that carries the status and the client facing message
// a transport layer should respond with.
type ServiceError struct {
	Err        error
	Msg        string
	StackTrace string
	StatusCode int
	Env        map[string]string
}

func NewServiceError(err error, statusCode int, msg string, args ...any) *ServiceError {
	return &ServiceError{
		Err:        err,
		Msg:        fmt.Sprintf(msg, args...),
		StatusCode: statusCode,
		StackTrace: string(debug.Stack()),
		Env:        make(map[string]string),
	}
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}
