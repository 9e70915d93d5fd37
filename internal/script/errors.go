package script

import (
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// CompileError is a script that failed to parse or compile.
type CompileError struct {
	NodeID string
	Err    error
}

func (e *CompileError) Error() string {
	return e.Err.Error()
}

func (e *CompileError) Unwrap() error { return e.Err }

// RuntimeError is a script that raised an error while executing.
type RuntimeError struct {
	NodeID  string
	Message string
	Trace   string
}

func (e *RuntimeError) Error() string {
	return e.Message
}

func runtimeError(nodeID string, err error) *RuntimeError {
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) {
		msg := ""
		if apiErr.Object != nil {
			msg = apiErr.Object.String()
		}
		if msg == "" && apiErr.Cause != nil {
			msg = apiErr.Cause.Error()
		}
		return &RuntimeError{NodeID: nodeID, Message: msg, Trace: apiErr.StackTrace}
	}
	return &RuntimeError{NodeID: nodeID, Message: err.Error()}
}

func panicError(nodeID string, rcv any) *RuntimeError {
	return &RuntimeError{NodeID: nodeID, Message: fmt.Sprint(rcv)}
}
