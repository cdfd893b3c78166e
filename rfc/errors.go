package rfc

import (
	"errors"
	"fmt"
)

// CallError is a failed native engine call: the result code and message from
// the engine's error info, plus the operation that produced it.
type CallError struct {
	// Op is the native operation that failed, e.g. "LaunchServer".
	Op      string
	Code    ResultCode
	Key     string
	Message string
}

func (e *CallError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("rfc: %s failed: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("rfc: %s failed: %s: %s", e.Op, e.Code, e.Message)
}

// CallErrorFrom converts a non-OK ErrorInfo into a *CallError. It returns nil
// when the info reports success.
func CallErrorFrom(op string, info ErrorInfo) error {
	if info.OK() {
		return nil
	}
	return &CallError{Op: op, Code: info.Code, Key: info.Key, Message: info.Message}
}

// CodeOf extracts the result code carried by err. Any error that is not a
// *CallError maps to ExternalFailure: it originated on the host side of the
// boundary.
func CodeOf(err error) ResultCode {
	if err == nil {
		return OK
	}
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ExternalFailure
}

// InfoOf renders err as the ErrorInfo to hand back to the engine. The typed
// detail of host errors does not survive the boundary; only the message does.
func InfoOf(err error) ErrorInfo {
	if err == nil {
		return ErrorInfo{}
	}
	var ce *CallError
	if errors.As(err, &ce) {
		return ErrorInfo{Code: ce.Code, Key: ce.Key, Message: ce.Message}
	}
	return ErrorInfo{Code: ExternalFailure, Message: err.Error()}
}
