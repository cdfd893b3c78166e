package rfc

// ResultCode is the native engine's status enumeration. Every native call
// returns one, either directly or embedded in an ErrorInfo.
type ResultCode int

const (
	// OK indicates the call completed successfully.
	OK ResultCode = iota
	// CommunicationFailure indicates a network-level failure talking to the
	// remote system or gateway.
	CommunicationFailure
	// LogonFailure indicates the remote system rejected the credentials in
	// the connection parameters.
	LogonFailure
	// ABAPRuntimeFailure indicates the remote function aborted inside the
	// remote system.
	ABAPRuntimeFailure
	// ABAPException indicates the remote function raised a defined exception.
	ABAPException
	// NotFound indicates a function or repository entry does not exist.
	NotFound
	// InvalidHandle indicates a handle was already closed or never valid.
	InvalidHandle
	// InvalidParameter indicates a malformed argument to a native call.
	InvalidParameter
	// Canceled indicates the call was canceled before completion.
	Canceled
	// Timeout indicates the engine gave up waiting on the remote side.
	Timeout
	// ExternalFailure indicates host-side handler logic failed while
	// processing an inbound call. The engine reports it to the remote caller.
	ExternalFailure
	// UnknownError covers everything the engine could not classify.
	UnknownError
)

var codeNames = map[ResultCode]string{
	OK:                   "OK",
	CommunicationFailure: "COMMUNICATION_FAILURE",
	LogonFailure:         "LOGON_FAILURE",
	ABAPRuntimeFailure:   "ABAP_RUNTIME_FAILURE",
	ABAPException:        "ABAP_EXCEPTION",
	NotFound:             "NOT_FOUND",
	InvalidHandle:        "INVALID_HANDLE",
	InvalidParameter:     "INVALID_PARAMETER",
	Canceled:             "CANCELED",
	Timeout:              "TIMEOUT",
	ExternalFailure:      "EXTERNAL_FAILURE",
	UnknownError:         "UNKNOWN_ERROR",
}

func (c ResultCode) String() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return "UNKNOWN_ERROR"
}

// ErrorInfo is produced by every native engine call: a result code plus a
// human-readable message. A non-OK code must always surface to the caller as
// a failure; it is never silently dropped.
type ErrorInfo struct {
	Code ResultCode
	// Key is the engine's short error identifier, when it supplies one.
	Key string
	// Message is the human-readable description.
	Message string
}

// OK reports whether the call that produced this info succeeded.
func (e ErrorInfo) OK() bool { return e.Code == OK }

// Errorf builds a non-OK ErrorInfo. Intended for engine implementations and
// test fakes.
func Errorf(code ResultCode, key, message string) ErrorInfo {
	return ErrorInfo{Code: code, Key: key, Message: message}
}
