package rfc

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestCallErrorFromOK(t *testing.T) {
	if err := CallErrorFrom("LaunchServer", ErrorInfo{}); err != nil {
		t.Fatalf("expected nil for OK info, got %v", err)
	}
}

func TestCallErrorFromFailure(t *testing.T) {
	info := Errorf(CommunicationFailure, "RFC_COMMUNICATION_FAILURE", "gateway unreachable")
	err := CallErrorFrom("CreateServer", info)
	if err == nil {
		t.Fatal("expected an error for non-OK info")
	}
	var ce *CallError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CallError, got %T", err)
	}
	if ce.Op != "CreateServer" || ce.Code != CommunicationFailure {
		t.Fatalf("unexpected call error: %+v", ce)
	}
	if !strings.Contains(err.Error(), "COMMUNICATION_FAILURE") || !strings.Contains(err.Error(), "gateway unreachable") {
		t.Fatalf("error text missing detail: %q", err.Error())
	}
}

func TestCodeOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ResultCode
	}{
		{"nil", nil, OK},
		{"call error", &CallError{Op: "x", Code: NotFound}, NotFound},
		{"wrapped call error", fmt.Errorf("ctx: %w", &CallError{Op: "x", Code: LogonFailure}), LogonFailure},
		{"host error", errors.New("boom"), ExternalFailure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CodeOf(tc.err); got != tc.want {
				t.Fatalf("CodeOf = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestInfoOf(t *testing.T) {
	info := InfoOf(errors.New("handler blew up"))
	if info.Code != ExternalFailure {
		t.Fatalf("host error should map to ExternalFailure, got %s", info.Code)
	}
	if info.Message != "handler blew up" {
		t.Fatalf("message not preserved: %q", info.Message)
	}

	info = InfoOf(&CallError{Op: "GetCachedFunctionDesc", Code: NotFound, Key: "FU_NOT_FOUND", Message: "missing"})
	if info.Code != NotFound || info.Key != "FU_NOT_FOUND" {
		t.Fatalf("native code not preserved: %+v", info)
	}
}

func TestResultCodeString(t *testing.T) {
	if OK.String() != "OK" {
		t.Fatalf("OK string: %q", OK.String())
	}
	if ExternalFailure.String() != "EXTERNAL_FAILURE" {
		t.Fatalf("ExternalFailure string: %q", ExternalFailure.String())
	}
	if ResultCode(999).String() != "UNKNOWN_ERROR" {
		t.Fatalf("out-of-range code should read UNKNOWN_ERROR")
	}
}
