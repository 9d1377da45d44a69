package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/grpc/codes"
)

func TestMakeCode(t *testing.T) {
	tests := []struct {
		service  int
		category int
		sequence int
		expected int
	}{
		{0, 0, 0, 0},
		{0, 1, 1, 1001},
		{0, 8, 3, 8003},
		{21, 1, 2, 2101002},
		{22, 4, 1, 2204001},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%d_%d", tt.service, tt.category, tt.sequence), func(t *testing.T) {
			got := MakeCode(tt.service, tt.category, tt.sequence)
			if got != tt.expected {
				t.Errorf("MakeCode(%d, %d, %d) = %d, want %d",
					tt.service, tt.category, tt.sequence, got, tt.expected)
			}

			s, c, q := ParseCode(got)
			if s != tt.service || c != tt.category || q != tt.sequence {
				t.Errorf("ParseCode(%d) = (%d, %d, %d)", got, s, c, q)
			}
		})
	}
}

func TestCodeClassification(t *testing.T) {
	if !IsSuccess(0) || IsSuccess(1001) {
		t.Error("IsSuccess misclassifies codes")
	}
	if !IsClientError(2101002) {
		t.Error("request category should be a client error")
	}
	if IsClientError(2107001) {
		t.Error("internal category should not be a client error")
	}
	if !IsServerError(8003) {
		t.Error("database category should be a server error")
	}
	if GetService(2204001) != 22 || GetCategory(2204001) != 4 || GetSequence(2204001) != 1 {
		t.Error("GetService/GetCategory/GetSequence disagree with ParseCode")
	}
}

func TestErrnoError(t *testing.T) {
	if got, want := ErrInvalidParam.Error(), "errno 1001: Invalid parameter"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	cause := fmt.Errorf("boom")
	err := ErrDatabase.WithCause(cause)
	if got, want := err.Error(), "errno 8000: Database error: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap() should return the cause")
	}
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should reach the cause")
	}
}

func TestErrnoDerivativesKeepCode(t *testing.T) {
	derived := []*Errno{
		ErrNotFound.WithMessage("tree node missing"),
		ErrNotFound.WithMessagef("tree node %d missing", 3),
		ErrNotFound.WithMessages("missing", "缺失"),
		ErrNotFound.WithCause(fmt.Errorf("x")),
	}

	for _, d := range derived {
		if !stderrors.Is(d, ErrNotFound) {
			t.Errorf("%v should match ErrNotFound", d)
		}
		if stderrors.Is(d, ErrConflict) {
			t.Errorf("%v should not match ErrConflict", d)
		}
	}

	if ErrNotFound.MessageEN != "Resource not found" {
		t.Error("derivatives must not mutate the registered errno")
	}
}

func TestErrnoMessage(t *testing.T) {
	err := &Errno{Code: 1001, MessageEN: "English", MessageZH: "中文"}

	if got := err.Message("en"); got != "English" {
		t.Errorf("Message(en) = %q", got)
	}
	if got := err.Message("zh-CN"); got != "中文" {
		t.Errorf("Message(zh-CN) = %q", got)
	}

	noZH := &Errno{Code: 1002, MessageEN: "only english"}
	if got := noZH.Message("zh"); got != "only english" {
		t.Errorf("Message(zh) fallback = %q", got)
	}
}

func TestErrnoStatus(t *testing.T) {
	if got := ErrInvalidParam.HTTPStatus(); got != http.StatusBadRequest {
		t.Errorf("HTTPStatus() = %d", got)
	}
	if got := ErrNotFound.GRPCStatus(); got != codes.NotFound {
		t.Errorf("GRPCStatus() = %v", got)
	}

	empty := &Errno{}
	if empty.HTTPStatus() != http.StatusInternalServerError || empty.GRPCStatus() != codes.Internal {
		t.Error("zero Errno should map to 500 / Internal")
	}
}

type coded struct{ cause error }

func (c coded) Error() string { return "coded" }
func (c coded) Unwrap() error { return c.cause }
func (c coded) Errno() *Errno { return ErrConflict }

func TestFromError(t *testing.T) {
	if FromError(nil) != nil {
		t.Error("FromError(nil) should be nil")
	}

	plain := fmt.Errorf("plain")
	if got := FromError(plain); got.Code != ErrInternal.Code || got.Unwrap() != plain {
		t.Errorf("plain errors should become ErrInternal, got %v", got)
	}

	wrapped := fmt.Errorf("ctx: %w", ErrNotFound)
	if got := FromError(wrapped); got.Code != ErrNotFound.Code {
		t.Errorf("wrapped errno lost, got %v", got)
	}

	// The outermost coded error wins over errnos it wraps.
	outer := coded{cause: ErrNotFound}
	if got := GetCode(outer); got != ErrConflict.Code {
		t.Errorf("GetCode() = %d, want %d", got, ErrConflict.Code)
	}
	if !IsCode(outer, ErrConflict.Code) {
		t.Error("IsCode should match the outer code")
	}
	if GetCode(plain) != -1 {
		t.Error("GetCode of a plain error should be -1")
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Register should panic on a duplicate code")
		}
	}()
	Register(&Errno{Code: ErrNotFound.Code, MessageEN: "dup"})
}

func TestLookup(t *testing.T) {
	e, ok := Lookup(ErrDatabase.Code)
	if !ok || e != ErrDatabase {
		t.Error("Lookup should return the registered errno")
	}
	if _, ok := Lookup(9999999); ok {
		t.Error("Lookup of an unknown code should fail")
	}
	if RegistrySize() == 0 {
		t.Error("registry should not be empty")
	}
}

func TestErrnoFormat(t *testing.T) {
	err := ErrDatabase.WithCause(fmt.Errorf("down"))
	got := fmt.Sprintf("%+v", err)
	want := "errno 8000 [HTTP 500, gRPC Internal]: Database error\ncaused by: down"
	if got != want {
		t.Errorf("%%+v = %q, want %q", got, want)
	}
	if s := fmt.Sprintf("%s", err); s != err.Error() {
		t.Errorf("%%s = %q", s)
	}
}
