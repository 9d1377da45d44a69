// Package errors implements the error code system shared by mongokit packages.
//
// Every error is an *Errno: a globally unique numeric code with English and
// Chinese messages plus the HTTP and gRPC status it maps to. Codes have the
// form AABBCCC:
//
//	AA  (00-99): service or module (see the Service* constants)
//	BB  (00-99): category (see the Category* constants)
//	CCC (000-999): sequence inside the category
//
// Errors compare by code, so errors.Is(err, ErrNotFound) matches any
// derivative produced with WithMessage or WithCause:
//
//	return errors.ErrNotFound.WithMessagef("tree node %s", id.Hex())
//	return errors.ErrDatabase.WithCause(err)
//
// Modules define their own codes with the builder:
//
//	var ErrParentMissing = errors.NewRequestError(errors.ServiceTree, 1).
//	    Message("Parent does not exist", "父节点不存在").
//	    MustBuild()
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"sync"

	"google.golang.org/grpc/codes"
)

// Errno represents a structured error with code and messages.
type Errno struct {
	// Code is the unique error code.
	Code int `json:"code"`

	// HTTP is the HTTP status code to return.
	HTTP int `json:"-"`

	// GRPCCode is the gRPC status code.
	GRPCCode codes.Code `json:"-"`

	// MessageEN is the English error message.
	MessageEN string `json:"message"`

	// MessageZH is the Chinese error message.
	MessageZH string `json:"message_zh,omitempty"`

	cause error
}

// Error implements the error interface.
func (e *Errno) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("errno %d: %s: %v", e.Code, e.MessageEN, e.cause)
	}
	return fmt.Sprintf("errno %d: %s", e.Code, e.MessageEN)
}

// Unwrap returns the underlying cause.
func (e *Errno) Unwrap() error {
	return e.cause
}

func (e *Errno) clone() *Errno {
	c := *e
	return &c
}

// WithCause returns a copy of e wrapping cause.
func (e *Errno) WithCause(cause error) *Errno {
	c := e.clone()
	c.cause = cause
	return c
}

// WithMessage returns a copy of e with a custom English message.
func (e *Errno) WithMessage(msg string) *Errno {
	c := e.clone()
	c.MessageEN = msg
	return c
}

// WithMessagef returns a copy of e with a formatted English message.
func (e *Errno) WithMessagef(format string, args ...interface{}) *Errno {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// WithMessages returns a copy of e with both messages replaced.
func (e *Errno) WithMessages(en, zh string) *Errno {
	c := e.clone()
	c.MessageEN = en
	c.MessageZH = zh
	return c
}

// Message returns the message for lang, falling back to English.
func (e *Errno) Message(lang string) string {
	switch lang {
	case "zh", "zh-CN", "zh_CN":
		if e.MessageZH != "" {
			return e.MessageZH
		}
	}
	return e.MessageEN
}

// HTTPStatus returns the HTTP status code.
func (e *Errno) HTTPStatus() int {
	if e.HTTP != 0 {
		return e.HTTP
	}
	return http.StatusInternalServerError
}

// GRPCStatus returns the gRPC status code.
func (e *Errno) GRPCStatus() codes.Code {
	if e.GRPCCode != codes.OK {
		return e.GRPCCode
	}
	return codes.Internal
}

// Is reports whether target is an *Errno with the same code.
func (e *Errno) Is(target error) bool {
	if t, ok := target.(*Errno); ok {
		return e.Code == t.Code
	}
	return false
}

// Format implements fmt.Formatter. %+v prints status mapping and the cause chain.
func (e *Errno) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			_, _ = fmt.Fprintf(s, "errno %d [HTTP %d, gRPC %s]: %s", e.Code, e.HTTPStatus(), e.GRPCStatus().String(), e.MessageEN)
			if e.cause != nil {
				_, _ = fmt.Fprintf(s, "\ncaused by: %+v", e.cause)
			}
			return
		}
		fallthrough
	case 's':
		_, _ = fmt.Fprint(s, e.Error())
	case 'q':
		_, _ = fmt.Fprintf(s, "%q", e.Error())
	}
}

var (
	errnoRegistry = make(map[int]*Errno)
	registryMu    sync.RWMutex
)

// Register records e in the global registry.
// Panics if the code is already taken.
func Register(e *Errno) *Errno {
	registryMu.Lock()
	defer registryMu.Unlock()

	if existing, ok := errnoRegistry[e.Code]; ok {
		panic(fmt.Sprintf("errno code %d already registered: %s", e.Code, existing.MessageEN))
	}
	errnoRegistry[e.Code] = e
	return e
}

// Lookup returns the registered Errno for code.
func Lookup(code int) (*Errno, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	e, ok := errnoRegistry[code]
	return e, ok
}

// RegistrySize returns the number of registered codes.
func RegistrySize() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(errnoRegistry)
}

// FromError converts err to an *Errno.
// The outermost errno in the chain wins, anything else becomes ErrInternal.
func FromError(err error) *Errno {
	if err == nil {
		return nil
	}
	if e := find(err); e != nil {
		return e
	}
	return ErrInternal.WithCause(err)
}

// find walks the wrap chain looking for an *Errno or an error that knows its
// own errno (see service.RuleError).
func find(err error) *Errno {
	for err != nil {
		switch e := err.(type) {
		case *Errno:
			return e
		case interface{ Errno() *Errno }:
			return e.Errno()
		}
		err = stderrors.Unwrap(err)
	}
	return nil
}

// IsCode reports whether err carries code.
func IsCode(err error, code int) bool {
	return GetCode(err) == code
}

// GetCode returns the code carried by err, or -1 when it has none.
func GetCode(err error) int {
	if e := find(err); e != nil {
		return e.Code
	}
	return -1
}
