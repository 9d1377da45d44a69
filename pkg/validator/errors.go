package validator

import (
	"fmt"
	"strings"

	"github.com/kart-io/mongokit/pkg/errors"
)

// ValidationErrors collects the field failures of one validation.
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

// FieldError is a single failed field.
type FieldError struct {
	Field   string      `json:"field"`
	Tag     string      `json:"tag"`
	Value   interface{} `json:"value,omitempty"`
	Param   string      `json:"param,omitempty"`
	Message string      `json:"message"`
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if v == nil || len(v.Errors) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("validation failed: ")
	for i, fe := range v.Errors {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(fe.Message)
	}
	return sb.String()
}

// Errno maps the failure to errors.ErrValidationFailed.
func (v *ValidationErrors) Errno() *errors.Errno {
	return errors.ErrValidationFailed.WithMessage(v.First())
}

// HasErrors reports whether any field failed.
func (v *ValidationErrors) HasErrors() bool {
	return v != nil && len(v.Errors) > 0
}

// First returns the first message.
func (v *ValidationErrors) First() string {
	if !v.HasErrors() {
		return ""
	}
	return v.Errors[0].Message
}

// ByField groups the messages by field name.
func (v *ValidationErrors) ByField() map[string][]string {
	if !v.HasErrors() {
		return nil
	}

	result := make(map[string][]string)
	for _, fe := range v.Errors {
		result[fe.Field] = append(result[fe.Field], fe.Message)
	}
	return result
}

// Format implements fmt.Formatter. %+v lists every field with its tag.
func (v *ValidationErrors) Format(f fmt.State, verb rune) {
	if verb == 'v' && f.Flag('+') {
		_, _ = fmt.Fprintf(f, "ValidationErrors(%d):\n", len(v.Errors))
		for i, fe := range v.Errors {
			_, _ = fmt.Fprintf(f, "  [%d] %s: %s (tag=%s)\n", i, fe.Field, fe.Message, fe.Tag)
		}
		return
	}
	_, _ = fmt.Fprint(f, v.Error())
}

// NewValidationError returns a ValidationErrors holding one failure.
func NewValidationError(field, tag, message string) *ValidationErrors {
	return &ValidationErrors{
		Errors: []FieldError{{Field: field, Tag: tag, Message: message}},
	}
}
