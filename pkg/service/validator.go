package service

import "strings"

// ValidatorConfig selects the writes a Validator runs for.
type ValidatorConfig string

const (
	ValidateInsert       ValidatorConfig = "insert"
	ValidateUpdate       ValidatorConfig = "update"
	ValidateInsertUpdate ValidatorConfig = "insert-update"
)

// Includes reports whether c covers op. "insert-update" covers both.
func (c ValidatorConfig) Includes(op ValidatorConfig) bool {
	return strings.Contains(string(c), string(op))
}

// ValidateArgs is what a Validator sees.
type ValidateArgs struct {
	// Data is the insert or update payload.
	Data interface{}
	// Query selects the documents an update applies to. It is nil for
	// inserts and for updates without a filter.
	Query interface{}
}

// Validator checks insert or update payloads before they are written.
type Validator[O any] struct {
	Rule[O, ValidatorConfig, ValidateArgs]
}

// NewValidator creates a Validator whose failures match ErrValidation.
func NewValidator[O any](name string, config ValidatorConfig, fn RuleFunc[O, ValidateArgs]) Validator[O] {
	return Validator[O]{Rule: NewRule(name, config, KindValidation, fn)}
}
