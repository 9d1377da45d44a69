package service

import "context"

// RuleFunc is the body of a rule. owner is the service the rule runs for.
type RuleFunc[O any, A any] func(ctx context.Context, owner O, args A) error

// Rule is a named, tagged callback invoked with an explicit owner.
//
// Failures are translated into a *RuleError of the rule's Kind. Rules are
// immutable once created.
type Rule[O any, C ~string, A any] struct {
	name   string
	config C
	kind   Kind
	fn     RuleFunc[O, A]
}

// NewRule creates a rule. With KindNone errors propagate unchanged.
func NewRule[O any, C ~string, A any](name string, config C, kind Kind, fn RuleFunc[O, A]) Rule[O, C, A] {
	return Rule[O, C, A]{name: name, config: config, kind: kind, fn: fn}
}

// Name returns the rule's qualified name.
func (r Rule[O, C, A]) Name() string { return r.name }

// Config returns the rule's tag.
func (r Rule[O, C, A]) Config() C { return r.config }

// Kind returns the error kind failures are translated into.
func (r Rule[O, C, A]) Kind() Kind { return r.kind }

// Invoke runs the rule for owner.
func (r Rule[O, C, A]) Invoke(ctx context.Context, owner O, args A) error {
	err := r.fn(ctx, owner, args)
	if err == nil || r.kind == KindNone {
		return err
	}
	return &RuleError{Kind: r.kind, Rule: r.name, Config: string(r.config), cause: err}
}

// Bind returns the rule as a closure over owner.
func (r Rule[O, C, A]) Bind(owner O) func(ctx context.Context, args A) error {
	return func(ctx context.Context, args A) error {
		return r.Invoke(ctx, owner, args)
	}
}
