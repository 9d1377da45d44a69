package service

// DeleteRuleConfig selects the delete phase a DeleteRule runs in.
type DeleteRuleConfig string

const (
	// DeleteDeny rules run first and veto the delete by failing.
	DeleteDeny DeleteRuleConfig = "deny"
	// DeletePre rules run after the deny rules, before the delete.
	DeletePre DeleteRuleConfig = "pre"
	// DeletePost rules run after the delete.
	DeletePost DeleteRuleConfig = "post"
)

// DeleteArgs is what a DeleteRule sees.
//
// The context passed along is bound to Session, so service calls made with
// it join the surrounding transaction. Rules must not commit, abort or start
// transactions on Session.
type DeleteArgs[K any] struct {
	Session Session
	// IDs are the keys matched before the delete. Never empty.
	IDs []K
}

// DeleteRule runs around deletes, inside the delete's transaction.
type DeleteRule[O any, K any] struct {
	Rule[O, DeleteRuleConfig, DeleteArgs[K]]
}

// NewDeleteRule creates a DeleteRule whose failures match ErrDelete.
func NewDeleteRule[O any, K any](name string, config DeleteRuleConfig, fn RuleFunc[O, DeleteArgs[K]]) DeleteRule[O, K] {
	return DeleteRule[O, K]{Rule: NewRule(name, config, KindDelete, fn)}
}
