package plan

import (
	"github.com/dianpeng/sqlframe/sql"
)

// Rule dispatch over statement tree variants. A RuleSet maps a node's
// variant tag to a handler; both the statement compiler and the aggregate
// splitter are built on one. Handlers receive the rule set back so they can
// recurse through Dispatch on child nodes.

type Handler[C, R any] func(rs *RuleSet[C, R], node sql.Node, ctx C) (R, error)

type RuleSet[C, R any] struct {
	name  string
	root  Handler[C, R]
	rules map[int]Handler[C, R]
}

func NewRuleSet[C, R any](name string) *RuleSet[C, R] {
	return &RuleSet[C, R]{
		name:  name,
		rules: make(map[int]Handler[C, R]),
	}
}

// Rule registers the handler for one node variant.
func (self *RuleSet[C, R]) Rule(ty int, h Handler[C, R]) *RuleSet[C, R] {
	self.rules[ty] = h
	return self
}

// Root installs a wrapper that runs on every dispatch before the per-variant
// lookup. The wrapper typically handles a cross-cutting short circuit and
// then falls through to Apply.
func (self *RuleSet[C, R]) Root(h Handler[C, R]) *RuleSet[C, R] {
	self.root = h
	return self
}

// Dispatch routes a node to its handler, through the root wrapper when one
// is installed.
func (self *RuleSet[C, R]) Dispatch(node sql.Node, ctx C) (R, error) {
	if self.root != nil {
		return self.root(self, node, ctx)
	}
	return self.Apply(node, ctx)
}

// Apply performs the bare per-variant lookup, bypassing the root wrapper.
// A node variant with no registered handler fails with ErrNoHandler naming
// the construct.
func (self *RuleSet[C, R]) Apply(node sql.Node, ctx C) (R, error) {
	h, ok := self.rules[node.Type()]
	if !ok {
		var zero R
		return zero, ErrNoHandler.New(self.name, sql.TypeName(node.Type()))
	}
	return h(self, node, ctx)
}
