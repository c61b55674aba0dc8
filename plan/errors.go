package plan

import (
	errors "gopkg.in/src-d/go-errors.v1"
)

// Error kinds surfaced by the compiler. Everything here is a user-facing
// failure: the statement names something that does not exist, is ambiguous,
// or uses a construct the compiler does not support. Internal invariant
// violations are not represented here, those panic.
var (
	// resolution errors
	ErrColumnNotFound  = errors.NewKind("column %q not found among %v")
	ErrAmbiguousColumn = errors.NewKind("column %q is ambiguous among %v")

	// join analysis errors
	ErrAmbiguousJoinColumn      = errors.NewKind("join column %q cannot be assigned to exactly one side")
	ErrSelfJoinCondition        = errors.NewKind("join condition (%s = %s) references only one side")
	ErrUnsupportedJoinCondition = errors.NewKind("unsupported join condition %s, only conjunctions of column equalities are supported")
	ErrUnsupportedJoinKind      = errors.NewKind("unsupported join kind %q")

	// unsupported constructs
	ErrUnknownQuantifier    = errors.NewKind("unknown set quantifier %q")
	ErrUnknownShowOption    = errors.NewKind("unknown show option %q")
	ErrHavingNotImplemented = errors.NewKind("having is not implemented")
	ErrNoHandler            = errors.NewKind("%s: no handler for %s")
	ErrUnhandledGroupBy     = errors.NewKind("cannot handle group by expression %s")
	ErrUnhandledOrderBy     = errors.NewKind("cannot sort by %s")
	ErrPositionOutOfRange   = errors.NewKind("position %d is not a valid column position")
	ErrSubQueryAlias        = errors.NewKind("subqueries need to be named")

	// scope errors
	ErrTableNotFound = errors.NewKind("table %q not found in scope")
	ErrUnknownTable  = errors.NewKind("cannot drop unknown table %q")
)
