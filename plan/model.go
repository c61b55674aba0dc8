package plan

import (
	"github.com/dianpeng/sqlframe/sql"
)

// The abstract table operations the compiler emits against. A backend owns
// row storage and expression evaluation; the compiler only sequences these
// calls. Expressions handed to the backend are statement tree nodes whose
// references are either user-facing Names, internal identifiers, or unique
// symbols resolvable through the supplied name generator.

type Table interface {
	// Columns lists the internal (possibly qualified) column identifiers in
	// declaration order.
	Columns() []string
}

type Model interface {
	// Dual returns a one-row table with no meaningful columns, used for
	// constant-only selects.
	Dual() Table

	// GetTable looks up a table in scope and qualifies its columns with the
	// alias, or the table name when no alias is given. Fails with
	// ErrTableNotFound when absent.
	GetTable(scope *Scope, name, alias string) (Table, error)

	// FilterTable keeps the rows for which the predicate evaluates true.
	FilterTable(t Table, predicate sql.Expr, gen *NameGenerator) (Table, error)

	// Transform projects or extends the table, producing exactly one output
	// column per entry. An entry is either a Column (evaluated, named by its
	// alias) or an InternalName (copied through under its own name).
	Transform(t Table, columns []sql.Node, gen *NameGenerator) (Table, error)

	// Aggregate groups rows by the group-by columns' values and computes one
	// aggregate output per aggregate column per group, in group-encounter
	// order. The group columns appear in the output alongside the
	// aggregates.
	Aggregate(t Table, aggregates []sql.Node, groupBy []sql.Node, gen *NameGenerator) (Table, error)

	// Join performs a relational join; kind is at least "inner". A trivial
	// condition per TrivialCondition degenerates to a cross join.
	Join(left, right Table, condition sql.Expr, kind string, gen *NameGenerator) (Table, error)

	// Lateral evaluates a table-valued function once per row of the table,
	// against that row's values, and flat-maps the results in row order.
	Lateral(t Table, gen *NameGenerator, fn string, args []sql.Expr, alias string) (Table, error)

	// SortValues stably sorts by the given internal column names with
	// per-column direction.
	SortValues(t Table, names []string, ascending []bool) (Table, error)

	// LimitOffset applies a row window; either bound may be -1 for absent.
	LimitOffset(t Table, limit, offset int64) (Table, error)

	// DropDuplicates removes exact row duplicates keeping first occurrence.
	DropDuplicates(t Table) (Table, error)

	// AddTableToColumns qualifies every column with the given table name,
	// replacing any existing qualifier.
	AddTableToColumns(t Table, name string) Table

	// RemoveTableFromColumns strips column qualification where doing so does
	// not collide with another column.
	RemoveTableFromColumns(t Table) Table

	// CopyFrom bulk-loads a file into scope under the given name; CopyTo
	// stores a scoped table to a file. Option keys are backend-defined.
	CopyFrom(scope *Scope, name, path string, options map[string]string) error
	CopyTo(scope *Scope, name, path string, options map[string]string) error

	// EvalTableValued evaluates a table-valued function call appearing
	// directly in a FROM clause.
	EvalTableValued(node *sql.TableFunction, scope *Scope) (Table, error)
}
