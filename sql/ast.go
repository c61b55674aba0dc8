package sql

import (
	"sync/atomic"
)

// The statement tree. Nodes are immutable values, produced by the parser and
// consumed by the compiler. Nothing in here mutates a node in place; when a
// pass needs a modified node it builds a new one via the With* helpers.

const (
	// expressions
	NodeInteger = iota
	NodeBool
	NodeString
	NodeName
	NodeInternalName
	NodeBinaryOp
	NodeCallSetFunction

	// select list items
	NodeColumn
	NodeWildCard

	// table items
	NodeTableRef
	NodeJoin
	NodeSubQuery
	NodeTableFunction
	NodeLateral

	// clauses
	NodeOrderBy
	NodeCTE

	// statements
	NodeSelect
	NodeShow
	NodeCopyFrom
	NodeCopyTo
	NodeDropTable
	NodeCreateTableAs
)

const (
	OrderAsc = iota
	OrderDesc
)

// Quantifier values carried by Select. An empty string means the quantifier
// was not written at all.
const (
	QuantifierAll      = "all"
	QuantifierDistinct = "distinct"
)

const JoinInner = "inner"

type Node interface {
	Type() int
}

// Expr, SelectItem and TableItem are documentation aliases; the tree is one
// tagged union and dispatch always goes through Type().
type Expr = Node
type SelectItem = Node
type TableItem = Node

func TypeName(ty int) string {
	switch ty {
	case NodeInteger:
		return "integer"
	case NodeBool:
		return "bool"
	case NodeString:
		return "string"
	case NodeName:
		return "name"
	case NodeInternalName:
		return "internal-name"
	case NodeBinaryOp:
		return "binary-op"
	case NodeCallSetFunction:
		return "call-set-function"
	case NodeColumn:
		return "column"
	case NodeWildCard:
		return "wildcard"
	case NodeTableRef:
		return "table-ref"
	case NodeJoin:
		return "join"
	case NodeSubQuery:
		return "subquery"
	case NodeTableFunction:
		return "table-function"
	case NodeLateral:
		return "lateral"
	case NodeOrderBy:
		return "order-by"
	case NodeCTE:
		return "cte"
	case NodeSelect:
		return "select"
	case NodeShow:
		return "show"
	case NodeCopyFrom:
		return "copy-from"
	case NodeCopyTo:
		return "copy-to"
	case NodeDropTable:
		return "drop-table"
	case NodeCreateTableAs:
		return "create-table-as"
	default:
		return "unknown"
	}
}

/** -------------------------------------------------------------------------
 ** Unique symbols and identifiers
 ** -----------------------------------------------------------------------*/

// Unique is an opaque handle standing in for a column name that has not been
// assigned yet. Two calls to NewUnique never return equal handles; the zero
// value means "no symbol". The handle resolves to a concrete string through
// a name generator, exactly once per handle.
type Unique int64

var uniqueSeq int64

func NewUnique() Unique {
	return Unique(atomic.AddInt64(&uniqueSeq, 1))
}

// Ident is a column identifier that is either a literal name or a deferred
// unique symbol. It is a small comparable value so it can key maps directly.
type Ident struct {
	Name string
	Sym  Unique
}

func StrIdent(name string) Ident  { return Ident{Name: name} }
func UniqueIdent() Ident          { return Ident{Sym: NewUnique()} }
func (self Ident) IsUnique() bool { return self.Sym != 0 }
func (self Ident) Empty() bool    { return self.Name == "" && self.Sym == 0 }

/** -------------------------------------------------------------------------
 ** Expressions
 ** -----------------------------------------------------------------------*/

type Integer struct {
	Value int64
}

type Bool struct {
	Value bool
}

type String struct {
	Value string
}

// Name references a column by a user-facing, possibly table-qualified
// identifier ("c", "t.c"), or by a deferred unique symbol when the compiler
// introduced the column itself.
type Name struct {
	Id Ident
}

// InternalName references a column by its internal, post-namespacing
// identifier and bypasses reference resolution. It doubles as a select-list
// item when wildcards are expanded.
type InternalName struct {
	Id string
}

type BinaryOp struct {
	Op string // "and", "or", "=", "<>", "<", "<=", ">", ">=", "+", "-", "*", "/", "%"
	L  Expr
	R  Expr
}

// CallSetFunction is an aggregate call: sum, avg, min, max, count.
type CallSetFunction struct {
	Func string
	Args []Expr
}

func NewName(id string) *Name     { return &Name{Id: StrIdent(id)} }
func NewSymName(sym Ident) *Name  { return &Name{Id: sym} }
func NewInteger(v int64) *Integer { return &Integer{Value: v} }
func NewBool(v bool) *Bool        { return &Bool{Value: v} }
func NewString(v string) *String  { return &String{Value: v} }

func (self *Integer) Type() int         { return NodeInteger }
func (self *Bool) Type() int            { return NodeBool }
func (self *String) Type() int          { return NodeString }
func (self *Name) Type() int            { return NodeName }
func (self *InternalName) Type() int    { return NodeInternalName }
func (self *BinaryOp) Type() int        { return NodeBinaryOp }
func (self *CallSetFunction) Type() int { return NodeCallSetFunction }

func (self *CallSetFunction) WithArgs(args []Expr) *CallSetFunction {
	return &CallSetFunction{Func: self.Func, Args: args}
}

func IsAggFunc(n string) bool {
	switch n {
	case "min", "max", "sum", "avg", "count":
		return true
	default:
		return false
	}
}

/** -------------------------------------------------------------------------
 ** Select list items
 ** -----------------------------------------------------------------------*/

// Column is a value expression plus an optional alias. As is empty until the
// compiler normalizes the select list; afterwards every column has one.
type Column struct {
	Value Expr
	As    Ident
}

// WildCard is `*` or `table.*`.
type WildCard struct {
	Table string
}

func (self *Column) Type() int   { return NodeColumn }
func (self *WildCard) Type() int { return NodeWildCard }

func (self *Column) WithAlias(id Ident) *Column {
	return &Column{Value: self.Value, As: id}
}

/** -------------------------------------------------------------------------
 ** Table items
 ** -----------------------------------------------------------------------*/

type TableRef struct {
	Schema string
	Name   string
	Alias  string
}

type Join struct {
	Left  TableItem
	Right TableItem
	On    Expr
	Kind  string
}

type SubQuery struct {
	Query *Select
	Alias string // required, the subquery's namespace
}

type TableFunction struct {
	Func  string
	Args  []Expr
	Alias string
}

// Lateral marks a table function that is flat-map joined against the
// preceding table, one evaluation per row.
type Lateral struct {
	Table *TableFunction
}

func (self *TableRef) Type() int      { return NodeTableRef }
func (self *Join) Type() int          { return NodeJoin }
func (self *SubQuery) Type() int      { return NodeSubQuery }
func (self *TableFunction) Type() int { return NodeTableFunction }
func (self *Lateral) Type() int       { return NodeLateral }

/** -------------------------------------------------------------------------
 ** Clauses and statements
 ** -----------------------------------------------------------------------*/

type OrderBy struct {
	Value Expr // *Integer (1-based position) or *Name
	Order int  // OrderAsc / OrderDesc
}

func (self *OrderBy) Type() int { return NodeOrderBy }

type CTE struct {
	Name  string
	Query *Select
}

func (self *CTE) Type() int { return NodeCTE }

type Select struct {
	With       []*CTE
	Columns    []SelectItem
	From       []TableItem // nil means a constant-only select against dual
	Where      Expr
	GroupBy    []Expr
	Having     Expr
	OrderBy    []*OrderBy
	Limit      Expr
	Offset     Expr
	Quantifier string // "", "all" or "distinct"
}

func (self *Select) Type() int { return NodeSelect }

func (self *Select) WithGroupBy(groupBy []Expr) *Select {
	out := *self
	out.GroupBy = groupBy
	return &out
}

type Show struct {
	Args []string
}

type CopyOption struct {
	Name  string
	Value string
}

type CopyFrom struct {
	Table   string
	Path    string
	Options []CopyOption
}

type CopyTo struct {
	Table   string
	Path    string
	Options []CopyOption
}

type DropTable struct {
	Names []string
}

type CreateTableAs struct {
	Name  string
	Query *Select
}

func (self *Show) Type() int          { return NodeShow }
func (self *CopyFrom) Type() int      { return NodeCopyFrom }
func (self *CopyTo) Type() int        { return NodeCopyTo }
func (self *DropTable) Type() int     { return NodeDropTable }
func (self *CreateTableAs) Type() int { return NodeCreateTableAs }

/** -------------------------------------------------------------------------
 ** Structural equality
 ** -----------------------------------------------------------------------*/

// Equal compares two nodes structurally: identical shape and identical
// literal content. Unique symbols compare by handle identity.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Type() != b.Type() {
		return false
	}

	switch a.Type() {
	case NodeInteger:
		return a.(*Integer).Value == b.(*Integer).Value
	case NodeBool:
		return a.(*Bool).Value == b.(*Bool).Value
	case NodeString:
		return a.(*String).Value == b.(*String).Value
	case NodeName:
		return a.(*Name).Id == b.(*Name).Id
	case NodeInternalName:
		return a.(*InternalName).Id == b.(*InternalName).Id
	case NodeBinaryOp:
		x, y := a.(*BinaryOp), b.(*BinaryOp)
		return x.Op == y.Op && Equal(x.L, y.L) && Equal(x.R, y.R)
	case NodeCallSetFunction:
		x, y := a.(*CallSetFunction), b.(*CallSetFunction)
		if x.Func != y.Func || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !Equal(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	case NodeColumn:
		x, y := a.(*Column), b.(*Column)
		return x.As == y.As && Equal(x.Value, y.Value)
	case NodeWildCard:
		return a.(*WildCard).Table == b.(*WildCard).Table
	default:
		// table items and statements never act as map keys, identity is
		// enough for them
		return a == b
	}
}

/** -------------------------------------------------------------------------
 ** Walking
 ** -----------------------------------------------------------------------*/

// Walk visits node and every expression nested below it, pre-order. The
// callback returns false to prune the subtree.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	switch node.Type() {
	case NodeBinaryOp:
		b := node.(*BinaryOp)
		Walk(b.L, fn)
		Walk(b.R, fn)
	case NodeCallSetFunction:
		for _, arg := range node.(*CallSetFunction).Args {
			Walk(arg, fn)
		}
	case NodeColumn:
		Walk(node.(*Column).Value, fn)
	case NodeOrderBy:
		Walk(node.(*OrderBy).Value, fn)
	default:
		break
	}
}

// ContainsSetFunction reports whether any aggregate call occurs inside node.
func ContainsSetFunction(node Node) bool {
	found := false
	Walk(node, func(n Node) bool {
		if n.Type() == NodeCallSetFunction {
			found = true
			return false
		}
		return true
	})
	return found
}
