package plan

import (
	"github.com/dianpeng/sqlframe/sql"
)

// Join condition analysis. Only equi-joins are supported: the condition must
// be a conjunction of equality comparisons between two column references.
// The analyzer flattens the AND-tree, assigns each reference to the left or
// right table, and produces paired key lists for the backend.

// FlattenJoinCondition collects the (left-ref, right-ref) string pairs of an
// AND-tree of column equalities. Any other shape fails with
// ErrUnsupportedJoinCondition.
func FlattenJoinCondition(cond sql.Expr) ([][2]string, error) {
	if cond.Type() != sql.NodeBinaryOp {
		return nil, ErrUnsupportedJoinCondition.New(sql.PrintNode(cond))
	}

	b := cond.(*sql.BinaryOp)
	switch b.Op {
	case "and":
		left, err := FlattenJoinCondition(b.L)
		if err != nil {
			return nil, err
		}
		right, err := FlattenJoinCondition(b.R)
		if err != nil {
			return nil, err
		}
		return append(left, right...), nil

	case "=":
		if b.L.Type() != sql.NodeName || b.R.Type() != sql.NodeName {
			return nil, ErrUnsupportedJoinCondition.New(sql.PrintNode(cond))
		}
		return [][2]string{{
			b.L.(*sql.Name).Id.Name,
			b.R.(*sql.Name).Id.Name,
		}}, nil

	default:
		return nil, ErrUnsupportedJoinCondition.New(sql.PrintNode(cond))
	}
}

// classifyJoinRef resolves a reference against both sides; exactly one side
// must claim it.
func classifyJoinRef(ref string, leftCols, rightCols []string) (bool, string, error) {
	left := matchingColumns(ref, leftCols)
	right := matchingColumns(ref, rightCols)

	if len(left) > 1 || len(right) > 1 {
		return false, "", ErrAmbiguousColumn.New(ref, append(leftCols, rightCols...))
	}
	if (len(left) == 1) == (len(right) == 1) {
		return false, "", ErrAmbiguousJoinColumn.New(ref)
	}

	if len(left) == 1 {
		return true, left[0], nil
	}
	return false, right[0], nil
}

func matchingColumns(ref string, columns []string) []string {
	out := []string{}
	for _, c := range columns {
		if ColumnMatches(ref, c) {
			out = append(out, c)
		}
	}
	return out
}

// AsJoinKeys turns a join condition into paired key lists, one entry per
// equality, pairing order preserved. Both members of a pair landing on the
// same side is a self-join condition and fails.
func AsJoinKeys(cond sql.Expr, leftCols, rightCols []string) ([]string, []string, error) {
	pairs, err := FlattenJoinCondition(cond)
	if err != nil {
		return nil, nil, err
	}

	leftKeys := []string{}
	rightKeys := []string{}

	for _, pair := range pairs {
		aLeft, a, err := classifyJoinRef(pair[0], leftCols, rightCols)
		if err != nil {
			return nil, nil, err
		}
		bLeft, b, err := classifyJoinRef(pair[1], leftCols, rightCols)
		if err != nil {
			return nil, nil, err
		}

		if aLeft == bLeft {
			return nil, nil, ErrSelfJoinCondition.New(pair[0], pair[1])
		}

		if aLeft {
			leftKeys = append(leftKeys, a)
			rightKeys = append(rightKeys, b)
		} else {
			leftKeys = append(leftKeys, b)
			rightKeys = append(rightKeys, a)
		}
	}

	return leftKeys, rightKeys, nil
}

// joinableConjunct reports whether one WHERE conjunct can serve as an
// equi-join condition between exactly the two given column sets. Conjuncts
// that fail any part of the analysis are simply not joinable; they stay in
// the WHERE clause.
func joinableConjunct(expr sql.Expr, leftCols, rightCols []string) bool {
	pairs, err := FlattenJoinCondition(expr)
	if err != nil {
		return false
	}
	for _, pair := range pairs {
		aLeft, _, err := classifyJoinRef(pair[0], leftCols, rightCols)
		if err != nil {
			return false
		}
		bLeft, _, err := classifyJoinRef(pair[1], leftCols, rightCols)
		if err != nil {
			return false
		}
		if aLeft == bLeft {
			return false
		}
	}
	return true
}

// flattenAnds splits an expression into its top-level AND conjuncts.
func flattenAnds(expr sql.Expr) []sql.Expr {
	if expr == nil {
		return nil
	}
	if expr.Type() == sql.NodeBinaryOp {
		b := expr.(*sql.BinaryOp)
		if b.Op == "and" {
			return append(flattenAnds(b.L), flattenAnds(b.R)...)
		}
	}
	return []sql.Expr{expr}
}

// andJoin folds conjuncts back into one AND-tree; nil when empty.
func andJoin(exprs []sql.Expr) sql.Expr {
	var out sql.Expr
	for _, e := range exprs {
		if out == nil {
			out = e
		} else {
			out = &sql.BinaryOp{Op: "and", L: out, R: e}
		}
	}
	return out
}

// TrivialCondition reports whether a join condition is the constant-true
// placeholder emitted for cross joins.
func TrivialCondition(cond sql.Expr) bool {
	if cond == nil {
		return true
	}
	switch cond.Type() {
	case sql.NodeBool:
		return cond.(*sql.Bool).Value
	case sql.NodeBinaryOp:
		b := cond.(*sql.BinaryOp)
		return b.Op == "=" && sql.Equal(b.L, b.R) && b.L.Type() == sql.NodeInteger
	default:
		return false
	}
}
