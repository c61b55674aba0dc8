package plan

import (
	"fmt"

	"github.com/dianpeng/sqlframe/sql"
)

// The aggregate split. A select expression like `sum(price * qty) + 1`
// cannot be evaluated by the backend in one step: the per-row input
// `price * qty` must be computed first, then aggregated per group, then the
// `+ 1` applied on the grouped result. The splitter decomposes one select
// column into fragments tagged with the stage they belong to.

const (
	LevelPost = 0 // post-aggregate finishing projection
	LevelAgg  = 1 // per-group aggregation
	LevelPre  = 2 // pre-aggregate row computation
)

type Fragment struct {
	Level int
	Item  sql.Node
}

type SplitResult []Fragment

// ByLevels buckets the fragments into maxLevel+1 ordered lists. A fragment
// beyond maxLevel means the splitter produced a malformed plan; that is a
// compiler defect, not a user error.
func (self SplitResult) ByLevels(maxLevel int) [][]sql.Node {
	out := make([][]sql.Node, maxLevel+1)
	for _, frag := range self {
		if frag.Level > maxLevel {
			panic(fmt.Sprintf("split fragment at level %d exceeds maximum level %d", frag.Level, maxLevel))
		}
		out[frag.Level] = append(out[frag.Level], frag.Item)
	}
	return out
}

type splitContext struct {
	// canonical print of each group-by value expression -> its alias. Used
	// to short circuit: an expression that is already a group key refers to
	// the materialized group column instead of being recomputed.
	groupBy map[string]sql.Ident
}

var splitRules = NewRuleSet[*splitContext, SplitResult]("aggregate-split").
	Root(splitRoot).
	Rule(sql.NodeColumn, splitColumn).
	Rule(sql.NodeName, splitLeaf).
	Rule(sql.NodeInteger, splitLeaf).
	Rule(sql.NodeBool, splitLeaf).
	Rule(sql.NodeString, splitLeaf).
	Rule(sql.NodeBinaryOp, splitBinaryOp).
	Rule(sql.NodeCallSetFunction, splitCallSetFunction)

// SplitAggregate decomposes one select-list column against the normalized
// group-by columns.
func SplitAggregate(node sql.Node, groupBy []*sql.Column) (SplitResult, error) {
	ctx := &splitContext{
		groupBy: make(map[string]sql.Ident, len(groupBy)),
	}
	for _, col := range groupBy {
		ctx.groupBy[sql.Key(col.Value)] = col.As
	}
	return splitRules.Dispatch(node, ctx)
}

func splitRoot(rs *RuleSet[*splitContext, SplitResult], node sql.Node, ctx *splitContext) (SplitResult, error) {
	if alias, ok := ctx.groupBy[sql.Key(node)]; ok {
		if alias.IsUnique() {
			return SplitResult{{LevelPost, sql.NewSymName(alias)}}, nil
		}
		// a literal alias is already in internal form, it names the
		// materialized group column exactly and must not go through name
		// resolution again
		return SplitResult{{LevelPost, &sql.InternalName{Id: alias.Name}}}, nil
	}
	return rs.Apply(node, ctx)
}

// singlePost asserts that a sub-split produced exactly one post-aggregate
// fragment. Every handled expression variant yields exactly one, so a
// mismatch is a splitter bug.
func singlePost(items []sql.Node) sql.Expr {
	if len(items) != 1 {
		panic(fmt.Sprintf("expected exactly one post-aggregate fragment, got %d", len(items)))
	}
	return items[0]
}

func splitColumn(rs *RuleSet[*splitContext, SplitResult], node sql.Node, ctx *splitContext) (SplitResult, error) {
	col := node.(*sql.Column)

	sub, err := rs.Dispatch(col.Value, ctx)
	if err != nil {
		return nil, err
	}

	levels := sub.ByLevels(2)
	post := singlePost(levels[LevelPost])

	out := SplitResult{{LevelPost, &sql.Column{Value: post, As: columnAlias(col)}}}
	for _, item := range levels[LevelAgg] {
		out = append(out, Fragment{LevelAgg, item})
	}
	for _, item := range levels[LevelPre] {
		out = append(out, Fragment{LevelPre, item})
	}
	return out, nil
}

// bare references and literals are pure post-aggregate values, resolved
// later against whatever table the finishing projection runs on.
func splitLeaf(rs *RuleSet[*splitContext, SplitResult], node sql.Node, ctx *splitContext) (SplitResult, error) {
	return SplitResult{{LevelPost, node}}, nil
}

func splitBinaryOp(rs *RuleSet[*splitContext, SplitResult], node sql.Node, ctx *splitContext) (SplitResult, error) {
	b := node.(*sql.BinaryOp)

	ls, err := rs.Dispatch(b.L, ctx)
	if err != nil {
		return nil, err
	}
	rrs, err := rs.Dispatch(b.R, ctx)
	if err != nil {
		return nil, err
	}

	lLevels := ls.ByLevels(2)
	rLevels := rrs.ByLevels(2)

	out := SplitResult{{
		LevelPost,
		&sql.BinaryOp{
			Op: b.Op,
			L:  singlePost(lLevels[LevelPost]),
			R:  singlePost(rLevels[LevelPost]),
		},
	}}
	for _, levels := range [][][]sql.Node{lLevels, rLevels} {
		for _, item := range levels[LevelAgg] {
			out = append(out, Fragment{LevelAgg, item})
		}
	}
	for _, levels := range [][][]sql.Node{lLevels, rLevels} {
		for _, item := range levels[LevelPre] {
			out = append(out, Fragment{LevelPre, item})
		}
	}
	return out, nil
}

func splitCallSetFunction(rs *RuleSet[*splitContext, SplitResult], node sql.Node, ctx *splitContext) (SplitResult, error) {
	call := node.(*sql.CallSetFunction)

	// count(*) counts rows, which is count over any non-null constant
	if call.Func == "count" && len(call.Args) == 1 && call.Args[0].Type() == sql.NodeWildCard {
		call = call.WithArgs([]sql.Expr{sql.NewInteger(1)})
	}

	out := SplitResult{}
	deferred := make([]sql.Expr, 0, len(call.Args))

	for _, arg := range call.Args {
		id := sql.UniqueIdent()
		out = append(out, Fragment{LevelPre, &sql.Column{Value: arg, As: id}})
		deferred = append(deferred, sql.NewSymName(id))
	}

	selfId := sql.UniqueIdent()
	out = append(out, Fragment{LevelAgg, &sql.Column{Value: call.WithArgs(deferred), As: selfId}})
	out = append(out, Fragment{LevelPost, sql.NewSymName(selfId)})
	return out, nil
}

// columnAlias derives the output name of a select column: an explicit alias
// wins, a bare reference keeps its own name, an aggregate call is named
// after its function, anything else gets a synthetic name.
func columnAlias(col *sql.Column) sql.Ident {
	if !col.As.Empty() {
		return col.As
	}
	switch col.Value.Type() {
	case sql.NodeName:
		id := col.Value.(*sql.Name).Id
		if id.IsUnique() {
			return id
		}
		return sql.StrIdent(ToInternal(id.Name))
	case sql.NodeInternalName:
		return sql.StrIdent(col.Value.(*sql.InternalName).Id)
	case sql.NodeCallSetFunction:
		return sql.StrIdent(col.Value.(*sql.CallSetFunction).Func)
	default:
		return sql.UniqueIdent()
	}
}
