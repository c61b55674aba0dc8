package plan

import (
	"github.com/dianpeng/sqlframe/sql"
)

// Group-by normalization. A group-by entry can be written three ways:
//
//  1. an existing source column is named,
//  2. a select-list alias is named,
//  3. an arbitrary expression is given verbatim.
//
// Each entry normalizes into a Column carrying the expression to group on
// plus the alias the grouped value materializes under. Existing columns win
// over aliases, which is the less surprising reading under SQL semantics.
func NormalizeGroupBy(tableColumns []string, columns []sql.Node, groupBy []sql.Expr) ([]*sql.Column, error) {
	aliases := make(map[string]sql.Expr)
	for _, item := range columns {
		if item.Type() != sql.NodeColumn {
			continue
		}
		col := item.(*sql.Column)
		if !col.As.Empty() && !col.As.IsUnique() {
			aliases[col.As.Name] = col.Value
		}
	}

	out := make([]*sql.Column, 0, len(groupBy))
	for _, expr := range groupBy {
		// a positional entry substitutes the select column at the given
		// one-based position
		if expr.Type() == sql.NodeInteger {
			pos := expr.(*sql.Integer).Value
			if pos < 1 || pos > int64(len(columns)) {
				return nil, ErrPositionOutOfRange.New(pos)
			}
			item := columns[pos-1]
			if item.Type() != sql.NodeColumn {
				return nil, ErrUnhandledGroupBy.New(sql.PrintNode(expr))
			}
			expr = item.(*sql.Column).Value
		}

		if expr.Type() != sql.NodeName {
			out = append(out, &sql.Column{Value: expr, As: sql.UniqueIdent()})
			continue
		}

		name := expr.(*sql.Name).Id.Name

		if matchesAny(name, tableColumns) {
			out = append(out, &sql.Column{
				Value: expr,
				As:    sql.StrIdent(ToInternal(name)),
			})
			continue
		}

		if aliased, ok := aliases[name]; ok {
			out = append(out, &sql.Column{
				Value: aliased,
				As:    sql.StrIdent(ToInternal(name)),
			})
			continue
		}

		return nil, ErrUnhandledGroupBy.New(sql.PrintNode(expr))
	}

	return out, nil
}

func matchesAny(ref string, columns []string) bool {
	for _, c := range columns {
		if ColumnMatches(ref, c) {
			return true
		}
	}
	return false
}
