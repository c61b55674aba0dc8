package plan

import (
	"strings"

	"github.com/dianpeng/sqlframe/sql"
)

// The statement compiler. One Compiler drives one scope against one backend
// model; each Execute call walks a statement tree depth first and emits the
// corresponding pipeline of table operations. The compiler itself holds no
// row data and performs no I/O.

type Compiler struct {
	model Model
	scope *Scope
}

func NewCompiler(model Model, scope *Scope) *Compiler {
	return &Compiler{
		model: model,
		scope: scope,
	}
}

// Execute compiles and runs one statement. Statements that produce no
// result table (copy, drop table, create table as) return a nil table.
func (self *Compiler) Execute(stmt sql.Node) (Table, error) {
	st := &execState{
		model: self.model,
		scope: self.scope,
		gen:   NewNameGenerator(),
	}

	out, err := execRules.Dispatch(stmt, st)
	if err != nil {
		return nil, err
	}
	if out != nil {
		out = self.model.RemoveTableFromColumns(out)
	}
	return out, nil
}

// execState carries the per-statement compilation state. The scope field is
// replaced, never mutated, when CTEs shadow the caller's scope.
type execState struct {
	model Model
	scope *Scope
	gen   *NameGenerator
}

func (self *execState) withScope(s *Scope) *execState {
	return &execState{
		model: self.model,
		scope: s,
		gen:   self.gen,
	}
}

var execRules = NewRuleSet[*execState, Table]("execute").
	Rule(sql.NodeSelect, execSelect).
	Rule(sql.NodeJoin, execJoin).
	Rule(sql.NodeTableRef, execTableRef).
	Rule(sql.NodeSubQuery, execSubQuery).
	Rule(sql.NodeTableFunction, execTableFunction).
	Rule(sql.NodeShow, execShow).
	Rule(sql.NodeCopyFrom, execCopyFrom).
	Rule(sql.NodeCopyTo, execCopyTo).
	Rule(sql.NodeDropTable, execDropTable).
	Rule(sql.NodeCreateTableAs, execCreateTableAs)

func execSelect(rs *RuleSet[*execState, Table], node sql.Node, st *execState) (Table, error) {
	sel := node.(*sql.Select)

	if sel.With != nil {
		st = st.withScope(st.scope.Clone())
		for _, cte := range sel.With {
			t, err := rs.Dispatch(cte.Query, st)
			if err != nil {
				return nil, err
			}
			st.scope.Define(cte.Name, t)
		}
	}

	var table Table
	var err error
	where := sel.Where

	if sel.From == nil {
		table = st.model.Dual()
	} else {
		table, where, err = execFrom(rs, sel, st)
		if err != nil {
			return nil, err
		}
	}

	columns, err := normalizeColumns(table.Columns(), sel.Columns)
	if err != nil {
		return nil, err
	}

	groupByClause := sel.GroupBy
	if groupByClause == nil && anySetFunction(columns) {
		// aggregates without an explicit GROUP BY still take the aggregate
		// path, every row lands in a single group
		groupByClause = []sql.Expr{sql.NewBool(true)}
	}

	if where != nil {
		if table, err = st.model.FilterTable(table, where, st.gen); err != nil {
			return nil, err
		}
	}

	if groupByClause != nil {
		table, err = execGrouped(table, columns, groupByClause, st)
	} else {
		table, err = st.model.Transform(table, columns, st.gen)
	}
	if err != nil {
		return nil, err
	}

	if sel.Having != nil {
		return nil, ErrHavingNotImplemented.New()
	}

	if sel.OrderBy != nil {
		if table, err = execSort(table, sel.OrderBy, st); err != nil {
			return nil, err
		}
	}

	if sel.Limit != nil || sel.Offset != nil {
		limit := int64(-1)
		offset := int64(-1)
		if sel.Limit != nil {
			limit = sel.Limit.(*sql.Integer).Value
		}
		if sel.Offset != nil {
			offset = sel.Offset.(*sql.Integer).Value
		}
		if table, err = st.model.LimitOffset(table, limit, offset); err != nil {
			return nil, err
		}
	}

	switch sel.Quantifier {
	case "", sql.QuantifierAll:
		break
	case sql.QuantifierDistinct:
		if table, err = st.model.DropDuplicates(table); err != nil {
			return nil, err
		}
		break
	default:
		return nil, ErrUnknownQuantifier.New(sel.Quantifier)
	}

	return table, nil
}

// execFrom resolves a FROM list. The first item anchors the pipeline; every
// further item either lateral-joins a table function or inner-joins a table,
// pulling out of the WHERE clause exactly the conjuncts that equi-join the
// pair at hand. Unused conjuncts are returned for the regular filter stage.
func execFrom(rs *RuleSet[*execState, Table], sel *sql.Select, st *execState) (Table, sql.Expr, error) {
	current, err := rs.Dispatch(sel.From[0], st)
	if err != nil {
		return nil, nil, err
	}

	remaining := flattenAnds(sel.Where)

	for _, other := range sel.From[1:] {
		if other.Type() == sql.NodeLateral {
			fn := other.(*sql.Lateral).Table
			alias := fn.Alias
			if alias == "" {
				alias = st.gen.Get(sql.UniqueIdent())
			}
			current, err = st.model.Lateral(current, st.gen, fn.Func, fn.Args, alias)
			if err != nil {
				return nil, nil, err
			}
			continue
		}

		right, err := rs.Dispatch(other, st)
		if err != nil {
			return nil, nil, err
		}

		used := []sql.Expr{}
		kept := []sql.Expr{}
		for _, conj := range remaining {
			if joinableConjunct(conj, current.Columns(), right.Columns()) {
				used = append(used, conj)
			} else {
				kept = append(kept, conj)
			}
		}
		remaining = kept

		cond := andJoin(used)
		if cond == nil {
			// no usable conjunct degenerates to a cross join
			cond = &sql.BinaryOp{Op: "=", L: sql.NewInteger(1), R: sql.NewInteger(1)}
		}

		current, err = st.model.Join(current, right, cond, sql.JoinInner, st.gen)
		if err != nil {
			return nil, nil, err
		}
	}

	return current, andJoin(remaining), nil
}

// execGrouped runs the three-stage aggregate pipeline: pre-aggregate row
// computation (including the group keys), per-group aggregation, and the
// post-aggregate finishing projection.
func execGrouped(table Table, columns []sql.Node, groupByClause []sql.Expr, st *execState) (Table, error) {
	groupBy, err := NormalizeGroupBy(table.Columns(), columns, groupByClause)
	if err != nil {
		return nil, err
	}

	var split SplitResult
	for _, col := range columns {
		s, err := SplitAggregate(col, groupBy)
		if err != nil {
			return nil, err
		}
		split = append(split, s...)
	}

	levels := split.ByLevels(2)
	post, agg, pre := levels[LevelPost], levels[LevelAgg], levels[LevelPre]

	groupNodes := make([]sql.Node, len(groupBy))
	for i, g := range groupBy {
		groupNodes[i] = g
	}
	pre = append(pre, groupNodes...)

	if table, err = st.model.Transform(table, pre, st.gen); err != nil {
		return nil, err
	}
	if table, err = st.model.Aggregate(table, agg, groupNodes, st.gen); err != nil {
		return nil, err
	}
	return st.model.Transform(table, post, st.gen)
}

// normalizeColumns expands wildcards against the current table and makes
// sure every remaining column carries an alias.
func normalizeColumns(tableColumns []string, items []sql.Node) ([]sql.Node, error) {
	out := []sql.Node{}

	for _, item := range items {
		switch item.Type() {
		case sql.NodeWildCard:
			w := item.(*sql.WildCard)
			for _, c := range tableColumns {
				if w.Table == "" || ColumnTable(c) == w.Table {
					out = append(out, &sql.InternalName{Id: c})
				}
			}
			break

		case sql.NodeColumn:
			col := item.(*sql.Column)
			out = append(out, col.WithAlias(columnAlias(col)))
			break

		case sql.NodeInternalName:
			out = append(out, item)
			break

		default:
			return nil, ErrNoHandler.New("normalize-columns", sql.TypeName(item.Type()))
		}
	}

	return out, nil
}

func anySetFunction(items []sql.Node) bool {
	for _, item := range items {
		if sql.ContainsSetFunction(item) {
			return true
		}
	}
	return false
}

func execSort(table Table, keys []*sql.OrderBy, st *execState) (Table, error) {
	cols := table.Columns()

	names := []string{}
	ascending := []bool{}

	for _, key := range keys {
		switch key.Value.Type() {
		case sql.NodeInteger:
			pos := key.Value.(*sql.Integer).Value
			if pos < 1 || pos > int64(len(cols)) {
				return nil, ErrPositionOutOfRange.New(pos)
			}
			names = append(names, cols[pos-1])
			break

		case sql.NodeName:
			resolved, err := ResolveColumn(key.Value.(*sql.Name).Id.Name, cols, false)
			if err != nil {
				return nil, err
			}
			names = append(names, resolved)
			break

		default:
			return nil, ErrUnhandledOrderBy.New(sql.PrintNode(key))
		}

		ascending = append(ascending, key.Order == sql.OrderAsc)
	}

	return st.model.SortValues(table, names, ascending)
}

func execJoin(rs *RuleSet[*execState, Table], node sql.Node, st *execState) (Table, error) {
	j := node.(*sql.Join)

	left, err := rs.Dispatch(j.Left, st)
	if err != nil {
		return nil, err
	}
	right, err := rs.Dispatch(j.Right, st)
	if err != nil {
		return nil, err
	}
	return st.model.Join(left, right, j.On, j.Kind, st.gen)
}

func execTableRef(rs *RuleSet[*execState, Table], node sql.Node, st *execState) (Table, error) {
	t := node.(*sql.TableRef)

	name := t.Name
	if t.Schema != "" {
		name = t.Schema + "." + t.Name
	}
	return st.model.GetTable(st.scope, name, t.Alias)
}

func execSubQuery(rs *RuleSet[*execState, Table], node sql.Node, st *execState) (Table, error) {
	s := node.(*sql.SubQuery)
	if s.Alias == "" {
		return nil, ErrSubQueryAlias.New()
	}

	table, err := rs.Dispatch(s.Query, st)
	if err != nil {
		return nil, err
	}
	return st.model.AddTableToColumns(table, s.Alias), nil
}

func execTableFunction(rs *RuleSet[*execState, Table], node sql.Node, st *execState) (Table, error) {
	return st.model.EvalTableValued(node.(*sql.TableFunction), st.scope)
}

// showConfig is the closed set of session parameters SHOW answers, with
// canned values. Clients issue these during connection setup.
var showConfig = map[string]string{
	"transaction isolation level": "read only",
	"standard_conforming_strings": "on",
}

func execShow(rs *RuleSet[*execState, Table], node sql.Node, st *execState) (Table, error) {
	key := strings.Join(node.(*sql.Show).Args, " ")

	value, ok := showConfig[key]
	if !ok {
		return nil, ErrUnknownShowOption.New(key)
	}

	return st.model.Transform(st.model.Dual(), []sql.Node{
		&sql.Column{Value: sql.NewString(value), As: sql.StrIdent("value")},
	}, st.gen)
}

func copyOptions(options []sql.CopyOption) map[string]string {
	out := make(map[string]string, len(options))
	for _, opt := range options {
		out[opt.Name] = opt.Value
	}
	return out
}

func execCopyFrom(rs *RuleSet[*execState, Table], node sql.Node, st *execState) (Table, error) {
	c := node.(*sql.CopyFrom)
	return nil, st.model.CopyFrom(st.scope, c.Table, c.Path, copyOptions(c.Options))
}

func execCopyTo(rs *RuleSet[*execState, Table], node sql.Node, st *execState) (Table, error) {
	c := node.(*sql.CopyTo)
	return nil, st.model.CopyTo(st.scope, c.Table, c.Path, copyOptions(c.Options))
}

func execDropTable(rs *RuleSet[*execState, Table], node sql.Node, st *execState) (Table, error) {
	for _, name := range node.(*sql.DropTable).Names {
		if err := st.scope.Remove(name); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// execCreateTableAs binds the result only after the inner query fully
// executed, a failing query leaves the scope untouched.
func execCreateTableAs(rs *RuleSet[*execState, Table], node sql.Node, st *execState) (Table, error) {
	c := node.(*sql.CreateTableAs)

	table, err := rs.Dispatch(c.Query, st)
	if err != nil {
		return nil, err
	}
	st.scope.Define(c.Name, table)
	return nil, nil
}
