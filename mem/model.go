package mem

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/dianpeng/sqlframe/plan"
	"github.com/dianpeng/sqlframe/sql"
)

// Model is the in-process backend implementing the abstract table
// operations. Copy statements resolve relative paths against the model's
// basepath.
type Model struct {
	basepath   string
	tableFuncs map[string]TableFunc
}

// TableFunc is a table-valued function: scalar arguments in, table out. The
// same registry serves direct FROM calls and lateral joins.
type TableFunc func(args []Value) (*Table, error)

func NewModel(basepath string) *Model {
	if basepath == "" {
		basepath = "."
	}
	return &Model{
		basepath:   basepath,
		tableFuncs: make(map[string]TableFunc),
	}
}

func (self *Model) RegisterTableFunction(name string, fn TableFunc) {
	self.tableFuncs[name] = fn
}

func (self *Model) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(self.basepath, p)
}

/** -------------------------------------------------------------------------
 ** plan.Model implementation
 ** -----------------------------------------------------------------------*/

func (self *Model) Dual() plan.Table {
	return NewTable(nil, [][]Value{{}})
}

func (self *Model) GetTable(scope *plan.Scope, name, alias string) (plan.Table, error) {
	t, ok := scope.Lookup(name)
	if !ok {
		return nil, plan.ErrTableNotFound.New(name)
	}
	if alias == "" {
		alias = name
	}
	return self.AddTableToColumns(t, alias), nil
}

func (self *Model) FilterTable(t plan.Table, predicate sql.Expr, gen *plan.NameGenerator) (plan.Table, error) {
	table := t.(*Table)

	rows := [][]Value{}
	for _, row := range table.rows {
		env := &evalEnv{cols: table.cols, row: row, gen: gen}
		v, err := evalExpr(predicate, env)
		if err != nil {
			return nil, err
		}
		if keep, ok := v.(bool); ok && keep {
			rows = append(rows, row)
		}
	}
	return NewTable(table.cols, rows), nil
}

func (self *Model) Transform(t plan.Table, columns []sql.Node, gen *plan.NameGenerator) (plan.Table, error) {
	table := t.(*Table)

	cols := make([]string, 0, len(columns))
	exprs := make([]sql.Expr, 0, len(columns))

	for _, item := range columns {
		switch item.Type() {
		case sql.NodeColumn:
			col := item.(*sql.Column)
			cols = append(cols, gen.Get(col.As))
			exprs = append(exprs, col.Value)
			break
		case sql.NodeInternalName:
			id := item.(*sql.InternalName).Id
			cols = append(cols, id)
			exprs = append(exprs, item)
			break
		default:
			return nil, ErrEval.New(sql.TypeName(item.Type()))
		}
	}

	rows := make([][]Value, 0, len(table.rows))
	for _, row := range table.rows {
		env := &evalEnv{cols: table.cols, row: row, gen: gen}
		out := make([]Value, len(exprs))
		for i, e := range exprs {
			v, err := evalExpr(e, env)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		rows = append(rows, out)
	}

	return NewTable(cols, rows), nil
}

func (self *Model) Aggregate(t plan.Table, aggregates []sql.Node, groupBy []sql.Node, gen *plan.NameGenerator) (plan.Table, error) {
	table := t.(*Table)

	// freeze the generator over the names this stage may touch; a symbol
	// escaping this set would make the plan nondeterministic
	ids := []sql.Ident{}
	for _, item := range append(append([]sql.Node{}, groupBy...), aggregates...) {
		col := item.(*sql.Column)
		ids = append(ids, col.As)
		sql.Walk(col.Value, func(n sql.Node) bool {
			if n.Type() == sql.NodeName {
				if id := n.(*sql.Name).Id; id.IsUnique() {
					ids = append(ids, id)
				}
			}
			return true
		})
	}
	fixed := gen.Fix(ids)

	groupCols := make([]string, len(groupBy))
	groupIdx := make([]int, len(groupBy))
	for i, item := range groupBy {
		groupCols[i] = fixed.Get(item.(*sql.Column).As)
		idx := table.colIndex(groupCols[i])
		if idx < 0 {
			return nil, plan.ErrColumnNotFound.New(groupCols[i], table.cols)
		}
		groupIdx[i] = idx
	}

	// bucket rows by key in encounter order
	type group struct {
		key  []Value
		rows [][]Value
	}
	order := []string{}
	groups := make(map[string]*group)

	for _, row := range table.rows {
		key := make([]Value, len(groupIdx))
		for i, idx := range groupIdx {
			key[i] = row[idx]
		}
		k := fmt.Sprintf("%#v", key)
		g, ok := groups[k]
		if !ok {
			g = &group{key: key}
			groups[k] = g
			order = append(order, k)
		}
		g.rows = append(g.rows, row)
	}

	aggCols := make([]string, len(aggregates))
	aggCalls := make([]*sql.CallSetFunction, len(aggregates))
	for i, item := range aggregates {
		col := item.(*sql.Column)
		aggCols[i] = fixed.Get(col.As)
		aggCalls[i] = col.Value.(*sql.CallSetFunction)
	}

	outCols := append(append([]string{}, groupCols...), aggCols...)
	outRows := [][]Value{}

	for _, k := range order {
		g := groups[k]
		row := append([]Value{}, g.key...)
		for _, call := range aggCalls {
			v, err := evalAggregate(call, table.cols, g.rows, fixed)
			if err != nil {
				return nil, err
			}
			row = append(row, v)
		}
		outRows = append(outRows, row)
	}

	return NewTable(outCols, outRows), nil
}

func (self *Model) Join(left, right plan.Table, condition sql.Expr, kind string, gen *plan.NameGenerator) (plan.Table, error) {
	if kind != "" && kind != sql.JoinInner {
		return nil, plan.ErrUnsupportedJoinKind.New(kind)
	}

	l := left.(*Table)
	r := right.(*Table)
	outCols := append(append([]string{}, l.cols...), r.cols...)

	if plan.TrivialCondition(condition) {
		rows := [][]Value{}
		for _, lr := range l.rows {
			for _, rr := range r.rows {
				rows = append(rows, append(append([]Value{}, lr...), rr...))
			}
		}
		return NewTable(outCols, rows), nil
	}

	leftKeys, rightKeys, err := plan.AsJoinKeys(condition, l.cols, r.cols)
	if err != nil {
		return nil, err
	}

	leftIdx := make([]int, len(leftKeys))
	rightIdx := make([]int, len(rightKeys))
	for i := range leftKeys {
		if leftIdx[i] = l.colIndex(leftKeys[i]); leftIdx[i] < 0 {
			return nil, plan.ErrColumnNotFound.New(leftKeys[i], l.cols)
		}
		if rightIdx[i] = r.colIndex(rightKeys[i]); rightIdx[i] < 0 {
			return nil, plan.ErrColumnNotFound.New(rightKeys[i], r.cols)
		}
	}

	hashKey := func(row []Value, idx []int) string {
		key := make([]Value, len(idx))
		for i, j := range idx {
			key[i] = row[j]
		}
		return fmt.Sprintf("%#v", key)
	}

	index := make(map[string][][]Value)
	for _, rr := range r.rows {
		k := hashKey(rr, rightIdx)
		index[k] = append(index[k], rr)
	}

	rows := [][]Value{}
	for _, lr := range l.rows {
		for _, rr := range index[hashKey(lr, leftIdx)] {
			rows = append(rows, append(append([]Value{}, lr...), rr...))
		}
	}

	return NewTable(outCols, rows), nil
}

func (self *Model) Lateral(t plan.Table, gen *plan.NameGenerator, fn string, args []sql.Expr, alias string) (plan.Table, error) {
	table := t.(*Table)

	f, ok := self.tableFuncs[fn]
	if !ok {
		return nil, ErrUnknownFunction.New(fn)
	}

	hasColumnArg := false
	for _, arg := range args {
		sql.Walk(arg, func(n sql.Node) bool {
			if n.Type() == sql.NodeName || n.Type() == sql.NodeInternalName {
				hasColumnArg = true
				return false
			}
			return true
		})
	}
	if !hasColumnArg {
		return nil, ErrLateralArgs.New(fn)
	}

	outCols := append([]string{}, table.cols...)
	fnCols := []string(nil)
	rows := [][]Value{}

	for _, row := range table.rows {
		env := &evalEnv{cols: table.cols, row: row, gen: gen}

		values := make([]Value, len(args))
		for i, arg := range args {
			v, err := evalExpr(arg, env)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}

		result, err := f(values)
		if err != nil {
			return nil, err
		}

		if fnCols == nil {
			for _, c := range result.cols {
				fnCols = append(fnCols, plan.ColumnSetTable(c, alias))
			}
			outCols = append(outCols, fnCols...)
		} else if len(result.cols) != len(fnCols) {
			return nil, ErrRowShape.New(fn)
		}

		// a left row producing zero result rows simply contributes nothing
		for _, rr := range result.rows {
			rows = append(rows, append(append([]Value{}, row...), rr...))
		}
	}

	return NewTable(outCols, rows), nil
}

func (self *Model) SortValues(t plan.Table, names []string, ascending []bool) (plan.Table, error) {
	table := t.(*Table)

	idx := make([]int, len(names))
	for i, name := range names {
		if idx[i] = table.colIndex(name); idx[i] < 0 {
			return nil, plan.ErrColumnNotFound.New(name, table.cols)
		}
	}

	rows := append([][]Value{}, table.rows...)
	sort.SliceStable(rows, func(a, b int) bool {
		for i, j := range idx {
			cmp, ok := compareValues(rows[a][j], rows[b][j])
			if !ok || cmp == 0 {
				continue
			}
			if ascending[i] {
				return cmp < 0
			}
			return cmp > 0
		}
		return false
	})

	return NewTable(table.cols, rows), nil
}

func (self *Model) LimitOffset(t plan.Table, limit, offset int64) (plan.Table, error) {
	table := t.(*Table)
	rows := table.rows

	if offset > 0 {
		if offset >= int64(len(rows)) {
			rows = nil
		} else {
			rows = rows[offset:]
		}
	}
	if limit >= 0 && limit < int64(len(rows)) {
		rows = rows[:limit]
	}

	return NewTable(table.cols, rows), nil
}

func (self *Model) DropDuplicates(t plan.Table) (plan.Table, error) {
	table := t.(*Table)

	seen := make(map[string]bool)
	rows := [][]Value{}
	for _, row := range table.rows {
		k := fmt.Sprintf("%#v", row)
		if seen[k] {
			continue
		}
		seen[k] = true
		rows = append(rows, row)
	}

	return NewTable(table.cols, rows), nil
}

func (self *Model) AddTableToColumns(t plan.Table, name string) plan.Table {
	table := t.(*Table)

	cols := make([]string, len(table.cols))
	for i, c := range table.cols {
		cols[i] = plan.ColumnSetTable(c, name)
	}
	return NewTable(cols, table.rows)
}

// RemoveTableFromColumns strips the qualifier from every column whose bare
// name stays unambiguous; colliding columns keep their qualifier.
func (self *Model) RemoveTableFromColumns(t plan.Table) plan.Table {
	table := t.(*Table)

	counts := make(map[string]int)
	for _, c := range table.cols {
		counts[plan.ColumnName(c)]++
	}

	cols := make([]string, len(table.cols))
	for i, c := range table.cols {
		if bare := plan.ColumnName(c); counts[bare] == 1 {
			cols[i] = bare
		} else {
			cols[i] = c
		}
	}
	return NewTable(cols, table.rows)
}

func (self *Model) EvalTableValued(node *sql.TableFunction, scope *plan.Scope) (plan.Table, error) {
	f, ok := self.tableFuncs[node.Func]
	if !ok {
		return nil, ErrUnknownFunction.New(node.Func)
	}

	env := &evalEnv{gen: plan.NewNameGenerator()}
	values := make([]Value, len(node.Args))
	for i, arg := range node.Args {
		v, err := evalExpr(arg, env)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}

	result, err := f(values)
	if err != nil {
		return nil, err
	}

	alias := node.Alias
	if alias == "" {
		alias = node.Func
	}
	return self.AddTableToColumns(result, alias), nil
}

/** -------------------------------------------------------------------------
 ** CSV copy
 ** -----------------------------------------------------------------------*/

type copyConfig struct {
	delimiter rune
	header    bool
}

func parseCopyOptions(options map[string]string) (*copyConfig, error) {
	cfg := &copyConfig{
		delimiter: ',',
		header:    true,
	}

	for name, value := range options {
		switch name {
		case "format":
			if value != "csv" {
				return nil, ErrBadOption.New(name, value)
			}
			break
		case "delimiter":
			runes := []rune(value)
			if len(runes) != 1 {
				return nil, ErrBadOption.New(name, value)
			}
			cfg.delimiter = runes[0]
			break
		case "header":
			switch value {
			case "true":
				cfg.header = true
			case "false":
				cfg.header = false
			default:
				return nil, ErrBadOption.New(name, value)
			}
			break
		default:
			return nil, ErrBadOption.New(name, value)
		}
	}

	return cfg, nil
}

func parseCell(s string) Value {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func (self *Model) CopyFrom(scope *plan.Scope, name, path string, options map[string]string) error {
	cfg, err := parseCopyOptions(options)
	if err != nil {
		return err
	}

	file, err := os.Open(self.path(path))
	if err != nil {
		return err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = cfg.delimiter

	records, err := reader.ReadAll()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		scope.Define(name, NewTable(nil, nil))
		return nil
	}

	var cols []string
	if cfg.header {
		cols = records[0]
		records = records[1:]
	} else {
		for i := range records[0] {
			cols = append(cols, fmt.Sprintf("c%d", i))
		}
	}

	rows := make([][]Value, 0, len(records))
	for _, record := range records {
		row := make([]Value, len(record))
		for i, cell := range record {
			row[i] = parseCell(cell)
		}
		rows = append(rows, row)
	}

	scope.Define(name, NewTable(cols, rows))
	return nil
}

func (self *Model) CopyTo(scope *plan.Scope, name, path string, options map[string]string) error {
	cfg, err := parseCopyOptions(options)
	if err != nil {
		return err
	}

	t, ok := scope.Lookup(name)
	if !ok {
		return plan.ErrTableNotFound.New(name)
	}
	table := t.(*Table)

	file, err := os.Create(self.path(path))
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	writer.Comma = cfg.delimiter

	if cfg.header {
		header := make([]string, len(table.cols))
		for i, c := range table.cols {
			header[i] = plan.ColumnName(c)
		}
		if err := writer.Write(header); err != nil {
			return err
		}
	}

	for _, row := range table.rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = formatValue(v)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
