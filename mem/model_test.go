package mem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dianpeng/sqlframe/plan"
)

func newExec(tables map[string]*Table) (*plan.Executor, *Model) {
	model := NewModel("")
	scope := plan.NewScope()
	for name, t := range tables {
		scope.Define(name, t)
	}
	return plan.NewExecutor(model, scope), model
}

func empTable() *Table {
	return NewTable(
		[]string{"dept", "salary"},
		[][]Value{
			{"A", int64(10)},
			{"A", int64(5)},
			{"B", int64(7)},
		},
	)
}

func query(t *testing.T, exec *plan.Executor, src string) *Table {
	out, err := exec.Execute(src)
	assert.NoError(t, err, src)
	if out == nil {
		return nil
	}
	return out.(*Table)
}

func TestGroupBySum(t *testing.T) {
	assert := assert.New(t)

	exec, _ := newExec(map[string]*Table{"emp": empTable()})

	out := query(t, exec, "select dept, sum(salary) from emp group by dept")
	assert.Equal([]string{"dept", "sum"}, out.Columns())
	assert.Equal([][]Value{
		{"A", int64(15)},
		{"B", int64(7)},
	}, out.Rows())
}

func TestGroupByQualifiedKey(t *testing.T) {
	assert := assert.New(t)

	exec, _ := newExec(map[string]*Table{"emp": empTable()})

	out := query(t, exec, "select emp.dept, sum(salary) from emp group by emp.dept")
	assert.Equal([]string{"dept", "sum"}, out.Columns())
	assert.Equal([][]Value{
		{"A", int64(15)},
		{"B", int64(7)},
	}, out.Rows())
}

func TestGroupByAliasCount(t *testing.T) {
	assert := assert.New(t)

	exec, _ := newExec(map[string]*Table{"emp": empTable()})

	out := query(t, exec, "select dept as d, count(*) from emp group by d")
	assert.Equal([]string{"d", "count"}, out.Columns())
	assert.Equal([][]Value{
		{"A", int64(2)},
		{"B", int64(1)},
	}, out.Rows())
}

func TestAggregateWithoutGroupBy(t *testing.T) {
	assert := assert.New(t)

	exec, _ := newExec(map[string]*Table{
		"orders": NewTable(
			[]string{"price", "qty"},
			[][]Value{
				{int64(2), int64(3)},
				{int64(4), int64(1)},
			},
		),
	})

	// sum(price * qty) + 1 exercises all three split stages
	out := query(t, exec, "select sum(price * qty) + 1 from orders")
	assert.Equal([][]Value{{int64(11)}}, out.Rows())

	out = query(t, exec, "select min(price), max(price), avg(qty) from orders")
	assert.Equal([][]Value{{int64(2), int64(4), float64(2)}}, out.Rows())
}

func TestJoin(t *testing.T) {
	assert := assert.New(t)

	a := NewTable([]string{"id", "va"}, [][]Value{{int64(1), "x"}})

	// one matching key yields one merged row with both sides namespaced
	exec, _ := newExec(map[string]*Table{
		"a": a,
		"b": NewTable([]string{"id", "vb"}, [][]Value{{int64(1), "y"}}),
	})
	out := query(t, exec, "select * from a join b on a.id = b.id")
	assert.Equal([]string{"a/@/id", "va", "b/@/id", "vb"}, out.Columns())
	assert.Equal([][]Value{{int64(1), "x", int64(1), "y"}}, out.Rows())

	// no matching key yields zero rows
	exec, _ = newExec(map[string]*Table{
		"a": a,
		"b": NewTable([]string{"id", "vb"}, [][]Value{{int64(2), "y"}}),
	})
	out = query(t, exec, "select * from a join b on a.id = b.id")
	assert.Equal(0, out.NumRows())
}

func TestImplicitJoin(t *testing.T) {
	assert := assert.New(t)

	exec, _ := newExec(map[string]*Table{
		"a": NewTable([]string{"id", "v"}, [][]Value{{int64(1), int64(10)}, {int64(2), int64(0)}}),
		"b": NewTable([]string{"id"}, [][]Value{{int64(1)}, {int64(2)}}),
	})

	out := query(t, exec, "select a.v from a, b where a.id = b.id and a.v > 1")
	assert.Equal([][]Value{{int64(10)}}, out.Rows())
}

func TestAmbiguousColumn(t *testing.T) {
	assert := assert.New(t)

	exec, _ := newExec(map[string]*Table{
		"a": NewTable([]string{"id"}, [][]Value{{int64(1)}}),
		"b": NewTable([]string{"id"}, [][]Value{{int64(1)}}),
	})

	_, err := exec.Execute("select id from a join b on a.id = b.id")
	assert.True(plan.ErrAmbiguousColumn.Is(err))
}

func TestConstantSelect(t *testing.T) {
	assert := assert.New(t)

	exec, _ := newExec(nil)

	out := query(t, exec, "select 1")
	assert.Equal(1, out.NumRows())
	assert.Len(out.Columns(), 1)
	assert.Equal(int64(1), out.Rows()[0][0])
}

func TestWhereFilter(t *testing.T) {
	assert := assert.New(t)

	exec, _ := newExec(map[string]*Table{"emp": empTable()})

	out := query(t, exec, "select emp.salary from emp where emp.dept = 'A'")
	assert.Equal([][]Value{{int64(10)}, {int64(5)}}, out.Rows())
}

func TestDistinct(t *testing.T) {
	assert := assert.New(t)

	exec, _ := newExec(map[string]*Table{"emp": empTable()})

	out := query(t, exec, "select distinct dept from emp")
	assert.Equal([][]Value{{"A"}, {"B"}}, out.Rows())
}

func TestOrderLimitOffset(t *testing.T) {
	assert := assert.New(t)

	exec, _ := newExec(map[string]*Table{"emp": empTable()})

	out := query(t, exec, "select salary from emp order by salary desc")
	assert.Equal([][]Value{{int64(10)}, {int64(7)}, {int64(5)}}, out.Rows())

	out = query(t, exec, "select salary from emp order by 1 limit 1 offset 1")
	assert.Equal([][]Value{{int64(7)}}, out.Rows())
}

func TestSubQuery(t *testing.T) {
	assert := assert.New(t)

	exec, _ := newExec(map[string]*Table{"emp": empTable()})

	out := query(t, exec, "select s.salary from (select salary from emp where salary > 5) as s")
	assert.Equal([][]Value{{int64(10)}, {int64(7)}}, out.Rows())
}

func TestCTE(t *testing.T) {
	assert := assert.New(t)

	exec, _ := newExec(map[string]*Table{"emp": empTable()})

	out := query(t, exec, "with big as (select salary from emp where salary > 5) select count(*) from big")
	assert.Equal([][]Value{{int64(2)}}, out.Rows())

	// the CTE binding is gone after the statement
	_, err := exec.Execute("select * from big")
	assert.True(plan.ErrTableNotFound.Is(err))
}

func TestCreateAndDropTable(t *testing.T) {
	assert := assert.New(t)

	exec, _ := newExec(map[string]*Table{"emp": empTable()})

	out := query(t, exec, "create table tall as select dept, sum(salary) from emp group by dept")
	assert.Nil(out)

	out = query(t, exec, "select sum from tall order by sum")
	assert.Equal([][]Value{{int64(7)}, {int64(15)}}, out.Rows())

	query(t, exec, "drop table tall")
	_, err := exec.Execute("select * from tall")
	assert.True(plan.ErrTableNotFound.Is(err))
}

func TestTableFunction(t *testing.T) {
	assert := assert.New(t)

	exec, model := newExec(map[string]*Table{
		"t": NewTable([]string{"n"}, [][]Value{{int64(2)}, {int64(0)}, {int64(1)}}),
	})

	model.RegisterTableFunction("seq", func(args []Value) (*Table, error) {
		n := args[0].(int64)
		rows := [][]Value{}
		for i := int64(1); i <= n; i++ {
			rows = append(rows, []Value{i})
		}
		return NewTable([]string{"v"}, rows), nil
	})

	out := query(t, exec, "select * from seq(2) as s")
	assert.Equal([]string{"v"}, out.Columns())
	assert.Equal([][]Value{{int64(1)}, {int64(2)}}, out.Rows())

	// lateral: one evaluation per left row in row order, zero result rows
	// contribute nothing
	out = query(t, exec, "select * from t, lateral seq(t.n) as s")
	assert.Equal([]string{"n", "v"}, out.Columns())
	assert.Equal([][]Value{
		{int64(2), int64(1)},
		{int64(2), int64(2)},
		{int64(1), int64(1)},
	}, out.Rows())

	// lateral needs at least one column argument
	_, err := exec.Execute("select * from t, lateral seq(3) as s")
	assert.True(ErrLateralArgs.Is(err))
}

func TestShow(t *testing.T) {
	assert := assert.New(t)

	exec, _ := newExec(nil)

	out := query(t, exec, "show transaction isolation level")
	assert.Equal([]string{"value"}, out.Columns())
	assert.Equal([][]Value{{"read only"}}, out.Rows())

	out = query(t, exec, "show standard_conforming_strings")
	assert.Equal([][]Value{{"on"}}, out.Rows())
}

func TestCopy(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	assert.NoError(os.WriteFile(
		filepath.Join(dir, "emp.csv"),
		[]byte("dept;salary\nA;10\nA;5\nB;7\n"),
		0644,
	))

	model := NewModel(dir)
	exec := plan.NewExecutor(model, plan.NewScope())

	out, err := exec.Execute("copy emp from 'emp.csv' with (format 'csv', header true, delimiter ';')")
	assert.NoError(err)
	assert.Nil(out)

	res := query(t, exec, "select dept, sum(salary) from emp group by dept")
	assert.Equal([][]Value{{"A", int64(15)}, {"B", int64(7)}}, res.Rows())

	_, err = exec.Execute("copy emp to 'out.csv'")
	assert.NoError(err)

	data, err := os.ReadFile(filepath.Join(dir, "out.csv"))
	assert.NoError(err)
	assert.Equal("dept,salary\nA,10\nA,5\nB,7\n", string(data))
}

func TestIdempotence(t *testing.T) {
	assert := assert.New(t)

	exec, _ := newExec(map[string]*Table{"emp": empTable()})
	src := "select dept, sum(salary) from emp group by dept order by dept"

	first := query(t, exec, src)
	second := query(t, exec, src)

	assert.Equal(first.Columns(), second.Columns())
	assert.Equal(first.Rows(), second.Rows())
}

func TestQualifiedWildcard(t *testing.T) {
	assert := assert.New(t)

	exec, _ := newExec(map[string]*Table{
		"a": NewTable([]string{"id"}, [][]Value{{int64(1)}}),
		"b": NewTable([]string{"id"}, [][]Value{{int64(1)}}),
	})

	out := query(t, exec, "select a.* from a join b on a.id = b.id")
	assert.Equal([]string{"id"}, out.Columns())
	assert.Equal([][]Value{{int64(1)}}, out.Rows())
}
