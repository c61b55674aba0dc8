package plan

import (
	"github.com/stretchr/testify/assert"
	"testing"

	"github.com/dianpeng/sqlframe/sql"
)

func selCol(expr sql.Expr, alias string) *sql.Column {
	return &sql.Column{Value: expr, As: sql.StrIdent(alias)}
}

func TestSplitBareName(t *testing.T) {
	assert := assert.New(t)

	split, err := SplitAggregate(selCol(sql.NewName("a"), "a"), nil)
	assert.NoError(err)

	levels := split.ByLevels(2)
	assert.Len(levels[LevelPost], 1)
	assert.Len(levels[LevelAgg], 0)
	assert.Len(levels[LevelPre], 0)

	col := levels[LevelPost][0].(*sql.Column)
	assert.Equal("a", col.As.Name)
	assert.True(sql.Equal(sql.NewName("a"), col.Value))
}

func TestSplitSetFunction(t *testing.T) {
	assert := assert.New(t)

	// sum(salary): one pre fragment computing the argument, one aggregate,
	// one post reference
	split, err := SplitAggregate(selCol(&sql.CallSetFunction{
		Func: "sum",
		Args: []sql.Expr{sql.NewName("salary")},
	}, "total"), nil)
	assert.NoError(err)

	levels := split.ByLevels(2)
	assert.Len(levels[LevelPost], 1)
	assert.Len(levels[LevelAgg], 1)
	assert.Len(levels[LevelPre], 1)

	pre := levels[LevelPre][0].(*sql.Column)
	assert.True(sql.Equal(sql.NewName("salary"), pre.Value))
	assert.True(pre.As.IsUnique())

	agg := levels[LevelAgg][0].(*sql.Column)
	assert.True(agg.As.IsUnique())
	call := agg.Value.(*sql.CallSetFunction)
	assert.Equal("sum", call.Func)
	assert.Len(call.Args, 1)

	// the aggregate consumes the pre fragment's synthetic column
	assert.Equal(pre.As, call.Args[0].(*sql.Name).Id)

	// the post projection consumes the aggregate's synthetic column
	post := levels[LevelPost][0].(*sql.Column)
	assert.Equal("total", post.As.Name)
	assert.Equal(agg.As, post.Value.(*sql.Name).Id)
}

func TestSplitPostAggregateArithmetic(t *testing.T) {
	assert := assert.New(t)

	// sum(price * qty) + 1
	expr := &sql.BinaryOp{
		Op: "+",
		L: &sql.CallSetFunction{
			Func: "sum",
			Args: []sql.Expr{&sql.BinaryOp{Op: "*", L: sql.NewName("price"), R: sql.NewName("qty")}},
		},
		R: sql.NewInteger(1),
	}

	split, err := SplitAggregate(selCol(expr, "v"), nil)
	assert.NoError(err)

	levels := split.ByLevels(2)
	assert.Len(levels[LevelPost], 1)
	assert.Len(levels[LevelAgg], 1)
	assert.Len(levels[LevelPre], 1)

	// the pre fragment carries the full row computation
	pre := levels[LevelPre][0].(*sql.Column)
	assert.Equal("(price * qty)", sql.PrintNode(pre.Value))

	// the post fragment finishes on top of the aggregate output
	post := levels[LevelPost][0].(*sql.Column)
	bin := post.Value.(*sql.BinaryOp)
	assert.Equal("+", bin.Op)
	assert.True(bin.L.(*sql.Name).Id.IsUnique())
	assert.True(sql.Equal(sql.NewInteger(1), bin.R))
}

func TestSplitCountStar(t *testing.T) {
	assert := assert.New(t)

	split, err := SplitAggregate(selCol(&sql.CallSetFunction{
		Func: "count",
		Args: []sql.Expr{&sql.WildCard{}},
	}, "count"), nil)
	assert.NoError(err)

	levels := split.ByLevels(2)
	pre := levels[LevelPre][0].(*sql.Column)
	assert.True(sql.Equal(sql.NewInteger(1), pre.Value))

	agg := levels[LevelAgg][0].(*sql.Column)
	assert.Equal("count", agg.Value.(*sql.CallSetFunction).Func)
}

func TestSplitGroupKeyShortCircuit(t *testing.T) {
	assert := assert.New(t)

	groupBy := []*sql.Column{
		{Value: sql.NewName("dept"), As: sql.StrIdent("dept")},
	}

	split, err := SplitAggregate(selCol(sql.NewName("dept"), "dept"), groupBy)
	assert.NoError(err)

	levels := split.ByLevels(2)
	assert.Len(levels[LevelPost], 1)
	assert.Len(levels[LevelAgg], 0)
	assert.Len(levels[LevelPre], 0)

	// a literal alias is referenced as an exact internal identifier, it
	// must not go through name resolution again
	direct := levels[LevelPost][0].(*sql.Column)
	assert.Equal("dept", direct.Value.(*sql.InternalName).Id)

	// same for an alias already carrying a qualifier
	groupBy = []*sql.Column{
		{Value: sql.NewName("emp.dept"), As: sql.StrIdent("emp/@/dept")},
	}
	split, err = SplitAggregate(selCol(sql.NewName("emp.dept"), "emp.dept"), groupBy)
	assert.NoError(err)

	levels = split.ByLevels(2)
	direct = levels[LevelPost][0].(*sql.Column)
	assert.Equal("emp/@/dept", direct.Value.(*sql.InternalName).Id)

	// a group key expression refers to the materialized group column, it is
	// never recomputed
	synthetic := sql.UniqueIdent()
	groupBy = []*sql.Column{
		{Value: &sql.BinaryOp{Op: "+", L: sql.NewName("a"), R: sql.NewName("b")}, As: synthetic},
	}
	split, err = SplitAggregate(
		selCol(&sql.BinaryOp{Op: "+", L: sql.NewName("a"), R: sql.NewName("b")}, "s"),
		groupBy,
	)
	assert.NoError(err)

	levels = split.ByLevels(2)
	assert.Len(levels[LevelPost], 1)
	assert.Len(levels[LevelPre], 0)

	col := levels[LevelPost][0].(*sql.Column)
	assert.Equal(synthetic, col.Value.(*sql.Name).Id)
}

func TestSplitNoHandler(t *testing.T) {
	assert := assert.New(t)

	_, err := SplitAggregate(selCol(&sql.WildCard{}, "w"), nil)
	assert.True(ErrNoHandler.Is(err))
}

func TestByLevelsOverflow(t *testing.T) {
	assert := assert.New(t)

	split := SplitResult{{3, sql.NewInteger(1)}}
	assert.Panics(func() {
		split.ByLevels(2)
	})
}
