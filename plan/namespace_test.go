package plan

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestColumnParts(t *testing.T) {
	assert := assert.New(t)

	// qualifier round-trips exactly
	id := ColumnFromParts("emp", "salary")
	assert.Equal("emp/@/salary", id)
	assert.Equal("emp", ColumnTable(id))
	assert.Equal("salary", ColumnName(id))
	assert.Equal(id, ColumnFromParts(ColumnTable(id), ColumnName(id)))

	// unqualified columns have no separator
	assert.Equal("salary", ColumnFromParts("", "salary"))
	assert.Equal("", ColumnTable("salary"))
	assert.Equal("salary", ColumnName("salary"))

	assert.Equal("dept/@/salary", ColumnSetTable("emp/@/salary", "dept"))
	assert.Equal("dept/@/salary", ColumnSetTable("salary", "dept"))
}

func TestColumnMatches(t *testing.T) {
	assert := assert.New(t)

	assert.True(ColumnMatches("salary", "emp/@/salary"))
	assert.True(ColumnMatches("salary", "salary"))
	assert.True(ColumnMatches("emp.salary", "emp/@/salary"))
	assert.False(ColumnMatches("dept.salary", "emp/@/salary"))
	assert.False(ColumnMatches("emp.salary", "salary"))
	assert.False(ColumnMatches("wage", "emp/@/salary"))

	// a quoted identifier containing a dot is one component, not a qualifier
	assert.True(ColumnMatches(`"Foo.Bar"`, "t/@/Foo.Bar"))
	assert.True(ColumnMatches(`t."Foo.Bar"`, "t/@/Foo.Bar"))
	assert.False(ColumnMatches(`"Foo.Bar"`, "Foo/@/Bar"))
}

func TestSplitQuotedName(t *testing.T) {
	assert := assert.New(t)

	assert.Equal([]string{"a", "b", "c"}, SplitQuotedName("a.b.c"))
	assert.Equal([]string{"a"}, SplitQuotedName("a"))
	assert.Equal([]string{"t", "Foo.Bar"}, SplitQuotedName(`t."Foo.Bar"`))
	assert.Equal([]string{`a"b`}, SplitQuotedName(`a\"b`))

	assert.Equal("t/@/c", ToInternal("t.c"))
	assert.Equal("c", ToInternal("c"))
	assert.Equal("t/@/c", ToInternal("s.t.c"))
}

func TestResolveColumn(t *testing.T) {
	assert := assert.New(t)

	columns := []string{"emp/@/salary", "emp/@/dept", "dept/@/name"}

	// qualified references resolve directly, no existence check
	r, err := ResolveColumn("emp.salary", columns, false)
	assert.NoError(err)
	assert.Equal("emp/@/salary", r)

	r, err = ResolveColumn("nosuch.col", columns, false)
	assert.NoError(err)
	assert.Equal("nosuch/@/col", r)

	// bare references filter by column name
	r, err = ResolveColumn("salary", columns, false)
	assert.NoError(err)
	assert.Equal("emp/@/salary", r)

	// schema qualification beyond the table is dropped
	r, err = ResolveColumn("public.emp.salary", columns, false)
	assert.NoError(err)
	assert.Equal("emp/@/salary", r)

	_, err = ResolveColumn("wage", columns, false)
	assert.True(ErrColumnNotFound.Is(err))

	r, err = ResolveColumn("wage", columns, true)
	assert.NoError(err)
	assert.Equal("", r)

	_, err = ResolveColumn("name", []string{"a/@/name", "b/@/name"}, false)
	assert.True(ErrAmbiguousColumn.Is(err))
}
