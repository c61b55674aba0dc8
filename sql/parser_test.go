package sql

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

// one parses the source and compares the canonical print of the resulting
// tree. The canonical form fully parenthesizes expressions, which is what
// makes precedence visible in the expectation.
func TestParserSelect(t *testing.T) {
	assert := assert.New(t)

	one := func(source, expect string) {
		n, err := Parse(source)
		assert.NoError(err, source)
		if err == nil {
			assert.Equal(expect, PrintNode(n), source)
		}
	}

	one("select 1", "select 1")
	one("select 1;", "select 1")
	one("select a, b as c from t",
		"select a, b as c from t")
	one("select * from t",
		"select * from t")
	one("select t.* from t",
		"select t.* from t")
	one("select distinct a from t",
		"select distinct a from t")
	one("select all a from t",
		"select all a from t")
	one("select a from t where a > 1",
		"select a from t where (a > 1)")
	one("select sum(a), count(*) from t group by b",
		"select sum(a), count(*) from t group by b")
	one("select a from t having sum(b) > 1",
		"select a from t having (sum(b) > 1)")
	one("select a from t order by a desc, 2 limit 10 offset 2",
		"select a from t order by a desc, 2 asc limit 10 offset 2")
	one("select a from s.t",
		"select a from s.t")
	one("select a from t as x",
		"select a from t as x")
	one("select a from t x",
		"select a from t as x")
}

func TestParserExpr(t *testing.T) {
	assert := assert.New(t)

	one := func(source, expect string) {
		n, err := Parse("select " + source)
		assert.NoError(err, source)
		if err == nil {
			assert.Equal("select "+expect, PrintNode(n), source)
		}
	}

	one("1 + 2 * 3", "(1 + (2 * 3))")
	one("(1 + 2) * 3", "((1 + 2) * 3)")
	one("1 + 2 = 3 and true or false",
		"((((1 + 2) = 3) and true) or false)")
	one("a <> b", "(a <> b)")
	one("a != b", "(a <> b)")
	one("10 % 3 / 2", "((10 % 3) / 2)")
	one("'str' as s", "\"str\" as s")
	one("a.b.c", "a.b.c")
	one(`t."Quoted"`, `t."Quoted"`)
	one("avg(a + b)", "avg((a + b))")
	one("count(1)", "count(1)")
}

func TestParserFrom(t *testing.T) {
	assert := assert.New(t)

	one := func(source, expect string) {
		n, err := Parse(source)
		assert.NoError(err, source)
		if err == nil {
			assert.Equal(expect, PrintNode(n), source)
		}
	}

	one("select * from a join b on a.x = b.x",
		"select * from a inner join b on (a.x = b.x)")
	one("select * from a inner join b on a.x = b.x",
		"select * from a inner join b on (a.x = b.x)")
	one("select * from a join b on a.x = b.x join c on a.y = c.y",
		"select * from a inner join b on (a.x = b.x) inner join c on (a.y = c.y)")
	one("select * from a, b",
		"select * from a, b")
	one("select * from (select 1) as s",
		"select * from (select 1) as s")
	one("select * from (select 1) s",
		"select * from (select 1) as s")
	one("select * from f(1, 'x') as u",
		"select * from f(1, \"x\") as u")
	one("select * from t, lateral f(t.a) as u",
		"select * from t, lateral f(t.a) as u")
}

func TestParserStatement(t *testing.T) {
	assert := assert.New(t)

	one := func(source, expect string) {
		n, err := Parse(source)
		assert.NoError(err, source)
		if err == nil {
			assert.Equal(expect, PrintNode(n), source)
		}
	}

	one("with x as (select 1) select * from x",
		"with x as (select 1) select * from x")
	one("with x as (select 1), y as (select 2) select * from y",
		"with x as (select 1), y as (select 2) select * from y")
	one("show standard_conforming_strings",
		"show standard_conforming_strings")
	one("show transaction isolation level",
		"show transaction isolation level")
	one("copy t from 'f.csv'",
		"copy t from \"f.csv\"")
	one("copy t to 'out.csv' with (delimiter ';', header true)",
		"copy t to \"out.csv\"")
	one("drop table a, b",
		"drop table a, b")
	one("create table x as select a from t",
		"create table x as select a from t")
}

func TestParserCopyOptions(t *testing.T) {
	assert := assert.New(t)

	n, err := Parse("copy t from 'f.csv' with (delimiter ';', header true, skip 1)")
	assert.NoError(err)
	cp := n.(*CopyFrom)
	assert.Equal("t", cp.Table)
	assert.Equal("f.csv", cp.Path)
	assert.Equal([]CopyOption{
		{Name: "delimiter", Value: ";"},
		{Name: "header", Value: "true"},
		{Name: "skip", Value: "1"},
	}, cp.Options)
}

func TestParserError(t *testing.T) {
	assert := assert.New(t)

	bad := func(source string) {
		_, err := Parse(source)
		assert.Error(err, source)
	}

	bad("")
	bad("select")
	bad("select a from")
	bad("select a from t where")
	bad("select a from (1) as s")
	bad("select a from (select 1)") // subquery needs a name
	bad("select a from t limit x")
	bad("select a from t order by a + 1")
	bad("select 1 select 2")
	bad("copy t from f.csv") // path must be quoted
	bad("drop a")
	bad("create table x as drop table y")
	bad("show")
	bad("sum(1)")
	bad("select sum() from t")          // aggregates are unary
	bad("select sum(a, b) from t")      // ditto
	bad("select count(a, b, c) from t") // ditto
}
