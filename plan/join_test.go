package plan

import (
	"github.com/stretchr/testify/assert"
	"testing"

	"github.com/dianpeng/sqlframe/sql"
)

func eq(l, r string) sql.Expr {
	return &sql.BinaryOp{Op: "=", L: sql.NewName(l), R: sql.NewName(r)}
}

func conj(l, r sql.Expr) sql.Expr {
	return &sql.BinaryOp{Op: "and", L: l, R: r}
}

func TestFlattenJoinCondition(t *testing.T) {
	assert := assert.New(t)

	pairs, err := FlattenJoinCondition(conj(eq("a.id", "b.id"), eq("a.k", "b.k")))
	assert.NoError(err)
	assert.Equal([][2]string{{"a.id", "b.id"}, {"a.k", "b.k"}}, pairs)

	_, err = FlattenJoinCondition(&sql.BinaryOp{Op: "<", L: sql.NewName("a.id"), R: sql.NewName("b.id")})
	assert.True(ErrUnsupportedJoinCondition.Is(err))

	_, err = FlattenJoinCondition(&sql.BinaryOp{Op: "=", L: sql.NewName("a.id"), R: sql.NewInteger(1)})
	assert.True(ErrUnsupportedJoinCondition.Is(err))

	_, err = FlattenJoinCondition(sql.NewBool(true))
	assert.True(ErrUnsupportedJoinCondition.Is(err))
}

func TestAsJoinKeys(t *testing.T) {
	assert := assert.New(t)

	leftCols := []string{"a/@/id", "a/@/k"}
	rightCols := []string{"b/@/id", "b/@/k"}

	left, right, err := AsJoinKeys(conj(eq("a.id", "b.id"), eq("a.k", "b.k")), leftCols, rightCols)
	assert.NoError(err)
	assert.Equal([]string{"a/@/id", "a/@/k"}, left)
	assert.Equal([]string{"b/@/id", "b/@/k"}, right)

	// pairing holds when the sides are written reversed
	left, right, err = AsJoinKeys(eq("b.id", "a.id"), leftCols, rightCols)
	assert.NoError(err)
	assert.Equal([]string{"a/@/id"}, left)
	assert.Equal([]string{"b/@/id"}, right)

	// both members resolving to the same side
	_, _, err = AsJoinKeys(eq("a.id", "a.k"), leftCols, rightCols)
	assert.True(ErrSelfJoinCondition.Is(err))

	// a bare reference present on both sides cannot be classified
	_, _, err = AsJoinKeys(eq("id", "b.k"), leftCols, rightCols)
	assert.True(ErrAmbiguousJoinColumn.Is(err))

	// a reference present on neither side cannot be classified either
	_, _, err = AsJoinKeys(eq("nosuch", "b.k"), leftCols, rightCols)
	assert.True(ErrAmbiguousJoinColumn.Is(err))
}

func TestJoinableConjunct(t *testing.T) {
	assert := assert.New(t)

	leftCols := []string{"a/@/id"}
	rightCols := []string{"b/@/id"}

	assert.True(joinableConjunct(eq("a.id", "b.id"), leftCols, rightCols))
	assert.False(joinableConjunct(eq("a.id", "a.id"), leftCols, rightCols))
	assert.False(joinableConjunct(
		&sql.BinaryOp{Op: ">", L: sql.NewName("a.id"), R: sql.NewInteger(1)},
		leftCols, rightCols,
	))
}

func TestFlattenAnds(t *testing.T) {
	assert := assert.New(t)

	a := eq("a.id", "b.id")
	b := &sql.BinaryOp{Op: ">", L: sql.NewName("a.v"), R: sql.NewInteger(1)}
	c := sql.NewBool(true)

	flat := flattenAnds(conj(conj(a, b), c))
	assert.Len(flat, 3)
	assert.True(sql.Equal(a, flat[0]))
	assert.True(sql.Equal(b, flat[1]))
	assert.True(sql.Equal(c, flat[2]))

	assert.Nil(flattenAnds(nil))
	assert.Nil(andJoin(nil))
	assert.True(sql.Equal(conj(a, b), andJoin([]sql.Expr{a, b})))
}

func TestTrivialCondition(t *testing.T) {
	assert := assert.New(t)

	assert.True(TrivialCondition(nil))
	assert.True(TrivialCondition(sql.NewBool(true)))
	assert.True(TrivialCondition(&sql.BinaryOp{Op: "=", L: sql.NewInteger(1), R: sql.NewInteger(1)}))
	assert.False(TrivialCondition(sql.NewBool(false)))
	assert.False(TrivialCondition(eq("a.id", "b.id")))
}
