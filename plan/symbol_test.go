package plan

import (
	"github.com/stretchr/testify/assert"
	"testing"

	"github.com/dianpeng/sqlframe/sql"
)

func TestNameGenerator(t *testing.T) {
	assert := assert.New(t)

	gen := NewNameGenerator()

	// literal names pass through
	assert.Equal("foo", gen.Get(sql.StrIdent("foo")))

	a := sql.UniqueIdent()
	b := sql.UniqueIdent()

	assert.Equal("unique-0", gen.Get(a))
	assert.Equal("unique-1", gen.Get(b))

	// memoized per symbol
	assert.Equal("unique-0", gen.Get(a))
	assert.Equal("unique-1", gen.Get(b))
}

func TestNameGeneratorFix(t *testing.T) {
	assert := assert.New(t)

	gen := NewNameGenerator()
	a := sql.UniqueIdent()
	b := sql.UniqueIdent()

	fixed := gen.Fix([]sql.Ident{a, b})

	assert.Equal("unique-0", fixed.Get(a))
	assert.Equal("unique-1", fixed.Get(b))
	assert.Equal("plain", fixed.Get(sql.StrIdent("plain")))

	// a symbol never fixed must not resolve through a frozen generator
	assert.Panics(func() {
		fixed.Get(sql.UniqueIdent())
	})

	// the original generator keeps minting
	c := sql.UniqueIdent()
	assert.Equal("unique-2", gen.Get(c))
}
