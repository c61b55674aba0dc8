package plan

import (
	"fmt"

	"github.com/dianpeng/sqlframe/sql"
)

// NameGenerator resolves identifiers to concrete column names. Literal
// names pass through untouched; unique symbols are assigned "unique-<n>" on
// first sight and memoized, so the same symbol always resolves to the same
// name within one statement's compilation.
//
// A generator is local to one statement and must not be shared across
// concurrent compilations.
type NameGenerator struct {
	names  map[sql.Unique]string
	next   int
	frozen bool
}

func NewNameGenerator() *NameGenerator {
	return &NameGenerator{
		names: make(map[sql.Unique]string),
	}
}

// Get resolves an identifier to its concrete name. Resolving an unseen
// symbol through a frozen generator is a compiler defect, the symbol escaped
// the scope it was fixed for, so it fails hard instead of minting a
// nondeterministic name.
func (self *NameGenerator) Get(id sql.Ident) string {
	if !id.IsUnique() {
		return id.Name
	}

	name, ok := self.names[id.Sym]
	if !ok {
		if self.frozen {
			panic(fmt.Sprintf("unknown unique symbol %d requested from a frozen name generator", id.Sym))
		}
		name = fmt.Sprintf("unique-%d", self.next)
		self.next++
		self.names[id.Sym] = name
	}
	return name
}

// Fix eagerly assigns names for the given identifiers and returns a frozen
// generator holding exactly the assignments made so far.
func (self *NameGenerator) Fix(ids []sql.Ident) *NameGenerator {
	for _, id := range ids {
		self.Get(id)
	}

	names := make(map[sql.Unique]string, len(self.names))
	for k, v := range self.names {
		names[k] = v
	}

	return &NameGenerator{
		names:  names,
		frozen: true,
	}
}
