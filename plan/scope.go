package plan

// Scope maps table names to backend table handles. It is owned by the
// caller and carried through one statement's compilation; CTEs shadow it
// with a clone so their bindings vanish with the statement, while CREATE
// TABLE AS and DROP TABLE mutate it in place and stay visible to later
// statements. Not internally synchronized, concurrent statements sharing a
// scope must be serialized by the caller.
type Scope struct {
	tables map[string]Table
}

func NewScope() *Scope {
	return &Scope{
		tables: make(map[string]Table),
	}
}

func (self *Scope) Define(name string, t Table) {
	self.tables[name] = t
}

func (self *Scope) Lookup(name string) (Table, bool) {
	t, ok := self.tables[name]
	return t, ok
}

// Remove drops a binding; a name not present fails with ErrUnknownTable.
func (self *Scope) Remove(name string) error {
	if _, ok := self.tables[name]; !ok {
		return ErrUnknownTable.New(name)
	}
	delete(self.tables, name)
	return nil
}

// Clone copies the binding set, not the underlying tables.
func (self *Scope) Clone() *Scope {
	out := NewScope()
	for k, v := range self.tables {
		out.tables[k] = v
	}
	return out
}

func (self *Scope) Names() []string {
	out := make([]string, 0, len(self.tables))
	for k := range self.tables {
		out = append(out, k)
	}
	return out
}
