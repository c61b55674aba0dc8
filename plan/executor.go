package plan

import (
	"github.com/sirupsen/logrus"

	"github.com/dianpeng/sqlframe/sql"
)

// Executor is the persistent convenience entry: it keeps a scope and a
// backend model across statements, so CREATE TABLE AS and DROP TABLE stay
// visible to later queries.
type Executor struct {
	model Model
	scope *Scope
	log   *logrus.Entry
}

func NewExecutor(model Model, scope *Scope) *Executor {
	if scope == nil {
		scope = NewScope()
	}
	return &Executor{
		model: model,
		scope: scope,
		log:   logrus.WithField("component", "executor"),
	}
}

func (self *Executor) Scope() *Scope {
	return self.scope
}

// Execute parses and runs one statement. Statements without a result table
// return nil.
func (self *Executor) Execute(src string) (Table, error) {
	stmt, err := sql.Parse(src)
	if err != nil {
		return nil, err
	}

	self.log.WithField("statement", sql.TypeName(stmt.Type())).Debug("executing statement")

	if stmt.Type() == sql.NodeCreateTableAs {
		self.log.WithField("table", stmt.(*sql.CreateTableAs).Name).Info("create table")
	}

	return NewCompiler(self.model, self.scope).Execute(stmt)
}
