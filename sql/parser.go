package sql

// parser of the sql, tailored to the statements the compiler accepts. The
// grammar in EBNF:
//
// ### statement ---------------------------------------------------------------
//
// statement := select-stmt | show | copy | drop-table | create-table-as
//
// select-stmt := with? select
// with := WITH cte (',' cte)*
// cte := ID AS '(' select ')'
//
// select :=
//     SELECT (DISTINCT|ALL)? items
//     from?
//     where?
//     group-by?
//     having?
//     order-by?
//     limit?
//     offset?
//
// items := item (',' item)*
// item := '*' | ref '.' '*' | expr (AS ID)?
//
// from := FROM table-item (',' table-item)*
// table-item := table-base (join)* | LATERAL table-function alias?
// table-base := ref alias? | '(' select ')' alias | table-function alias?
// table-function := ID '(' expr-list? ')'
// join := INNER? JOIN table-base ON expr
// alias := AS? ID
//
// where := WHERE expr
// group-by := GROUPBY expr-list
// having := HAVING expr
// order-by := ORDERBY order-key (',' order-key)*
// order-key := (INT | ref) (ASC|DESC)?
// limit := LIMIT INT
// offset := OFFSET INT
//
// show := SHOW ID+
// copy := COPY ID (FROM|TO) STR (WITH '(' option (',' option)* ')')?
// option := ID (STR|INT|ID)
// drop-table := DROP TABLE ID (',' ID)*
// create-table-as := CREATE TABLE ID AS select
//
// ### expression --------------------------------------------------------------
//
// expr := binary, precedence climbing:
//     OR < AND < (= <> < <= > >=) < (+ -) < (* / %)
//
// atomic := INT | TRUE | FALSE | STR | ref | agg-call | '(' expr ')'
// ref := part ('.' part)*, part := ID | quoted-ID
// agg-call := (SUM|AVG|MIN|MAX|COUNT) '(' ('*' | expr-list) ')'
//
// ------------------------------------------------------------------------------

import (
	"fmt"
	"strings"
)

const (
	stageNA = iota
	stageInProjection
)

type Parser struct {
	L     *Lexer
	stage int // used to notify certain grammar
}

func newParser(xx string) *Parser {
	return &Parser{
		L: newLexer(xx),
	}
}

func NewParser(xx string) *Parser {
	return newParser(xx)
}

// Parse is the convenience entry: one statement per source string.
func Parse(src string) (Node, error) {
	return NewParser(src).Parse()
}

func (self *Parser) err(msg string) error {
	if self.L.Token == TkError {
		return fmt.Errorf("%s", self.L.Lexeme.Text)
	}
	return fmt.Errorf("%s: %s", self.L.dinfo(), msg)
}

func (self *Parser) expect(tk int) error {
	if self.L.Token == tk {
		self.L.Next()
		return nil
	}
	return self.err("unexpected token during grammar parsing")
}

func (self *Parser) expectId() (string, error) {
	if self.L.Token != TkId {
		return "", self.err("expect an identifier")
	}
	id := self.L.Lexeme.Text
	self.L.Next()
	return id, nil
}

func (self *Parser) Parse() (Node, error) {
	var out Node

	self.L.Next()
	switch self.L.Token {
	case TkSelect, TkWith:
		if n, err := self.parseSelectStmt(); err != nil {
			return nil, err
		} else {
			out = n
		}
		break

	case TkShow:
		if n, err := self.parseShow(); err != nil {
			return nil, err
		} else {
			out = n
		}
		break

	case TkCopy:
		if n, err := self.parseCopy(); err != nil {
			return nil, err
		} else {
			out = n
		}
		break

	case TkDrop:
		if n, err := self.parseDropTable(); err != nil {
			return nil, err
		} else {
			out = n
		}
		break

	case TkCreate:
		if n, err := self.parseCreateTableAs(); err != nil {
			return nil, err
		} else {
			out = n
		}
		break

	default:
		return nil, self.err("unknown statement, expect select/show/copy/drop/create")
	}

	if self.L.Token == TkSemicolon {
		self.L.Next()
	}
	if self.L.Token != TkEof {
		return nil, self.err("dangling code after parser thinks the statement is finished")
	}
	return out, nil
}

/** -------------------------------------------------------------------------
 ** Statements
 ** -----------------------------------------------------------------------*/

func (self *Parser) parseSelectStmt() (*Select, error) {
	var with []*CTE

	if self.L.Token == TkWith {
		self.L.Next()
		for {
			name, err := self.expectId()
			if err != nil {
				return nil, err
			}
			if err := self.expect(TkAs); err != nil {
				return nil, err
			}
			if err := self.expect(TkLPar); err != nil {
				return nil, err
			}
			if self.L.Token != TkSelect {
				return nil, self.err("common table expression must be a select")
			}
			q, err := self.parseSelect()
			if err != nil {
				return nil, err
			}
			if err := self.expect(TkRPar); err != nil {
				return nil, err
			}
			with = append(with, &CTE{Name: name, Query: q})

			if self.L.Token == TkComma {
				self.L.Next()
				continue
			}
			break
		}
	}

	if self.L.Token != TkSelect {
		return nil, self.err("expect a select statement")
	}

	s, err := self.parseSelect()
	if err != nil {
		return nil, err
	}
	s.With = with
	return s, nil
}

func (self *Parser) parseSelect() (*Select, error) {
	self.L.Next() // skip the *select* keyword

	out := &Select{}

	switch self.L.Token {
	case TkDistinct:
		out.Quantifier = QuantifierDistinct
		self.L.Next()
		break
	case TkAll:
		out.Quantifier = QuantifierAll
		self.L.Next()
		break
	default:
		break
	}

	if items, err := self.parseItems(); err != nil {
		return nil, err
	} else {
		out.Columns = items
	}

LOOP:
	for {
		switch self.L.Token {
		case TkFrom:
			if out.From != nil {
				return nil, self.err("from clause has already been specified")
			}
			if n, err := self.parseFrom(); err != nil {
				return nil, err
			} else {
				out.From = n
			}
			break

		case TkWhere:
			if out.Where != nil {
				return nil, self.err("where clause has already been specified")
			}
			self.L.Next()
			if n, err := self.parseExpr(); err != nil {
				return nil, err
			} else {
				out.Where = n
			}
			break

		case TkGroupBy:
			if out.GroupBy != nil {
				return nil, self.err("group by clause has already been specified")
			}
			self.L.Next()
			for {
				if n, err := self.parseExpr(); err != nil {
					return nil, err
				} else {
					out.GroupBy = append(out.GroupBy, n)
				}
				if self.L.Token == TkComma {
					self.L.Next()
					continue
				}
				break
			}
			break

		case TkHaving:
			if out.Having != nil {
				return nil, self.err("having clause has already been specified")
			}
			self.L.Next()
			if n, err := self.parseExpr(); err != nil {
				return nil, err
			} else {
				out.Having = n
			}
			break

		case TkOrderBy:
			if out.OrderBy != nil {
				return nil, self.err("order by clause has already been specified")
			}
			if n, err := self.parseOrderBy(); err != nil {
				return nil, err
			} else {
				out.OrderBy = n
			}
			break

		case TkLimit:
			if out.Limit != nil {
				return nil, self.err("limit clause has already been specified")
			}
			self.L.Next()
			if self.L.Token != TkInt {
				return nil, self.err("limit must be an integer")
			}
			out.Limit = NewInteger(self.L.Lexeme.Int)
			self.L.Next()
			break

		case TkOffset:
			if out.Offset != nil {
				return nil, self.err("offset clause has already been specified")
			}
			self.L.Next()
			if self.L.Token != TkInt {
				return nil, self.err("offset must be an integer")
			}
			out.Offset = NewInteger(self.L.Lexeme.Int)
			self.L.Next()
			break

		default:
			break LOOP
		}
	}

	return out, nil
}

func (self *Parser) parseItems() ([]SelectItem, error) {
	items := []SelectItem{}

	for {
		self.stage = stageInProjection
		item, err := self.parseItem()
		self.stage = stageNA

		if err != nil {
			return nil, err
		}
		items = append(items, item)

		if self.L.Token == TkComma {
			self.L.Next()
			continue
		}
		break
	}

	return items, nil
}

func (self *Parser) parseItem() (SelectItem, error) {
	if self.L.Token == TkMul {
		self.L.Next()
		return &WildCard{}, nil
	}

	expr, err := self.parseExpr()
	if err != nil {
		return nil, err
	}

	// a qualified wildcard is returned by the atomic parser directly
	if expr.Type() == NodeWildCard {
		return expr, nil
	}

	col := &Column{Value: expr}
	if self.L.Token == TkAs {
		self.L.Next()
		alias, err := self.expectId()
		if err != nil {
			return nil, err
		}
		col.As = StrIdent(alias)
	}
	return col, nil
}

func (self *Parser) parseFrom() ([]TableItem, error) {
	self.L.Next() // skip *from*

	out := []TableItem{}
	for {
		item, err := self.parseTableItem()
		if err != nil {
			return nil, err
		}
		out = append(out, item)

		if self.L.Token == TkComma {
			self.L.Next()
			continue
		}
		break
	}
	return out, nil
}

func (self *Parser) parseTableItem() (TableItem, error) {
	if self.L.Token == TkLateral {
		self.L.Next()
		fn, err := self.parseTableFunction()
		if err != nil {
			return nil, err
		}
		return &Lateral{Table: fn}, nil
	}

	current, err := self.parseTableBase()
	if err != nil {
		return nil, err
	}

	for {
		kind := ""
		switch self.L.Token {
		case TkInner:
			self.L.Next()
			if self.L.Token != TkJoin {
				return nil, self.err("expect *join* after the join kind")
			}
			self.L.Next()
			kind = JoinInner
			break
		case TkJoin:
			self.L.Next()
			kind = JoinInner
			break
		default:
			return current, nil
		}

		right, err := self.parseTableBase()
		if err != nil {
			return nil, err
		}
		if err := self.expect(TkOn); err != nil {
			return nil, err
		}
		cond, err := self.parseExpr()
		if err != nil {
			return nil, err
		}
		current = &Join{Left: current, Right: right, On: cond, Kind: kind}
	}
}

func (self *Parser) parseTableBase() (TableItem, error) {
	switch self.L.Token {
	case TkLPar:
		self.L.Next()
		if self.L.Token != TkSelect {
			return nil, self.err("expect a select inside of subquery")
		}
		q, err := self.parseSelect()
		if err != nil {
			return nil, err
		}
		if err := self.expect(TkRPar); err != nil {
			return nil, err
		}
		alias := self.parseAliasOpt()
		if alias == "" {
			return nil, self.err("subqueries need to be named")
		}
		return &SubQuery{Query: q, Alias: alias}, nil

	case TkId:
		name := self.L.Lexeme.Text
		self.L.Next()

		if self.L.Token == TkLPar {
			fn, err := self.parseTableFunctionRest(name)
			if err != nil {
				return nil, err
			}
			return fn, nil
		}

		schema := ""
		if self.L.Token == TkDot {
			self.L.Next()
			part, err := self.expectId()
			if err != nil {
				return nil, err
			}
			schema = name
			name = part
		}

		return &TableRef{
			Schema: schema,
			Name:   name,
			Alias:  self.parseAliasOpt(),
		}, nil

	default:
		return nil, self.err("unexpected token inside of from clause")
	}
}

func (self *Parser) parseTableFunction() (*TableFunction, error) {
	name, err := self.expectId()
	if err != nil {
		return nil, err
	}
	if self.L.Token != TkLPar {
		return nil, self.err("expect '(' for table function")
	}
	return self.parseTableFunctionRest(name)
}

func (self *Parser) parseTableFunctionRest(name string) (*TableFunction, error) {
	self.L.Next() // skip '('

	args := []Expr{}
	for self.L.Token != TkRPar {
		arg, err := self.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if self.L.Token == TkComma {
			self.L.Next()
		} else if self.L.Token != TkRPar {
			return nil, self.err("expect a ',' or ')' in table function arguments")
		}
	}
	self.L.Next()

	return &TableFunction{
		Func:  name,
		Args:  args,
		Alias: self.parseAliasOpt(),
	}, nil
}

func (self *Parser) parseAliasOpt() string {
	if self.L.Token == TkAs {
		self.L.Next()
	}
	if self.L.Token == TkId {
		alias := self.L.Lexeme.Text
		self.L.Next()
		return alias
	}
	return ""
}

func (self *Parser) parseOrderBy() ([]*OrderBy, error) {
	self.L.Next() // skip *order by*

	out := []*OrderBy{}
	for {
		var value Expr

		switch self.L.Token {
		case TkInt:
			value = NewInteger(self.L.Lexeme.Int)
			self.L.Next()
			break
		case TkId, TkQId:
			ref, err := self.parseRef()
			if err != nil {
				return nil, err
			}
			value = ref
			break
		default:
			return nil, self.err("order by key must be a column reference or position")
		}

		order := OrderAsc
		if self.L.Token == TkAsc {
			self.L.Next()
		} else if self.L.Token == TkDesc {
			order = OrderDesc
			self.L.Next()
		}

		out = append(out, &OrderBy{Value: value, Order: order})

		if self.L.Token == TkComma {
			self.L.Next()
			continue
		}
		break
	}
	return out, nil
}

func (self *Parser) parseShow() (*Show, error) {
	self.L.Next() // skip *show*

	args := []string{}
	for self.L.Token == TkId {
		args = append(args, self.L.Lexeme.Text)
		self.L.Next()
	}
	if len(args) == 0 {
		return nil, self.err("show statement needs a parameter name")
	}
	return &Show{Args: args}, nil
}

func (self *Parser) parseCopy() (Node, error) {
	self.L.Next() // skip *copy*

	table, err := self.expectId()
	if err != nil {
		return nil, err
	}

	isFrom := false
	switch self.L.Token {
	case TkFrom:
		isFrom = true
		break
	case TkTo:
		break
	default:
		return nil, self.err("expect *from* or *to* in copy statement")
	}
	self.L.Next()

	if self.L.Token != TkStr {
		return nil, self.err("copy statement needs a quoted file path")
	}
	path := self.L.Lexeme.Text
	self.L.Next()

	options := []CopyOption{}
	if self.L.Token == TkWith {
		self.L.Next()
		if err := self.expect(TkLPar); err != nil {
			return nil, err
		}
		for self.L.Token != TkRPar {
			name, err := self.expectId()
			if err != nil {
				return nil, err
			}
			value := ""
			switch self.L.Token {
			case TkStr, TkId:
				value = self.L.Lexeme.Text
				break
			case TkInt:
				value = fmt.Sprintf("%d", self.L.Lexeme.Int)
				break
			case TkTrue:
				value = "true"
				break
			case TkFalse:
				value = "false"
				break
			default:
				return nil, self.err("copy option needs a value")
			}
			self.L.Next()
			options = append(options, CopyOption{Name: name, Value: value})

			if self.L.Token == TkComma {
				self.L.Next()
			} else if self.L.Token != TkRPar {
				return nil, self.err("expect a ',' or ')' in copy options")
			}
		}
		self.L.Next()
	}

	if isFrom {
		return &CopyFrom{Table: table, Path: path, Options: options}, nil
	}
	return &CopyTo{Table: table, Path: path, Options: options}, nil
}

func (self *Parser) parseDropTable() (*DropTable, error) {
	self.L.Next() // skip *drop*
	if err := self.expect(TkTable); err != nil {
		return nil, err
	}

	names := []string{}
	for {
		name, err := self.expectId()
		if err != nil {
			return nil, err
		}
		names = append(names, name)
		if self.L.Token == TkComma {
			self.L.Next()
			continue
		}
		break
	}
	return &DropTable{Names: names}, nil
}

func (self *Parser) parseCreateTableAs() (*CreateTableAs, error) {
	self.L.Next() // skip *create*
	if err := self.expect(TkTable); err != nil {
		return nil, err
	}
	name, err := self.expectId()
	if err != nil {
		return nil, err
	}
	if err := self.expect(TkAs); err != nil {
		return nil, err
	}
	if self.L.Token != TkSelect {
		return nil, self.err("create table as needs a select statement")
	}
	q, err := self.parseSelect()
	if err != nil {
		return nil, err
	}
	return &CreateTableAs{Name: name, Query: q}, nil
}

/** -------------------------------------------------------------------------
 ** Expressions
 ** -----------------------------------------------------------------------*/

func (self *Parser) parseExpr() (Expr, error) {
	return self.doParseBin(0)
}

const maxOpPrec = 5
const invalidOpPrec = -1

func (self *Parser) binPrec(tk int) int {
	switch tk {
	case TkOr:
		return 0
	case TkAnd:
		return 1
	case TkEq, TkNe, TkLt, TkLe, TkGt, TkGe:
		return 2
	case TkAdd, TkSub:
		return 3
	case TkMul, TkDiv, TkMod:
		return 4
	default:
		return invalidOpPrec
	}
}

func (self *Parser) binOpName(tk int) string {
	switch tk {
	case TkOr:
		return "or"
	case TkAnd:
		return "and"
	case TkEq:
		return "="
	case TkNe:
		return "<>"
	case TkLt:
		return "<"
	case TkLe:
		return "<="
	case TkGt:
		return ">"
	case TkGe:
		return ">="
	case TkAdd:
		return "+"
	case TkSub:
		return "-"
	case TkMul:
		return "*"
	case TkDiv:
		return "/"
	case TkMod:
		return "%"
	default:
		return "?"
	}
}

// Binary parsing, precedence climbing
func (self *Parser) doParseBin(prec int) (Expr, error) {
	if prec == maxOpPrec {
		return self.parseAtomic()
	}

	l, err := self.doParseBin(prec + 1)
	if err != nil {
		return nil, err
	}

	for {
		tk := self.L.Token
		if self.binPrec(tk) != prec {
			break
		}
		self.L.Next() // eat the operator token

		r, err := self.doParseBin(prec + 1)
		if err != nil {
			return nil, err
		}
		l = &BinaryOp{Op: self.binOpName(tk), L: l, R: r}
	}

	return l, nil
}

func (self *Parser) parseAtomic() (Expr, error) {
	switch self.L.Token {
	case TkInt:
		v := self.L.Lexeme.Int
		self.L.Next()
		return NewInteger(v), nil

	case TkTrue:
		self.L.Next()
		return NewBool(true), nil

	case TkFalse:
		self.L.Next()
		return NewBool(false), nil

	case TkStr:
		v := self.L.Lexeme.Text
		self.L.Next()
		return NewString(v), nil

	case TkLPar:
		self.L.Next()
		e, err := self.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := self.expect(TkRPar); err != nil {
			return nil, err
		}
		return e, nil

	case TkId:
		// aggregate call or a column reference
		id := self.L.Lexeme.Text
		if IsAggFunc(id) && self.peekIsLPar() {
			return self.parseSetFunction(id)
		}
		return self.parseRef()

	case TkQId:
		return self.parseRef()

	default:
		return nil, self.err("unexpected token for expression")
	}
}

// peekIsLPar reports whether the character following the current identifier
// token is '(' without consuming anything.
func (self *Parser) peekIsLPar() bool {
	for idx := self.L.Cursor; idx < len(self.L.Source); idx++ {
		c := self.L.Source[idx]
		switch c {
		case ' ', '\r', '\t', '\n', '\b', '\v':
			continue
		default:
			return c == '('
		}
	}
	return false
}

func (self *Parser) parseSetFunction(fn string) (Expr, error) {
	self.L.Next() // skip the function name
	if err := self.expect(TkLPar); err != nil {
		return nil, err
	}

	args := []Expr{}
	if self.L.Token == TkMul {
		self.L.Next()
		args = append(args, &WildCard{})
	} else {
		for self.L.Token != TkRPar {
			arg, err := self.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if self.L.Token == TkComma {
				self.L.Next()
			} else if self.L.Token != TkRPar {
				return nil, self.err("expect a ',' or ')' in aggregate arguments")
			}
		}
	}
	if err := self.expect(TkRPar); err != nil {
		return nil, err
	}

	if len(args) != 1 {
		return nil, self.err("aggregate function expects exactly one argument")
	}

	return &CallSetFunction{Func: fn, Args: args}, nil
}

// parseRef parses a possibly dotted, possibly quoted column reference into a
// single Name node. Quoted parts stay verbatim so the namespace splitter can
// undo the quoting later; unquoted parts that would confuse the splitter are
// never produced by the lexer.
func (self *Parser) parseRef() (Expr, error) {
	parts := []string{}

	for {
		switch self.L.Token {
		case TkId, TkQId:
			parts = append(parts, self.L.Lexeme.Text)
			self.L.Next()
			break
		case TkMul:
			// table qualified wildcard: t.*
			if self.stage == stageInProjection && len(parts) > 0 {
				self.L.Next()
				return &WildCard{Table: strings.Join(parts, ".")}, nil
			}
			return nil, self.err("'*' can only appear in the select list")
		default:
			return nil, self.err("expect an identifier inside of column reference")
		}

		if self.L.Token == TkDot {
			self.L.Next()
			continue
		}
		break
	}

	return NewName(strings.Join(parts, ".")), nil
}
