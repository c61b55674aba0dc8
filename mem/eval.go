package mem

import (
	"strings"

	"github.com/dianpeng/sqlframe/plan"
	"github.com/dianpeng/sqlframe/sql"
)

// Row-wise expression evaluation. The compiler hands expressions over with
// references that are either internal identifiers, user-facing names, or
// synthetic symbols resolvable through the name generator.

type evalEnv struct {
	cols []string
	row  []Value
	gen  *plan.NameGenerator
}

func (self *evalEnv) lookup(name string) (Value, error) {
	for i, c := range self.cols {
		if c == name {
			return self.row[i], nil
		}
	}
	return nil, plan.ErrColumnNotFound.New(name, self.cols)
}

func evalExpr(expr sql.Expr, env *evalEnv) (Value, error) {
	switch expr.Type() {
	case sql.NodeInteger:
		return expr.(*sql.Integer).Value, nil

	case sql.NodeBool:
		return expr.(*sql.Bool).Value, nil

	case sql.NodeString:
		return expr.(*sql.String).Value, nil

	case sql.NodeInternalName:
		return env.lookup(expr.(*sql.InternalName).Id)

	case sql.NodeName:
		id := expr.(*sql.Name).Id
		if id.IsUnique() {
			return env.lookup(env.gen.Get(id))
		}
		resolved, err := plan.ResolveColumn(id.Name, env.cols, false)
		if err != nil {
			return nil, err
		}
		return env.lookup(resolved)

	case sql.NodeBinaryOp:
		return evalBinaryOp(expr.(*sql.BinaryOp), env)

	default:
		return nil, ErrEval.New(sql.PrintNode(expr))
	}
}

func evalBinaryOp(b *sql.BinaryOp, env *evalEnv) (Value, error) {
	l, err := evalExpr(b.L, env)
	if err != nil {
		return nil, err
	}
	r, err := evalExpr(b.R, env)
	if err != nil {
		return nil, err
	}

	switch b.Op {
	case "and", "or":
		lb, lok := l.(bool)
		rb, rok := r.(bool)
		if !lok || !rok {
			return nil, ErrEval.New(sql.PrintNode(b))
		}
		if b.Op == "and" {
			return lb && rb, nil
		}
		return lb || rb, nil

	case "+", "-", "*", "/", "%":
		return evalArith(b, l, r)

	case "=", "<>", "<", "<=", ">", ">=":
		return evalCompare(b, l, r)

	default:
		return nil, ErrEval.New(sql.PrintNode(b))
	}
}

func evalArith(b *sql.BinaryOp, l, r Value) (Value, error) {
	li, lInt := l.(int64)
	ri, rInt := r.(int64)

	if lInt && rInt {
		switch b.Op {
		case "+":
			return li + ri, nil
		case "-":
			return li - ri, nil
		case "*":
			return li * ri, nil
		case "/":
			if ri == 0 {
				return nil, ErrEval.New(sql.PrintNode(b))
			}
			return li / ri, nil
		case "%":
			if ri == 0 {
				return nil, ErrEval.New(sql.PrintNode(b))
			}
			return li % ri, nil
		}
	}

	lf, lok := asFloat(l)
	rf, rok := asFloat(r)
	if !lok || !rok {
		return nil, ErrEval.New(sql.PrintNode(b))
	}

	switch b.Op {
	case "+":
		return lf + rf, nil
	case "-":
		return lf - rf, nil
	case "*":
		return lf * rf, nil
	case "/":
		if rf == 0 {
			return nil, ErrEval.New(sql.PrintNode(b))
		}
		return lf / rf, nil
	default:
		return nil, ErrEval.New(sql.PrintNode(b))
	}
}

func evalCompare(b *sql.BinaryOp, l, r Value) (Value, error) {
	cmp, ok := compareValues(l, r)
	if !ok {
		return nil, ErrEval.New(sql.PrintNode(b))
	}

	switch b.Op {
	case "=":
		return cmp == 0, nil
	case "<>":
		return cmp != 0, nil
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	default:
		return nil, ErrEval.New(sql.PrintNode(b))
	}
}

func asFloat(v Value) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

// compareValues orders two cell values. Values of different kinds order by
// kind: nil < bool < number < string.
func compareValues(l, r Value) (int, bool) {
	lk, rk := valueKind(l), valueKind(r)
	if lk != rk {
		if lk < rk {
			return -1, true
		}
		return 1, true
	}

	switch lk {
	case kindNil:
		return 0, true

	case kindBool:
		lb, rb := l.(bool), r.(bool)
		switch {
		case lb == rb:
			return 0, true
		case !lb:
			return -1, true
		default:
			return 1, true
		}

	case kindNumber:
		lf, _ := asFloat(l)
		rf, _ := asFloat(r)
		switch {
		case lf < rf:
			return -1, true
		case lf > rf:
			return 1, true
		default:
			return 0, true
		}

	case kindString:
		return strings.Compare(l.(string), r.(string)), true

	default:
		return 0, false
	}
}

const (
	kindNil = iota
	kindBool
	kindNumber
	kindString
	kindOther
)

func valueKind(v Value) int {
	switch v.(type) {
	case nil:
		return kindNil
	case bool:
		return kindBool
	case int64, float64:
		return kindNumber
	case string:
		return kindString
	default:
		return kindOther
	}
}

// evalAggregate computes one aggregate call over the rows of a group. The
// splitter guarantees the arguments are plain references into the
// pre-aggregate table.
func evalAggregate(call *sql.CallSetFunction, cols []string, rows [][]Value, gen *plan.NameGenerator) (Value, error) {
	values := make([]Value, 0, len(rows))
	for _, row := range rows {
		env := &evalEnv{cols: cols, row: row, gen: gen}
		v, err := evalExpr(call.Args[0], env)
		if err != nil {
			return nil, err
		}
		if v != nil {
			values = append(values, v)
		}
	}

	switch call.Func {
	case "count":
		return int64(len(values)), nil

	case "sum", "avg":
		allInt := true
		total := float64(0)
		for _, v := range values {
			f, ok := asFloat(v)
			if !ok {
				return nil, ErrEval.New(sql.PrintNode(call))
			}
			if _, isInt := v.(int64); !isInt {
				allInt = false
			}
			total += f
		}
		if call.Func == "avg" {
			if len(values) == 0 {
				return nil, nil
			}
			return total / float64(len(values)), nil
		}
		if allInt {
			return int64(total), nil
		}
		return total, nil

	case "min", "max":
		if len(values) == 0 {
			return nil, nil
		}
		best := values[0]
		for _, v := range values[1:] {
			cmp, ok := compareValues(v, best)
			if !ok {
				return nil, ErrEval.New(sql.PrintNode(call))
			}
			if (call.Func == "min" && cmp < 0) || (call.Func == "max" && cmp > 0) {
				best = v
			}
		}
		return best, nil

	default:
		return nil, ErrEval.New(sql.PrintNode(call))
	}
}
