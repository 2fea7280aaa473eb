package query

import (
	"cmp"

	"github.com/pkg/errors"

	"heapdb/record"
)

// Op is a comparison operator.
type Op int

const (
	Equals Op = iota
	NotEquals
	LessThan
	LessThanOrEq
	GreaterThan
	GreaterThanOrEq
)

var opSymbols = map[Op]string{
	Equals:          "=",
	NotEquals:       "!=",
	LessThan:        "<",
	LessThanOrEq:    "<=",
	GreaterThan:     ">",
	GreaterThanOrEq: ">=",
}

func (op Op) String() string {
	return opSymbols[op]
}

// ParseOp accepts the symbols printed by String and "<>".
func ParseOp(s string) (Op, error) {
	if s == "<>" {
		return NotEquals, nil
	}
	for op, sym := range opSymbols {
		if sym == s {
			return op, nil
		}
	}
	return 0, errors.Errorf("unknown operator %q", s)
}

func (op Op) holds(c int) bool {
	switch op {
	case Equals:
		return c == 0
	case NotEquals:
		return c != 0
	case LessThan:
		return c < 0
	case LessThanOrEq:
		return c <= 0
	case GreaterThan:
		return c > 0
	case GreaterThanOrEq:
		return c >= 0
	}
	return false
}

// Term compares two expressions.
type Term struct {
	lhs Expression
	op  Op
	rhs Expression
}

func NewTerm(lhs Expression, op Op, rhs Expression) Term {
	return Term{
		lhs: lhs,
		op:  op,
		rhs: rhs,
	}
}

func (t Term) IsSatisfied(tuple *record.Tuple) (bool, error) {
	lhsVal, err := t.lhs.Evaluate(tuple)
	if err != nil {
		return false, err
	}
	rhsVal, err := t.rhs.Evaluate(tuple)
	if err != nil {
		return false, err
	}
	c, err := compare(lhsVal, rhsVal)
	if err != nil {
		return false, errors.Wrapf(err, "evaluate %v", t)
	}
	return t.op.holds(c), nil
}

func (t Term) AppliesTo(schema *record.Schema) bool {
	return t.lhs.AppliesTo(schema) && t.rhs.AppliesTo(schema)
}

func (t Term) String() string {
	return t.lhs.String() + " " + t.op.String() + " " + t.rhs.String()
}

func compare(a, b any) (int, error) {
	switch x := a.(type) {
	case int32:
		if y, ok := b.(int32); ok {
			return cmp.Compare(x, y), nil
		}
	case string:
		if y, ok := b.(string); ok {
			return cmp.Compare(x, y), nil
		}
	}
	return 0, errors.Wrapf(ErrTypeMismatch, "%T and %T", a, b)
}
