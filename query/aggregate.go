package query

import (
	"context"
	"math"
	"strings"

	"github.com/pkg/errors"

	"heapdb/record"
)

// AggOp is an aggregate function.
type AggOp int

const (
	Count AggOp = iota
	Sum
	Avg
	Min
	Max
)

var aggNames = []string{"count", "sum", "avg", "min", "max"}

func (op AggOp) String() string {
	if int(op) < len(aggNames) {
		return aggNames[op]
	}
	return "unknown"
}

func ParseAggOp(s string) (AggOp, error) {
	for i, name := range aggNames {
		if strings.EqualFold(s, name) {
			return AggOp(i), nil
		}
	}
	return 0, errors.Errorf("unknown aggregate %q", s)
}

type group struct {
	key   any
	count int64
	sum   int64
	min   int32
	max   int32
}

func (g *group) add(v any) {
	g.count++
	n, ok := v.(int32)
	if !ok {
		return
	}
	g.sum += int64(n)
	if g.count == 1 || n < g.min {
		g.min = n
	}
	if g.count == 1 || n > g.max {
		g.max = n
	}
}

func (g *group) value(op AggOp) (int32, error) {
	var v int64
	switch op {
	case Count:
		v = g.count
	case Sum:
		v = g.sum
	case Avg:
		v = g.sum / g.count
	case Min:
		v = int64(g.min)
	case Max:
		v = int64(g.max)
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, errors.Errorf("%v overflows int", op)
	}
	return int32(v), nil
}

// Aggregate computes one aggregate over a field of its child, optionally
// grouped by another field. Output tuples are (group, value) or just
// (value), with groups in the order they were first seen. The child is
// consumed entirely by Open.
//
// Only Count applies to string fields. Without grouping, an empty input
// yields a single zero for Count and no tuple for the other functions.
type Aggregate struct {
	child   Scan
	op      AggOp
	field   string
	groupBy string
	schema  *record.Schema
	results []*record.Tuple
	pos     int
}

// NewAggregate returns an aggregate of op over field. groupBy may be empty.
func NewAggregate(child Scan, op AggOp, field string, groupBy string) *Aggregate {
	return &Aggregate{
		child:   child,
		op:      op,
		field:   field,
		groupBy: groupBy,
	}
}

func (a *Aggregate) Open(ctx context.Context) error {
	in := a.child.Schema()
	fi := in.Index(a.field)
	if fi < 0 {
		return errors.Wrap(ErrFieldNotFound, a.field)
	}
	if a.op != Count && in.FieldType(in.Field(fi)) != record.Integer {
		return errors.Wrapf(ErrTypeMismatch, "%v over string field %s", a.op, a.field)
	}
	gi := -1
	if a.groupBy != "" {
		if gi = in.Index(a.groupBy); gi < 0 {
			return errors.Wrap(ErrFieldNotFound, a.groupBy)
		}
	}

	a.schema = record.NewSchema()
	if gi >= 0 {
		a.schema.Add(in.Field(gi), in)
	}
	a.schema.AddIntField(a.op.String() + "(" + a.field + ")")

	if err := a.child.Open(ctx); err != nil {
		return err
	}

	var order []*group
	groups := make(map[any]*group)
	for {
		ok, err := a.child.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		t := a.child.Tuple()
		var key any
		if gi >= 0 {
			key = t.Value(gi)
		}
		g, found := groups[key]
		if !found {
			g = &group{key: key}
			groups[key] = g
			order = append(order, g)
		}
		g.add(t.Value(fi))
	}

	if len(order) == 0 && gi < 0 && a.op == Count {
		order = append(order, &group{})
	}

	a.results = a.results[:0]
	for _, g := range order {
		v, err := g.value(a.op)
		if err != nil {
			return err
		}
		values := []any{v}
		if gi >= 0 {
			values = []any{g.key, v}
		}
		t, err := record.NewTuple(a.schema, values...)
		if err != nil {
			return err
		}
		a.results = append(a.results, t)
	}
	a.pos = 0
	return nil
}

func (a *Aggregate) Next(ctx context.Context) (bool, error) {
	if a.pos >= len(a.results) {
		return false, nil
	}
	a.pos++
	return true, nil
}

func (a *Aggregate) Tuple() *record.Tuple {
	if a.pos == 0 || a.pos > len(a.results) {
		return nil
	}
	return a.results[a.pos-1]
}

func (a *Aggregate) Rewind(ctx context.Context) error {
	a.pos = 0
	return nil
}

// Schema is only complete after Open.
func (a *Aggregate) Schema() *record.Schema {
	if a.schema == nil {
		return record.NewSchema()
	}
	return a.schema
}

func (a *Aggregate) Close() {
	a.child.Close()
}
