package query

import (
	"context"

	"github.com/pkg/errors"

	"heapdb/record"
)

// ProjectScan keeps only the named fields of its child, in the given order.
type ProjectScan struct {
	scan    Scan
	fields  []string
	indexes []int
	schema  *record.Schema
	cur     *record.Tuple
}

func NewProjectScan(scan Scan, fields []string) *ProjectScan {
	return &ProjectScan{
		scan:   scan,
		fields: fields,
	}
}

func (ps *ProjectScan) Open(ctx context.Context) error {
	child := ps.scan.Schema()
	ps.indexes = ps.indexes[:0]
	ps.schema = record.NewSchema()
	for _, f := range ps.fields {
		i := child.Index(f)
		if i < 0 {
			return errors.Wrap(ErrFieldNotFound, f)
		}
		ps.indexes = append(ps.indexes, i)
		ps.schema.Add(child.Field(i), child)
	}
	return ps.scan.Open(ctx)
}

func (ps *ProjectScan) Next(ctx context.Context) (bool, error) {
	ok, err := ps.scan.Next(ctx)
	if err != nil || !ok {
		ps.cur = nil
		return false, err
	}

	in := ps.scan.Tuple()
	values := make([]any, len(ps.indexes))
	for i, idx := range ps.indexes {
		values[i] = in.Value(idx)
	}
	ps.cur, err = record.NewTuple(ps.schema, values...)
	return err == nil, err
}

func (ps *ProjectScan) Tuple() *record.Tuple {
	return ps.cur
}

func (ps *ProjectScan) Rewind(ctx context.Context) error {
	ps.cur = nil
	return ps.scan.Rewind(ctx)
}

// Schema is only complete after Open.
func (ps *ProjectScan) Schema() *record.Schema {
	if ps.schema == nil {
		return record.NewSchema()
	}
	return ps.schema
}

func (ps *ProjectScan) Close() {
	ps.scan.Close()
}
