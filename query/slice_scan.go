package query

import (
	"context"

	"heapdb/record"
)

// SliceScan produces a fixed list of tuples.
type SliceScan struct {
	schema *record.Schema
	tuples []*record.Tuple
	pos    int
}

func NewSliceScan(schema *record.Schema, tuples ...*record.Tuple) *SliceScan {
	return &SliceScan{schema: schema, tuples: tuples}
}

func (s *SliceScan) Open(ctx context.Context) error {
	s.pos = 0
	return nil
}

func (s *SliceScan) Next(ctx context.Context) (bool, error) {
	if s.pos >= len(s.tuples) {
		return false, nil
	}
	s.pos++
	return true, nil
}

func (s *SliceScan) Tuple() *record.Tuple {
	if s.pos == 0 || s.pos > len(s.tuples) {
		return nil
	}
	return s.tuples[s.pos-1]
}

func (s *SliceScan) Rewind(ctx context.Context) error {
	s.pos = 0
	return nil
}

func (s *SliceScan) Schema() *record.Schema {
	return s.schema
}

func (s *SliceScan) Close() {}
