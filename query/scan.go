// Package query implements pull-based operators over heap files. Every
// operator is a Scan; a plan is a tree of scans whose root is drained with
// Next until it reports false.
package query

import (
	"context"

	"heapdb/file"
	"heapdb/record"
	"heapdb/transaction"
)

// Scan is the iterator contract shared by all operators. Open must be called
// before Next, and Close releases whatever the scan holds. Tuple returns the
// tuple produced by the last successful Next.
type Scan interface {
	Open(ctx context.Context) error
	Next(ctx context.Context) (bool, error)
	Tuple() *record.Tuple
	Rewind(ctx context.Context) error
	Schema() *record.Schema
	Close()
}

// TupleWriter applies inserts and deletes for a transaction. The buffer pool
// implements it.
type TupleWriter interface {
	Insert(ctx context.Context, tid transaction.ID, tableID file.TableID, t *record.Tuple) error
	Delete(ctx context.Context, tid transaction.ID, t *record.Tuple) error
}

// Collect drains s into a slice. It opens and closes s.
func Collect(ctx context.Context, s Scan) ([]*record.Tuple, error) {
	if err := s.Open(ctx); err != nil {
		return nil, err
	}
	defer s.Close()

	var out []*record.Tuple
	for {
		ok, err := s.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, s.Tuple())
	}
}
