package query

import (
	"context"

	"github.com/pkg/errors"

	"heapdb/file"
	"heapdb/record"
	"heapdb/transaction"
)

// countSchema is the one-field schema produced by Insert and Delete.
func countSchema() *record.Schema {
	s := record.NewSchema()
	s.AddIntField("count")
	return s
}

// Insert writes every tuple of its child into a table and produces a single
// tuple holding the number of rows inserted. The writes happen on the first
// call to Next; Rewind replays the count without writing again.
type Insert struct {
	tid     transaction.ID
	writer  TupleWriter
	tableID file.TableID
	target  *record.Schema
	child   Scan
	schema  *record.Schema
	result  *record.Tuple
	done    bool
	emitted bool
}

func NewInsert(tid transaction.ID, writer TupleWriter, tableID file.TableID, target *record.Schema, child Scan) *Insert {
	return &Insert{
		tid:     tid,
		writer:  writer,
		tableID: tableID,
		target:  target,
		child:   child,
		schema:  countSchema(),
	}
}

func (in *Insert) Open(ctx context.Context) error {
	if !in.target.Equal(in.child.Schema()) {
		return errors.Wrapf(record.ErrSchemaMismatch, "insert (%v) into (%v)", in.child.Schema(), in.target)
	}
	in.emitted = false
	return in.child.Open(ctx)
}

func (in *Insert) Next(ctx context.Context) (bool, error) {
	if !in.done {
		n, err := in.apply(ctx)
		if err != nil {
			return false, err
		}
		in.result, err = record.NewTuple(in.schema, n)
		if err != nil {
			return false, err
		}
		in.done = true
	}
	if in.emitted {
		return false, nil
	}
	in.emitted = true
	return true, nil
}

func (in *Insert) apply(ctx context.Context) (int32, error) {
	var n int32
	for {
		ok, err := in.child.Next(ctx)
		if err != nil {
			return 0, err
		}
		if !ok {
			return n, nil
		}
		// The stored tuple uses the table's own field names.
		t, err := record.NewTuple(in.target, in.child.Tuple().Values()...)
		if err != nil {
			return 0, err
		}
		if err := in.writer.Insert(ctx, in.tid, in.tableID, t); err != nil {
			return 0, err
		}
		n++
	}
}

func (in *Insert) Tuple() *record.Tuple {
	if !in.emitted {
		return nil
	}
	return in.result
}

func (in *Insert) Rewind(ctx context.Context) error {
	in.emitted = false
	return nil
}

func (in *Insert) Schema() *record.Schema {
	return in.schema
}

func (in *Insert) Close() {
	in.child.Close()
}
