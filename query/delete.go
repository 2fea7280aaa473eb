package query

import (
	"context"

	"heapdb/record"
	"heapdb/transaction"
)

// Delete removes every tuple produced by its child from the table it was
// read from and produces a single tuple holding the number of rows deleted.
// The child must yield tuples carrying their RID, such as a SeqScan.
type Delete struct {
	tid     transaction.ID
	writer  TupleWriter
	child   Scan
	schema  *record.Schema
	result  *record.Tuple
	done    bool
	emitted bool
}

func NewDelete(tid transaction.ID, writer TupleWriter, child Scan) *Delete {
	return &Delete{
		tid:    tid,
		writer: writer,
		child:  child,
		schema: countSchema(),
	}
}

func (d *Delete) Open(ctx context.Context) error {
	d.emitted = false
	return d.child.Open(ctx)
}

func (d *Delete) Next(ctx context.Context) (bool, error) {
	if !d.done {
		n, err := d.apply(ctx)
		if err != nil {
			return false, err
		}
		d.result, err = record.NewTuple(d.schema, n)
		if err != nil {
			return false, err
		}
		d.done = true
	}
	if d.emitted {
		return false, nil
	}
	d.emitted = true
	return true, nil
}

func (d *Delete) apply(ctx context.Context) (int32, error) {
	var n int32
	for {
		ok, err := d.child.Next(ctx)
		if err != nil {
			return 0, err
		}
		if !ok {
			return n, nil
		}
		if err := d.writer.Delete(ctx, d.tid, d.child.Tuple()); err != nil {
			return 0, err
		}
		n++
	}
}

func (d *Delete) Tuple() *record.Tuple {
	if !d.emitted {
		return nil
	}
	return d.result
}

func (d *Delete) Rewind(ctx context.Context) error {
	d.emitted = false
	return nil
}

func (d *Delete) Schema() *record.Schema {
	return d.schema
}

func (d *Delete) Close() {
	d.child.Close()
}
