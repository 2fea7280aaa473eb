package query

import (
	"context"

	"heapdb/heap"
	"heapdb/record"
	"heapdb/transaction"
)

// SeqScan reads every tuple of a heap file. With an alias, field names are
// qualified as "alias.field".
type SeqScan struct {
	it     *heap.Iterator
	alias  string
	schema *record.Schema
	cur    *record.Tuple
}

func NewSeqScan(tid transaction.ID, hf *heap.File, alias string) *SeqScan {
	schema := hf.Schema()
	if alias != "" {
		schema = schema.WithPrefix(alias)
	}
	return &SeqScan{
		it:     hf.Iterator(tid),
		alias:  alias,
		schema: schema,
	}
}

func (ss *SeqScan) Open(ctx context.Context) error {
	return ss.it.Open(ctx)
}

func (ss *SeqScan) Next(ctx context.Context) (bool, error) {
	ok, err := ss.it.Next(ctx)
	if err != nil || !ok {
		ss.cur = nil
		return false, err
	}

	t := ss.it.Tuple()
	if ss.alias != "" {
		renamed, err := record.NewTuple(ss.schema, t.Values()...)
		if err != nil {
			return false, err
		}
		renamed.SetRID(t.RID())
		t = renamed
	}
	ss.cur = t
	return true, nil
}

func (ss *SeqScan) Tuple() *record.Tuple {
	return ss.cur
}

func (ss *SeqScan) Rewind(ctx context.Context) error {
	ss.cur = nil
	return ss.it.Rewind(ctx)
}

func (ss *SeqScan) Schema() *record.Schema {
	return ss.schema
}

func (ss *SeqScan) Close() {
	ss.it.Close()
}
