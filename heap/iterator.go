package heap

import (
	"context"

	"heapdb/file"
	"heapdb/record"
	"heapdb/transaction"
)

// Iterator walks every tuple of a heap file in page and slot order on behalf
// of one transaction. Pages are read-locked through the pool and unpinned
// once their tuples have been decoded.
type Iterator struct {
	f      *File
	tid    transaction.ID
	pageNo int32
	tuples []*record.Tuple
	pos    int
	cur    *record.Tuple
	open   bool
}

func (f *File) Iterator(tid transaction.ID) *Iterator {
	return &Iterator{f: f, tid: tid}
}

func (it *Iterator) Open(ctx context.Context) error {
	it.open = true
	return it.Rewind(ctx)
}

// Rewind restarts the iteration at the first page.
func (it *Iterator) Rewind(ctx context.Context) error {
	it.pageNo = -1
	it.tuples = nil
	it.pos = 0
	it.cur = nil
	return nil
}

// Next advances to the next tuple and reports whether there is one.
func (it *Iterator) Next(ctx context.Context) (bool, error) {
	if !it.open {
		return false, nil
	}
	for it.pos >= len(it.tuples) {
		if it.pageNo+1 >= it.f.PageCount() {
			it.cur = nil
			return false, nil
		}
		if err := it.load(ctx, it.pageNo+1); err != nil {
			return false, err
		}
	}
	it.cur = it.tuples[it.pos]
	it.pos++
	return true, nil
}

// Tuple returns the current tuple.
func (it *Iterator) Tuple() *record.Tuple {
	return it.cur
}

func (it *Iterator) Schema() *record.Schema {
	return it.f.Schema()
}

func (it *Iterator) Close() {
	it.open = false
	it.tuples = nil
	it.cur = nil
}

func (it *Iterator) load(ctx context.Context, n int32) error {
	pid := file.NewPageID(it.f.id, n)
	page, err := it.f.pool.Fetch(ctx, it.tid, pid, transaction.ReadOnly)
	if err != nil {
		return err
	}
	defer it.f.pool.Unpin(it.tid, pid)

	tuples, err := page.(*record.HeapPage).Tuples()
	if err != nil {
		return err
	}
	it.pageNo = n
	it.tuples = tuples
	it.pos = 0
	return nil
}
