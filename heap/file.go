// Package heap stores a table as an unordered sequence of fixed-size pages in
// one file. Page k lives at byte offset k * file.PageSize.
package heap

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"heapdb/buffer"
	"heapdb/file"
	"heapdb/logger"
	"heapdb/record"
	"heapdb/transaction"
)

// Fetcher is the part of the buffer pool a heap file needs. Tuple placement
// and deletion go through it so that every page change lands on the cached
// copy.
type Fetcher interface {
	Fetch(ctx context.Context, tid transaction.ID, pid file.PageID, perm transaction.Permission) (buffer.Page, error)
	Unpin(tid transaction.ID, pid file.PageID)
	ReleasePage(tid transaction.ID, pid file.PageID) bool
	HoldsLock(tid transaction.ID, pid file.PageID) bool
}

// File is the paging layer of one table.
type File struct {
	id     file.TableID
	name   string
	layout *record.Layout
	fm     *file.Manager
	pool   Fetcher
	log    *logrus.Entry

	mu        sync.Mutex
	pageCount int32
}

var _ buffer.DBFile = (*File)(nil)

// Open opens or creates the heap file name inside fm's directory.
func Open(fm *file.Manager, name string, schema *record.Schema, pool Fetcher) (*File, error) {
	id, err := file.TableIDFor(fm.Path(name))
	if err != nil {
		return nil, errors.Wrapf(err, "resolve table id of %s", name)
	}
	count, err := fm.Size(name)
	if err != nil {
		return nil, err
	}

	return &File{
		id:        id,
		name:      name,
		layout:    record.NewLayout(schema),
		fm:        fm,
		pool:      pool,
		log:       logger.For("heap").WithField("file", name),
		pageCount: count,
	}, nil
}

func (f *File) ID() file.TableID {
	return f.id
}

func (f *File) Name() string {
	return f.name
}

func (f *File) Schema() *record.Schema {
	return f.layout.Schema()
}

func (f *File) Layout() *record.Layout {
	return f.layout
}

// PageCount returns the number of allocated pages. It never shrinks.
func (f *File) PageCount() int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pageCount
}

// ReadPage reads an allocated page straight from disk.
func (f *File) ReadPage(pid file.PageID) (buffer.Page, error) {
	if err := f.check(pid); err != nil {
		return nil, err
	}

	page := file.NewPage()
	if err := f.fm.Read(f.name, pid.Number, page); err != nil {
		return nil, err
	}
	return record.NewHeapPage(pid, page.Buf(), f.layout)
}

// WritePage writes page at its offset. The page must have been allocated.
func (f *File) WritePage(page buffer.Page) error {
	pid := page.ID()
	if err := f.check(pid); err != nil {
		return err
	}

	p, err := file.NewPageFrom(page.Bytes())
	if err != nil {
		return err
	}
	return f.fm.Write(f.name, pid.Number, p)
}

// AllocatePage reserves the next page number. The buffer pool initializes
// and writes the page.
func (f *File) AllocatePage() file.PageID {
	f.mu.Lock()
	defer f.mu.Unlock()

	pid := file.NewPageID(f.id, f.pageCount)
	f.pageCount++
	return pid
}

func (f *File) EmptyPage(pid file.PageID) (buffer.Page, error) {
	return record.NewHeapPage(pid, record.EmptyPageData(), f.layout)
}

// InsertTuple places t on the first page with an empty slot, or on a new
// page at the end of the file.
//
// Existing pages are probed with a read lock. Only a page that has room is
// fetched again for writing, so full pages are never write-locked. The read
// lock on a full page is given back unless tid held that page before.
// The returned page is pinned by tid.
func (f *File) InsertTuple(ctx context.Context, tid transaction.ID, t *record.Tuple) ([]buffer.Page, error) {
	if !t.Schema().Equal(f.layout.Schema()) {
		return nil, errors.Wrapf(record.ErrSchemaMismatch, "insert into %s", f.name)
	}
	if f.layout.SlotsPerPage() == 0 {
		return nil, errors.Errorf("tuples of %d bytes do not fit in a page", f.layout.TupleSize())
	}

	count := f.PageCount()
	for n := int32(0); n < count; n++ {
		pid := file.NewPageID(f.id, n)
		heldBefore := f.pool.HoldsLock(tid, pid)

		page, err := f.pool.Fetch(ctx, tid, pid, transaction.ReadOnly)
		if err != nil {
			return nil, err
		}
		if page.(*record.HeapPage).NumEmptySlots() == 0 {
			f.pool.Unpin(tid, pid)
			if !heldBefore {
				f.pool.ReleasePage(tid, pid)
			}
			continue
		}

		page, err = f.pool.Fetch(ctx, tid, pid, transaction.ReadWrite)
		f.pool.Unpin(tid, pid)
		if err != nil {
			return nil, err
		}
		if ok, err := f.insertInto(page, t); err != nil || ok {
			if err != nil {
				f.pool.Unpin(tid, pid)
				return nil, err
			}
			return []buffer.Page{page}, nil
		}
		// Filled up while we waited for the write lock.
		f.pool.Unpin(tid, pid)
	}

	for {
		pid := file.NewPageID(f.id, f.PageCount())
		page, err := f.pool.Fetch(ctx, tid, pid, transaction.ReadWrite)
		if err != nil {
			return nil, err
		}
		ok, err := f.insertInto(page, t)
		if err != nil {
			f.pool.Unpin(tid, pid)
			return nil, err
		}
		if ok {
			f.log.WithFields(logrus.Fields{"tx": tid.Short(), "page": pid.Number}).Debug("inserted on new page")
			return []buffer.Page{page}, nil
		}
		f.pool.Unpin(tid, pid)
	}
}

// insertInto reports false if the page is full.
func (f *File) insertInto(page buffer.Page, t *record.Tuple) (bool, error) {
	err := page.(*record.HeapPage).InsertTuple(t)
	if errors.Is(err, record.ErrPageFull) {
		return false, nil
	}
	return err == nil, err
}

// DeleteTuple removes t from the page named by its RID. The returned page is
// pinned by tid.
func (f *File) DeleteTuple(ctx context.Context, tid transaction.ID, t *record.Tuple) (buffer.Page, error) {
	rid := t.RID()
	if rid == nil || rid.Page.Table != f.id {
		return nil, errors.Wrapf(record.ErrTupleNotFound, "delete from %s", f.name)
	}

	page, err := f.pool.Fetch(ctx, tid, rid.Page, transaction.ReadWrite)
	if err != nil {
		return nil, err
	}
	if err := page.(*record.HeapPage).DeleteTuple(t); err != nil {
		f.pool.Unpin(tid, rid.Page)
		return nil, err
	}
	return page, nil
}

func (f *File) check(pid file.PageID) error {
	if pid.Table != f.id {
		return errors.Errorf("page %v does not belong to %s", pid, f.name)
	}
	if pid.Number < 0 || pid.Number >= f.PageCount() {
		return errors.Wrapf(file.ErrNoSuchPage, "%s page %d", f.name, pid.Number)
	}
	return nil
}
