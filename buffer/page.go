package buffer

import (
	"context"

	"heapdb/file"
	"heapdb/record"
	"heapdb/transaction"
)

// Page is a cached page. The pool never looks inside it; it only needs the
// identity, the dirty marker and the byte image to write back.
type Page interface {
	ID() file.PageID
	// IsDirty returns the transaction that dirtied the page, if any.
	IsDirty() (transaction.ID, bool)
	MarkDirty(dirty bool, tid transaction.ID)
	// Bytes returns exactly file.PageSize bytes.
	Bytes() []byte
}

// DBFile is the paging layer of one table.
type DBFile interface {
	ID() file.TableID
	PageCount() int32
	// ReadPage fails with file.ErrNoSuchPage for numbers at or past PageCount.
	ReadPage(pid file.PageID) (Page, error)
	WritePage(page Page) error
	// AllocatePage grows the table by one page and returns its id. The caller
	// initializes and persists it.
	AllocatePage() file.PageID
	EmptyPage(pid file.PageID) (Page, error)

	// InsertTuple places t on some page, fetching pages through the pool.
	// It returns the modified pages, still pinned by tid.
	InsertTuple(ctx context.Context, tid transaction.ID, t *record.Tuple) ([]Page, error)
	// DeleteTuple removes t from the page named by its RID and returns that
	// page, still pinned by tid.
	DeleteTuple(ctx context.Context, tid transaction.ID, t *record.Tuple) (Page, error)
}

// Catalog resolves a table id to its paging layer.
type Catalog interface {
	DBFile(id file.TableID) (DBFile, error)
}
