package buffer

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"heapdb/file"
	"heapdb/logger"
	"heapdb/record"
	"heapdb/transaction"
)

// DefaultPages is the pool capacity used when none is configured.
const DefaultPages = 50

// Pool caches up to a fixed number of pages shared by all transactions.
//
// Every fetch first takes the page lock in the lock table, so a page is only
// handed to transactions whose lock modes are compatible. Dirty pages are
// written only at commit and dropped on abort; eviction picks the least
// recently used page that is clean and unpinned, and fails with
// ErrBufferPoolFull if there is none.
//
// Cache state is guarded by one mutex, which is also held while a missing
// page is read from disk so that a page is never loaded twice.
type Pool struct {
	mu       sync.Mutex
	capacity int
	catalog  Catalog
	locks    *transaction.LockTable

	frames []*frame // slot table; nil entries are free
	index  map[file.PageID]int
	free   []int // free slot stack
	clock  uint64
	pins   *pinLedger

	hits, misses, evictions uint64

	log *logrus.Entry
}

// NewPool creates a pool of capacity pages over catalog. A non-positive
// capacity selects DefaultPages.
func NewPool(capacity int, catalog Catalog) *Pool {
	if capacity <= 0 {
		capacity = DefaultPages
	}

	free := make([]int, capacity)
	for i := 0; i < capacity; i++ {
		free[i] = capacity - 1 - i
	}

	return &Pool{
		capacity: capacity,
		catalog:  catalog,
		locks:    transaction.NewLockTable(),
		frames:   make([]*frame, capacity),
		index:    make(map[file.PageID]int, capacity),
		free:     free,
		pins:     newPinLedger(),
		log:      logger.For("buffer"),
	}
}

func (p *Pool) Capacity() int {
	return p.capacity
}

// Locks returns the lock table guarding the pages of this pool.
func (p *Pool) Locks() *transaction.LockTable {
	return p.locks
}

// Fetch locks pid in mode perm for tid and returns the cached page, loading
// it on a miss. Fetching the page number equal to the table's page count
// allocates a new empty page. The page stays pinned by tid until Unpin or the
// end of the transaction.
//
// A transaction.ErrDeadlock error means tid must abort.
func (p *Pool) Fetch(ctx context.Context, tid transaction.ID, pid file.PageID, perm transaction.Permission) (Page, error) {
	if err := p.locks.Acquire(ctx, tid, pid, perm); err != nil {
		return nil, err
	}
	return p.pin(tid, pid)
}

// pin returns pid pinned for tid, loading it on a miss. tid must hold a lock
// on pid; if the transaction ended after the lock was granted, pin fails
// with transaction.ErrAborted and leaves no pin behind.
func (p *Pool) pin(tid transaction.ID, pid file.PageID) (Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.locks.Holds(tid, pid) {
		return nil, errors.Wrapf(transaction.ErrAborted, "fetch %v", pid)
	}

	p.clock++
	if slot, ok := p.index[pid]; ok {
		p.hits++
		f := p.frames[slot]
		f.pin(p.clock)
		p.pins.add(tid, pid)
		return f.page, nil
	}
	p.misses++

	slot, err := p.takeSlot()
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %v", pid)
	}

	page, err := p.load(pid)
	if err != nil {
		p.free = append(p.free, slot)
		return nil, err
	}

	f := &frame{page: page}
	f.pin(p.clock)
	p.frames[slot] = f
	p.index[pid] = slot
	p.pins.add(tid, pid)
	return page, nil
}

// Unpin releases one pin tid holds on pid. Locks are not affected.
func (p *Pool) Unpin(tid transaction.ID, pid file.PageID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.pins.remove(tid, pid) {
		return
	}
	if slot, ok := p.index[pid]; ok {
		p.frames[slot].unpin()
	}
}

// Insert adds t to table tableID on behalf of tid. The pages modified are
// marked dirty by tid.
func (p *Pool) Insert(ctx context.Context, tid transaction.ID, tableID file.TableID, t *record.Tuple) error {
	dbf, err := p.catalog.DBFile(tableID)
	if err != nil {
		return err
	}
	pages, err := dbf.InsertTuple(ctx, tid, t)
	if err != nil {
		return err
	}
	p.markDirty(tid, pages...)
	return nil
}

// Delete removes t, located by its RID, on behalf of tid.
func (p *Pool) Delete(ctx context.Context, tid transaction.ID, t *record.Tuple) error {
	rid := t.RID()
	if rid == nil {
		return ErrStaleRecord
	}
	dbf, err := p.catalog.DBFile(rid.Page.Table)
	if err != nil {
		return err
	}
	page, err := dbf.DeleteTuple(ctx, tid, t)
	if err != nil {
		return err
	}
	p.markDirty(tid, page)
	return nil
}

func (p *Pool) markDirty(tid transaction.ID, pages ...Page) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, page := range pages {
		page.MarkDirty(true, tid)
		pid := page.ID()
		if p.pins.remove(tid, pid) {
			if slot, ok := p.index[pid]; ok {
				p.frames[slot].unpin()
			}
		}
	}
}

// Commit writes every dirty page tid holds and releases its locks. If a write
// fails the error is returned, that page stays dirty and tid keeps its locks.
func (p *Pool) Commit(tid transaction.ID) error {
	p.mu.Lock()
	if err := p.flushHeld(tid); err != nil {
		p.mu.Unlock()
		return err
	}
	p.dropPins(tid)
	p.mu.Unlock()

	p.locks.ReleaseAll(tid)

	p.mu.Lock()
	p.dropPins(tid)
	p.mu.Unlock()
	p.log.WithField("tx", tid.Short()).Debug("committed")
	return nil
}

// Abort drops the cached copies of the pages tid holds without writing them,
// so the next fetch rereads the state before tid, and releases its locks.
func (p *Pool) Abort(tid transaction.ID) {
	p.mu.Lock()
	p.dropPins(tid)
	for pid, perm := range p.locks.PagesHeldBy(tid) {
		slot, ok := p.index[pid]
		if !ok {
			continue
		}
		// A clean page shared with other readers stays; they may be using it.
		if perm == transaction.ReadOnly && p.frames[slot].isPinned() {
			continue
		}
		p.discard(pid, slot)
	}
	p.mu.Unlock()

	p.locks.ReleaseAll(tid)

	// A Fetch of tid granted before ReleaseAll may have pinned a page since.
	p.mu.Lock()
	p.dropPins(tid)
	p.mu.Unlock()
	p.log.WithField("tx", tid.Short()).Debug("aborted")
}

// TransactionComplete commits or aborts tid.
func (p *Pool) TransactionComplete(tid transaction.ID, commit bool) error {
	if commit {
		return p.Commit(tid)
	}
	p.Abort(tid)
	return nil
}

// FlushPages writes the dirty pages tid holds without ending the transaction.
func (p *Pool) FlushPages(tid transaction.ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flushHeld(tid)
}

// FlushAll writes every dirty cached page, whoever dirtied it. It makes
// uncommitted changes durable and is meant for use when no transaction is
// running.
func (p *Pool) FlushAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for pid, slot := range p.index {
		if err := p.flush(pid, p.frames[slot]); err != nil {
			return err
		}
	}
	return nil
}

// Discard removes pid from the cache without writing it.
func (p *Pool) Discard(pid file.PageID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if slot, ok := p.index[pid]; ok {
		p.discard(pid, slot)
	}
}

// ReleasePage gives up tid's lock on pid before the transaction ends. It is
// only safe for pages tid has not modified.
func (p *Pool) ReleasePage(tid transaction.ID, pid file.PageID) bool {
	return p.locks.Release(tid, pid)
}

func (p *Pool) HoldsLock(tid transaction.ID, pid file.PageID) bool {
	return p.locks.Holds(tid, pid)
}

// flushHeld must be called with the mutex held.
func (p *Pool) flushHeld(tid transaction.ID) error {
	for pid := range p.locks.PagesHeldBy(tid) {
		slot, ok := p.index[pid]
		if !ok {
			continue
		}
		if err := p.flush(pid, p.frames[slot]); err != nil {
			return err
		}
	}
	return nil
}

// flush writes f back if it is dirty. It must be called with the mutex held.
func (p *Pool) flush(pid file.PageID, f *frame) error {
	if !f.isDirty() {
		return nil
	}
	dbf, err := p.catalog.DBFile(pid.Table)
	if err != nil {
		return err
	}
	if err := dbf.WritePage(f.page); err != nil {
		return errors.Wrapf(err, "flush %v", pid)
	}
	f.page.MarkDirty(false, transaction.ID{})
	return nil
}

// dropPins must be called with the mutex held.
func (p *Pool) dropPins(tid transaction.ID) {
	for pid, n := range p.pins.removeAll(tid) {
		slot, ok := p.index[pid]
		if !ok {
			continue
		}
		f := p.frames[slot]
		for i := int32(0); i < n; i++ {
			f.unpin()
		}
	}
}

// discard must be called with the mutex held.
func (p *Pool) discard(pid file.PageID, slot int) {
	delete(p.index, pid)
	p.frames[slot] = nil
	p.free = append(p.free, slot)
	p.pins.forget(pid)
}

// takeSlot returns a free slot, evicting a page if the pool is full.
// It must be called with the mutex held.
func (p *Pool) takeSlot() (int, error) {
	if n := len(p.free); n > 0 {
		slot := p.free[n-1]
		p.free = p.free[:n-1]
		return slot, nil
	}

	victim := -1
	for slot, f := range p.frames {
		if f == nil || f.isPinned() || f.isDirty() {
			continue
		}
		if victim < 0 || f.lastUsed < p.frames[victim].lastUsed {
			victim = slot
		}
	}
	if victim < 0 {
		p.log.WithField("capacity", p.capacity).Warn("no clean unpinned page to evict")
		return 0, ErrBufferPoolFull
	}

	pid := p.frames[victim].page.ID()
	delete(p.index, pid)
	p.frames[victim] = nil
	p.evictions++
	p.log.WithField("page", pid).Debug("evicted")
	return victim, nil
}

// load reads pid from its table, allocating it if it is the next page.
// It must be called with the mutex held.
func (p *Pool) load(pid file.PageID) (Page, error) {
	dbf, err := p.catalog.DBFile(pid.Table)
	if err != nil {
		return nil, err
	}

	count := dbf.PageCount()
	switch {
	case pid.Number < count:
		return dbf.ReadPage(pid)
	case pid.Number == count:
		allocated := dbf.AllocatePage()
		if allocated != pid {
			return nil, errors.Errorf("allocated page %v while fetching %v", allocated, pid)
		}
		page, err := dbf.EmptyPage(pid)
		if err != nil {
			return nil, err
		}
		if err := dbf.WritePage(page); err != nil {
			return nil, errors.Wrapf(err, "initialize %v", pid)
		}
		p.log.WithField("page", pid).Debug("allocated")
		return page, nil
	default:
		return nil, errors.Wrapf(file.ErrNoSuchPage, "fetch %v of %d pages", pid, count)
	}
}
