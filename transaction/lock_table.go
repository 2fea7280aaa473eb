package transaction

import (
	"context"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"

	"heapdb/file"
	"heapdb/logger"
)

// request is a blocked Acquire. ready is closed exactly once: when the lock
// is granted (err nil), when the request is cancelled by ReleaseAll, or when
// a later grant makes its wait part of a cycle.
type request struct {
	tid   ID
	perm  Permission
	ready chan struct{}
	err   error
}

type pageLock struct {
	perm    Permission
	holders map[ID]struct{}
	queue   []*request
}

type pending struct {
	pid file.PageID
	req *request
}

// LockTable implements strict two-phase locking at page granularity.
//
// A page is held either in ReadOnly mode by any number of transactions or in
// ReadWrite mode by exactly one. A transaction that is the only holder of a
// page may upgrade its lock in place. Requests that cannot be granted wait on
// a channel; every release hands the page to the waiters it now satisfies,
// in arrival order. Before waiting, the requester checks the waits-for graph
// and fails with ErrDeadlock if its wait would close a cycle.
//
// A transaction has at most one pending request at a time. All state is
// guarded by a single mutex.
type LockTable struct {
	mu      sync.Mutex
	pages   map[file.PageID]*pageLock
	held    map[ID]map[file.PageID]Permission
	waiting map[ID]pending
	graph   *waitsFor
	log     *logrus.Entry
}

func NewLockTable() *LockTable {
	return &LockTable{
		pages:   make(map[file.PageID]*pageLock),
		held:    make(map[ID]map[file.PageID]Permission),
		waiting: make(map[ID]pending),
		graph:   newWaitsFor(),
		log:     logger.For("lock"),
	}
}

// Acquire obtains perm on pid for tid, blocking until it is granted.
// It returns ErrDeadlock when waiting would deadlock, either at once or when
// a later grant closes a cycle through this wait, ErrAborted when the
// transaction is released by another goroutine while waiting, and ctx.Err()
// when ctx ends first.
func (lt *LockTable) Acquire(ctx context.Context, tid ID, pid file.PageID, perm Permission) error {
	lt.mu.Lock()

	if lt.grantable(tid, pid, perm) {
		lt.grant(tid, pid, perm)
		if pl := lt.pages[pid]; len(pl.queue) > 0 {
			// Waiters on pid may now also be waiting for tid.
			lt.repoint(pid, pl)
		}
		lt.mu.Unlock()
		return nil
	}

	lt.graph.set(tid, lt.conflicting(tid, pid, perm))
	if lt.graph.cyclic(tid) {
		lt.graph.clear(tid)
		lt.mu.Unlock()
		lt.log.WithFields(logrus.Fields{"tx": tid.Short(), "page": pid, "perm": perm}).
			Debug("deadlock detected, aborting requester")
		return ErrDeadlock
	}

	req := &request{tid: tid, perm: perm, ready: make(chan struct{})}
	pl := lt.lockFor(pid)
	pl.queue = append(pl.queue, req)
	lt.waiting[tid] = pending{pid: pid, req: req}
	lt.mu.Unlock()

	lt.log.WithFields(logrus.Fields{"tx": tid.Short(), "page": pid, "perm": perm}).Debug("waiting")

	select {
	case <-req.ready:
		return req.err
	case <-ctx.Done():
	}

	lt.mu.Lock()
	defer lt.mu.Unlock()

	select {
	case <-req.ready:
		// Granted or aborted between the wake-up and taking the mutex.
		return req.err
	default:
	}
	lt.withdraw(tid)
	return ctx.Err()
}

// Release drops tid's lock on pid, if any, and reports whether one was held.
// Under strict two-phase locking this is only safe for pages the transaction
// has not modified.
func (lt *LockTable) Release(tid ID, pid file.PageID) bool {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	return lt.release(tid, pid)
}

// ReleaseAll drops every lock tid holds and cancels its pending request, if
// any, waking it with ErrAborted. It is idempotent.
func (lt *LockTable) ReleaseAll(tid ID) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	if p, ok := lt.waiting[tid]; ok {
		lt.withdraw(tid)
		p.req.err = ErrAborted
		close(p.req.ready)
	}

	for pid := range lt.held[tid] {
		lt.release(tid, pid)
	}
	delete(lt.held, tid)
	lt.graph.remove(tid)
}

// Holds reports whether tid holds any lock on pid.
func (lt *LockTable) Holds(tid ID, pid file.PageID) bool {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	_, ok := lt.held[tid][pid]
	return ok
}

// PagesHeldBy returns a snapshot of the pages tid holds and in which mode.
func (lt *LockTable) PagesHeldBy(tid ID) map[file.PageID]Permission {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	out := make(map[file.PageID]Permission, len(lt.held[tid]))
	for pid, perm := range lt.held[tid] {
		out[pid] = perm
	}
	return out
}

// Holders returns the transactions holding pid and the granted mode.
func (lt *LockTable) Holders(pid file.PageID) ([]ID, Permission) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	pl, ok := lt.pages[pid]
	if !ok {
		return nil, ReadOnly
	}
	ids := make([]ID, 0, len(pl.holders))
	for id := range pl.holders {
		ids = append(ids, id)
	}
	return ids, pl.perm
}

// grantable must be called with the mutex held.
func (lt *LockTable) grantable(tid ID, pid file.PageID, perm Permission) bool {
	pl, ok := lt.pages[pid]
	if !ok || len(pl.holders) == 0 {
		return true
	}
	if mine, ok := lt.held[tid][pid]; ok {
		if mine.Covers(perm) {
			return true
		}
		// Upgrade in place when nobody else shares the page.
		return len(pl.holders) == 1
	}
	return perm == ReadOnly && pl.perm == ReadOnly
}

// grant must be called with the mutex held and grantable true.
func (lt *LockTable) grant(tid ID, pid file.PageID, perm Permission) {
	pl := lt.lockFor(pid)
	if len(pl.holders) == 0 {
		pl.perm = perm
	} else if perm == ReadWrite {
		pl.perm = ReadWrite
	}
	pl.holders[tid] = struct{}{}

	pages, ok := lt.held[tid]
	if !ok {
		pages = make(map[file.PageID]Permission)
		lt.held[tid] = pages
	}
	if cur, ok := pages[pid]; !ok || !cur.Covers(perm) {
		pages[pid] = perm
	}
}

// conflicting lists the holders of pid that prevent tid from getting perm.
func (lt *LockTable) conflicting(tid ID, pid file.PageID, perm Permission) []ID {
	pl, ok := lt.pages[pid]
	if !ok {
		return nil
	}
	if perm == ReadOnly && pl.perm == ReadOnly {
		return nil
	}
	out := make([]ID, 0, len(pl.holders))
	for id := range pl.holders {
		if id != tid {
			out = append(out, id)
		}
	}
	return out
}

func (lt *LockTable) lockFor(pid file.PageID) *pageLock {
	pl, ok := lt.pages[pid]
	if !ok {
		pl = &pageLock{perm: ReadOnly, holders: make(map[ID]struct{})}
		lt.pages[pid] = pl
	}
	return pl
}

// release must be called with the mutex held.
func (lt *LockTable) release(tid ID, pid file.PageID) bool {
	pl, ok := lt.pages[pid]
	if !ok {
		return false
	}
	if _, ok := pl.holders[tid]; !ok {
		return false
	}

	delete(pl.holders, tid)
	if pages, ok := lt.held[tid]; ok {
		delete(pages, pid)
		if len(pages) == 0 {
			delete(lt.held, tid)
		}
	}
	if len(pl.holders) == 0 {
		pl.perm = ReadOnly
	}

	lt.handOff(pid, pl)
	if len(pl.holders) == 0 && len(pl.queue) == 0 {
		delete(lt.pages, pid)
	}
	return true
}

// handOff grants, in queue order, every waiter on pid that the current
// holders allow, and re-points the waits-for edges of those still waiting.
func (lt *LockTable) handOff(pid file.PageID, pl *pageLock) {
	remaining := pl.queue[:0]
	for _, req := range pl.queue {
		if lt.grantable(req.tid, pid, req.perm) {
			lt.grant(req.tid, pid, req.perm)
			delete(lt.waiting, req.tid)
			lt.graph.clear(req.tid)
			close(req.ready)
			lt.log.WithFields(logrus.Fields{"tx": req.tid.Short(), "page": pid, "perm": req.perm}).
				Debug("granted after wait")
			continue
		}
		remaining = append(remaining, req)
	}
	clear(pl.queue[len(remaining):])
	pl.queue = remaining

	lt.repoint(pid, pl)
}

// repoint rebuilds the waits-for edges of every waiter on pid from the
// current holders. A waiter whose new edges close a cycle is woken with
// ErrDeadlock.
func (lt *LockTable) repoint(pid file.PageID, pl *pageLock) {
	remaining := pl.queue[:0]
	for _, req := range pl.queue {
		lt.graph.set(req.tid, lt.conflicting(req.tid, pid, req.perm))
		if !lt.graph.cyclic(req.tid) {
			remaining = append(remaining, req)
			continue
		}
		delete(lt.waiting, req.tid)
		lt.graph.clear(req.tid)
		req.err = ErrDeadlock
		close(req.ready)
		lt.log.WithFields(logrus.Fields{"tx": req.tid.Short(), "page": pid, "perm": req.perm}).
			Debug("deadlock detected, aborting waiter")
	}
	clear(pl.queue[len(remaining):])
	pl.queue = remaining
}

// withdraw removes tid's pending request without waking it.
func (lt *LockTable) withdraw(tid ID) {
	p, ok := lt.waiting[tid]
	if !ok {
		return
	}
	delete(lt.waiting, tid)
	lt.graph.clear(tid)

	if pl, ok := lt.pages[p.pid]; ok {
		pl.queue = slices.DeleteFunc(pl.queue, func(r *request) bool { return r == p.req })
		if len(pl.holders) == 0 && len(pl.queue) == 0 {
			delete(lt.pages, p.pid)
		}
	}
}
