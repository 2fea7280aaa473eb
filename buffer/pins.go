package buffer

import (
	"heapdb/file"
	"heapdb/transaction"
)

// pinLedger records how many pins each transaction holds on each page, so
// that the pins of a finished transaction can be dropped in one step.
type pinLedger struct {
	pins map[transaction.ID]map[file.PageID]int32
}

func newPinLedger() *pinLedger {
	return &pinLedger{pins: make(map[transaction.ID]map[file.PageID]int32)}
}

func (l *pinLedger) add(tid transaction.ID, pid file.PageID) {
	pages, ok := l.pins[tid]
	if !ok {
		pages = make(map[file.PageID]int32)
		l.pins[tid] = pages
	}
	pages[pid]++
}

// remove drops one pin and reports whether tid had one.
func (l *pinLedger) remove(tid transaction.ID, pid file.PageID) bool {
	pages := l.pins[tid]
	if pages[pid] == 0 {
		return false
	}
	pages[pid]--
	if pages[pid] == 0 {
		delete(pages, pid)
	}
	if len(pages) == 0 {
		delete(l.pins, tid)
	}
	return true
}

// removeAll forgets tid and returns the pins it held.
func (l *pinLedger) removeAll(tid transaction.ID) map[file.PageID]int32 {
	pages := l.pins[tid]
	delete(l.pins, tid)
	return pages
}

// forget drops every pin on pid regardless of owner.
func (l *pinLedger) forget(pid file.PageID) {
	for tid, pages := range l.pins {
		delete(pages, pid)
		if len(pages) == 0 {
			delete(l.pins, tid)
		}
	}
}
