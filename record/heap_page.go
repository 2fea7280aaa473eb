package record

import (
	"sync"

	"github.com/pkg/errors"

	"heapdb/file"
	"heapdb/transaction"
)

// HeapPage is the in-memory form of one page of a heap file: a slot bitmap
// followed by fixed-size tuple slots, as described by Layout.
//
// The page records which transaction last dirtied it. Callers must hold the
// page lock in the right mode; the mutex only keeps the buffer pool's reads
// of the dirty marker consistent with concurrent updates.
type HeapPage struct {
	mu      sync.RWMutex
	pid     file.PageID
	layout  *Layout
	page    *file.Page
	dirty   bool
	dirtier transaction.ID
}

// NewHeapPage decodes data, which must be exactly file.PageSize bytes.
func NewHeapPage(pid file.PageID, data []byte, layout *Layout) (*HeapPage, error) {
	page, err := file.NewPageFrom(data)
	if err != nil {
		return nil, errors.Wrapf(err, "decode page %v", pid)
	}
	return &HeapPage{pid: pid, layout: layout, page: page}, nil
}

// EmptyPageData returns the image of a page with no tuples.
func EmptyPageData() []byte {
	return make([]byte, file.PageSize)
}

func (hp *HeapPage) ID() file.PageID {
	return hp.pid
}

func (hp *HeapPage) Layout() *Layout {
	return hp.layout
}

// IsDirty returns the transaction that dirtied the page, if it is dirty.
func (hp *HeapPage) IsDirty() (transaction.ID, bool) {
	hp.mu.RLock()
	defer hp.mu.RUnlock()
	return hp.dirtier, hp.dirty
}

func (hp *HeapPage) MarkDirty(dirty bool, tid transaction.ID) {
	hp.mu.Lock()
	defer hp.mu.Unlock()
	hp.dirty = dirty
	if dirty {
		hp.dirtier = tid
	} else {
		hp.dirtier = transaction.ID{}
	}
}

// Bytes returns a copy of the page image.
func (hp *HeapPage) Bytes() []byte {
	hp.mu.RLock()
	defer hp.mu.RUnlock()
	out := make([]byte, file.PageSize)
	copy(out, hp.page.Buf())
	return out
}

func (hp *HeapPage) IsSlotUsed(slot int32) bool {
	hp.mu.RLock()
	defer hp.mu.RUnlock()
	return hp.used(slot)
}

func (hp *HeapPage) NumEmptySlots() int32 {
	hp.mu.RLock()
	defer hp.mu.RUnlock()

	var n int32
	for slot := int32(0); slot < hp.layout.SlotsPerPage(); slot++ {
		if !hp.used(slot) {
			n++
		}
	}
	return n
}

// InsertTuple stores t in the first empty slot and sets its RID.
func (hp *HeapPage) InsertTuple(t *Tuple) error {
	if !t.Schema().Equal(hp.layout.Schema()) {
		return errors.Wrapf(ErrSchemaMismatch, "insert into page %v", hp.pid)
	}

	hp.mu.Lock()
	defer hp.mu.Unlock()

	slot := int32(-1)
	for i := int32(0); i < hp.layout.SlotsPerPage(); i++ {
		if !hp.used(i) {
			slot = i
			break
		}
	}
	if slot < 0 {
		return errors.Wrapf(ErrPageFull, "page %v", hp.pid)
	}

	if err := hp.writeSlot(slot, t); err != nil {
		return err
	}
	if err := hp.page.SetBitAt(slot, true); err != nil {
		return err
	}
	rid := NewRID(hp.pid, slot)
	t.SetRID(&rid)
	return nil
}

// DeleteTuple frees the slot named by t's RID and zeroes its bytes.
func (hp *HeapPage) DeleteTuple(t *Tuple) error {
	rid := t.RID()
	if rid == nil || rid.Page != hp.pid {
		return errors.Wrapf(ErrTupleNotFound, "delete from page %v", hp.pid)
	}

	hp.mu.Lock()
	defer hp.mu.Unlock()

	if rid.Slot < 0 || rid.Slot >= hp.layout.SlotsPerPage() || !hp.used(rid.Slot) {
		return errors.Wrapf(ErrTupleNotFound, "slot %d of page %v", rid.Slot, hp.pid)
	}
	if err := hp.page.SetBitAt(rid.Slot, false); err != nil {
		return err
	}
	start := hp.layout.SlotOffset(rid.Slot)
	clear(hp.page.Buf()[start : start+hp.layout.TupleSize()])
	t.SetRID(nil)
	return nil
}

// Tuple decodes the tuple in slot. The slot must be in use.
func (hp *HeapPage) Tuple(slot int32) (*Tuple, error) {
	hp.mu.RLock()
	defer hp.mu.RUnlock()

	if slot < 0 || slot >= hp.layout.SlotsPerPage() || !hp.used(slot) {
		return nil, errors.Wrapf(ErrTupleNotFound, "slot %d of page %v", slot, hp.pid)
	}
	return hp.readSlot(slot)
}

// Tuples decodes every stored tuple in slot order.
func (hp *HeapPage) Tuples() ([]*Tuple, error) {
	hp.mu.RLock()
	defer hp.mu.RUnlock()

	var out []*Tuple
	for slot := int32(0); slot < hp.layout.SlotsPerPage(); slot++ {
		if !hp.used(slot) {
			continue
		}
		t, err := hp.readSlot(slot)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (hp *HeapPage) used(slot int32) bool {
	return hp.page.BitAt(slot)
}

func (hp *HeapPage) writeSlot(slot int32, t *Tuple) error {
	schema := hp.layout.Schema()
	base := hp.layout.SlotOffset(slot)
	for i, fieldName := range schema.fields {
		pos := base + hp.layout.Offset(fieldName)
		switch schema.FieldType(fieldName) {
		case Integer:
			if err := hp.page.WriteInt32At(pos, t.Value(i).(int32)); err != nil {
				return err
			}
		case Varchar:
			if err := hp.page.WriteStringAt(pos, t.Value(i).(string), schema.FieldLength(fieldName)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (hp *HeapPage) readSlot(slot int32) (*Tuple, error) {
	schema := hp.layout.Schema()
	base := hp.layout.SlotOffset(slot)
	values := make([]any, schema.NumFields())
	for i, fieldName := range schema.fields {
		pos := base + hp.layout.Offset(fieldName)
		var err error
		switch schema.FieldType(fieldName) {
		case Integer:
			values[i], err = hp.page.ReadInt32At(pos)
		case Varchar:
			values[i], err = hp.page.ReadStringAt(pos)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "decode slot %d of page %v", slot, hp.pid)
		}
	}

	rid := NewRID(hp.pid, slot)
	return &Tuple{schema: schema, values: values, rid: &rid}, nil
}
