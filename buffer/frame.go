package buffer

// frame is one slot of the pool.
type frame struct {
	page     Page
	pins     int32
	lastUsed uint64 // logical clock value of the last fetch
}

func (f *frame) isPinned() bool {
	return f.pins > 0
}

func (f *frame) isDirty() bool {
	_, dirty := f.page.IsDirty()
	return dirty
}

func (f *frame) pin(now uint64) {
	f.pins++
	f.lastUsed = now
}

func (f *frame) unpin() {
	if f.pins > 0 {
		f.pins--
	}
}
