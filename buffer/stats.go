package buffer

// Stats is a snapshot of pool occupancy and counters.
type Stats struct {
	Capacity  int
	Cached    int
	Dirty     int
	Pinned    int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{
		Capacity:  p.capacity,
		Cached:    len(p.index),
		Hits:      p.hits,
		Misses:    p.misses,
		Evictions: p.evictions,
	}
	for _, f := range p.frames {
		if f == nil {
			continue
		}
		if f.isDirty() {
			s.Dirty++
		}
		if f.isPinned() {
			s.Pinned++
		}
	}
	return s
}
