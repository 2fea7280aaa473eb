package metadata

import (
	"context"
	"sync"

	"heapdb/transaction"
)

type StatInfo struct {
	numPages   int32
	numRecords int32
}

func NewStatInfo(numPages int32, numRecords int32) StatInfo {
	return StatInfo{numPages: numPages, numRecords: numRecords}
}

func (si StatInfo) PagesAccessed() int32 {
	return si.numPages
}

func (si StatInfo) RecordsOutput() int32 {
	return si.numRecords
}

// DistinctValues assumes that approximately 1/3 of the values of any field are distinct.
func (si StatInfo) DistinctValues(fieldName string) int32 {
	return 1 + (si.numRecords / 3)
}

// refreshEvery is the number of cached lookups after which all statistics
// are recomputed.
const refreshEvery = 100

// StatManager keeps approximate per-table statistics. They are computed by a
// full scan on first use and recomputed every refreshEvery lookups.
type StatManager struct {
	mu         sync.Mutex
	catalog    *Catalog
	tableStats map[string]StatInfo
	numCalls   int32
}

func NewStatManager(catalog *Catalog) *StatManager {
	return &StatManager{
		catalog:    catalog,
		tableStats: make(map[string]StatInfo),
	}
}

// GetStatInfo returns possibly stale statistics for tableName, scanning the
// table under tid when needed.
func (sm *StatManager) GetStatInfo(ctx context.Context, tid transaction.ID, tableName string) (StatInfo, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.numCalls++
	if sm.numCalls > refreshEvery {
		sm.numCalls = 0
		clear(sm.tableStats)
	}

	if info, ok := sm.tableStats[tableName]; ok {
		return info, nil
	}
	info, err := sm.CalcTableStats(ctx, tid, tableName)
	if err != nil {
		return StatInfo{}, err
	}
	sm.tableStats[tableName] = info
	return info, nil
}

// CalcTableStats scans tableName under tid and counts its pages and tuples.
func (sm *StatManager) CalcTableStats(ctx context.Context, tid transaction.ID, tableName string) (StatInfo, error) {
	hf, err := sm.catalog.Table(tableName)
	if err != nil {
		return StatInfo{}, err
	}

	it := hf.Iterator(tid)
	if err := it.Open(ctx); err != nil {
		return StatInfo{}, err
	}
	defer it.Close()

	var numRecords int32
	for {
		ok, err := it.Next(ctx)
		if err != nil {
			return StatInfo{}, err
		}
		if !ok {
			break
		}
		numRecords++
	}
	return NewStatInfo(hf.PageCount(), numRecords), nil
}
