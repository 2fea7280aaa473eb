package metadata

import (
	"heapdb/file"
)

// Manager groups the catalog and the statistics kept over it.
type Manager struct {
	*Catalog
	*StatManager
}

func NewManager(fm *file.Manager) *Manager {
	catalog := NewCatalog(fm)
	return &Manager{
		Catalog:     catalog,
		StatManager: NewStatManager(catalog),
	}
}
