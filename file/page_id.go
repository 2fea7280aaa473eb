package file

import (
	"fmt"
	"path/filepath"

	"github.com/OneOfOne/xxhash"
)

// TableID identifies a table. It is derived from the absolute path of the
// table's heap file, so the same file always maps to the same id.
type TableID uint64

// TableIDFor hashes the absolute form of path into a TableID.
func TableIDFor(path string) (TableID, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, err
	}
	h := xxhash.New64()
	h.Write([]byte(abs))
	return TableID(h.Sum64()), nil
}

// PageID names one page of one table. It is a plain value and can be used
// as a map key.
type PageID struct {
	Table  TableID
	Number int32
}

func NewPageID(table TableID, number int32) PageID {
	return PageID{Table: table, Number: number}
}

// Offset returns the byte offset of the page inside its heap file.
func (id PageID) Offset() int64 {
	return int64(id.Number) * PageSize
}

func (id PageID) String() string {
	return fmt.Sprintf("%x:%d", uint64(id.Table), id.Number)
}
