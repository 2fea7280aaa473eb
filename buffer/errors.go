package buffer

import (
	"github.com/pkg/errors"

	"heapdb/transaction"
)

var (
	// ErrBufferPoolFull means every cached page is dirty or pinned, so no
	// slot can be freed for a new page.
	ErrBufferPoolFull = errors.New("buffer pool is full")

	// ErrStaleRecord is returned when deleting a tuple that carries no RID.
	ErrStaleRecord = errors.New("tuple has no record id")
)

func IsBufferPoolFull(err error) bool {
	return errors.Is(err, ErrBufferPoolFull)
}

func IsDeadlock(err error) bool {
	return errors.Is(err, transaction.ErrDeadlock)
}
