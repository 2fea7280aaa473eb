package record

import (
	"fmt"

	"heapdb/file"
)

// RID locates a stored tuple: the page holding it and its slot number.
type RID struct {
	Page file.PageID
	Slot int32
}

func NewRID(page file.PageID, slot int32) RID {
	return RID{Page: page, Slot: slot}
}

func (r RID) String() string {
	return fmt.Sprintf("[%v, %d]", r.Page, r.Slot)
}
