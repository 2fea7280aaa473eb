package transaction

import "github.com/google/uuid"

// ID identifies a transaction. IDs are random and never reused, so they can
// be compared and used as map keys.
type ID uuid.UUID

func NewID() ID {
	return ID(uuid.New())
}

func (id ID) String() string {
	return uuid.UUID(id).String()
}

// Short returns the first eight hex digits, enough to tell transactions apart
// in log output.
func (id ID) Short() string {
	return id.String()[:8]
}

// Permission is the lock mode a transaction asks for on a page.
type Permission int

const (
	ReadOnly Permission = iota
	ReadWrite
)

func (p Permission) String() string {
	switch p {
	case ReadOnly:
		return "READ_ONLY"
	case ReadWrite:
		return "READ_WRITE"
	default:
		return "UNKNOWN"
	}
}

// Covers reports whether a lock held in mode p satisfies a request for want.
func (p Permission) Covers(want Permission) bool {
	return p >= want
}
