package file

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// PageSize is the size in bytes of every page, on disk and in memory.
const PageSize = 4096

// Values are stored big-endian. Variable data is length-prefixed:
//
//	+-----------------+-------------------------------+
//	|   Length (N)    |  Content (N bytes, then pad)  |
//	|    (4 bytes)    |                               |
//	+-----------------+-------------------------------+
//	offset            offset + 4

// Page is a fixed-size byte buffer with offset-based accessors. It carries no
// knowledge of tuples; record.HeapPage builds the slot layout on top of it.
type Page struct {
	buf []byte
}

// NewPage returns a zero-filled page of PageSize bytes.
func NewPage() *Page {
	return &Page{buf: make([]byte, PageSize)}
}

// NewPageFrom copies data into a new page. data must be exactly PageSize
// bytes long.
func NewPageFrom(data []byte) (*Page, error) {
	if len(data) != PageSize {
		return nil, errors.Errorf("page data is %d bytes, want %d", len(data), PageSize)
	}
	p := NewPage()
	copy(p.buf, data)
	return p, nil
}

// Buf returns the underlying byte slice of the page.
func (p *Page) Buf() []byte {
	return p.buf
}

// WriteInt32At writes n at offset. It returns io.EOF if the value would not
// fit inside the page.
func (p *Page) WriteInt32At(offset int32, n int32) error {
	if offset < 0 || offset+4 > int32(len(p.buf)) {
		return io.EOF
	}
	binary.BigEndian.PutUint32(p.buf[offset:], uint32(n))
	return nil
}

// ReadInt32At reads the int32 stored at offset.
func (p *Page) ReadInt32At(offset int32) (int32, error) {
	if offset < 0 || offset+4 > int32(len(p.buf)) {
		return 0, io.EOF
	}
	return int32(binary.BigEndian.Uint32(p.buf[offset : offset+4])), nil
}

// WriteBytesAt writes a 4-byte length followed by b.
func (p *Page) WriteBytesAt(offset int32, b []byte) error {
	if offset < 0 || offset+4+int32(len(b)) > int32(len(p.buf)) {
		return io.EOF
	}
	if err := p.WriteInt32At(offset, int32(len(b))); err != nil {
		return err
	}
	copy(p.buf[offset+4:], b)
	return nil
}

// ReadBytesAt reads a length-prefixed byte slice. The result is a copy.
func (p *Page) ReadBytesAt(offset int32) ([]byte, error) {
	length, err := p.ReadInt32At(offset)
	if err != nil {
		return nil, err
	}
	if length < 0 || offset+4+length > int32(len(p.buf)) {
		return nil, io.EOF
	}

	b := make([]byte, length)
	copy(b, p.buf[offset+4:offset+4+length])
	return b, nil
}

// WriteStringAt stores s in a fixed-width field of maxLen content bytes.
// Unused content bytes are zeroed so that the page image does not depend on
// what the field held before. Strings longer than maxLen are rejected.
func (p *Page) WriteStringAt(offset int32, s string, maxLen int32) error {
	if int32(len(s)) > maxLen {
		return errors.Errorf("string of %d bytes exceeds field length %d", len(s), maxLen)
	}
	if offset < 0 || offset+4+maxLen > int32(len(p.buf)) {
		return io.EOF
	}
	if err := p.WriteBytesAt(offset, []byte(s)); err != nil {
		return err
	}
	clear(p.buf[offset+4+int32(len(s)) : offset+4+maxLen])
	return nil
}

// ReadStringAt reads a length-prefixed string.
func (p *Page) ReadStringAt(offset int32) (string, error) {
	b, err := p.ReadBytesAt(offset)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// BitAt reports whether bit i is set. Bit i lives in byte i/8, least
// significant bit first.
func (p *Page) BitAt(i int32) bool {
	if i < 0 || i/8 >= int32(len(p.buf)) {
		return false
	}
	return p.buf[i/8]&(1<<(uint(i)%8)) != 0
}

// SetBitAt sets or clears bit i.
func (p *Page) SetBitAt(i int32, on bool) error {
	if i < 0 || i/8 >= int32(len(p.buf)) {
		return io.EOF
	}
	if on {
		p.buf[i/8] |= 1 << (uint(i) % 8)
	} else {
		p.buf[i/8] &^= 1 << (uint(i) % 8)
	}
	return nil
}
