package file

import (
	"bytes"
	"io"
	"testing"
)

func TestPage_WriteInt32At(t *testing.T) {
	testCases := []struct {
		name    string
		offset  int32
		val     int32
		wantErr error
	}{
		{"Write positive value to middle", 20, 12345, nil},
		{"Write negative value to start", 0, -1, nil},
		{"Write to last possible offset", PageSize - 4, 98765, nil},
		{"Write out of bounds", PageSize - 3, 999, io.EOF},
		{"Write at exact boundary", PageSize, 999, io.EOF},
		{"Write at negative offset", -1, 999, io.EOF},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPage()
			err := p.WriteInt32At(tc.offset, tc.val)
			if err != tc.wantErr {
				t.Errorf("WriteInt32At() error = %v, wantErr %v", err, tc.wantErr)
			}

			if tc.wantErr == nil {
				gotVal, _ := p.ReadInt32At(tc.offset)
				if gotVal != tc.val {
					t.Errorf("WriteInt32At() wrote %v, want %v", gotVal, tc.val)
				}
			}
		})
	}
}

func TestPage_WriteBytesAt(t *testing.T) {
	testCases := []struct {
		name    string
		offset  int32
		val     []byte
		wantErr error
	}{
		{"Write normal bytes", 10, []byte("hello world"), nil},
		{"Write empty bytes", 30, []byte{}, nil},
		{"Write bytes that fill the page exactly", PageSize - 9, []byte("final"), nil},
		{"Write bytes that are too long", PageSize - 50, make([]byte, 60), io.EOF},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPage()
			err := p.WriteBytesAt(tc.offset, tc.val)
			if err != tc.wantErr {
				t.Errorf("WriteBytesAt() error = %v, wantErr %v", err, tc.wantErr)
			}

			if tc.wantErr == nil {
				gotVal, err := p.ReadBytesAt(tc.offset)
				if err != nil {
					t.Fatalf("ReadBytesAt() failed during verification: %v", err)
				}
				if !bytes.Equal(gotVal, tc.val) {
					t.Errorf("WriteBytesAt() wrote %q, but ReadBytesAt() read %q", tc.val, gotVal)
				}
			}
		})
	}
}

func TestPage_WriteStringAt(t *testing.T) {
	p := NewPage()

	if err := p.WriteStringAt(0, "a longer value", 16); err != nil {
		t.Fatalf("WriteStringAt() failed: %v", err)
	}
	if err := p.WriteStringAt(0, "short", 16); err != nil {
		t.Fatalf("WriteStringAt() failed: %v", err)
	}

	got, err := p.ReadStringAt(0)
	if err != nil {
		t.Fatalf("ReadStringAt() failed: %v", err)
	}
	if got != "short" {
		t.Errorf("ReadStringAt() = %q, want %q", got, "short")
	}

	// The tail of the fixed-width field must not keep old content.
	for i := 4 + len("short"); i < 4+16; i++ {
		if p.Buf()[i] != 0 {
			t.Fatalf("byte %d = %d after shorter write, want 0", i, p.Buf()[i])
		}
	}

	if err := p.WriteStringAt(0, "this is seventeen", 16); err == nil {
		t.Errorf("WriteStringAt() accepted a string longer than the field")
	}
}

func TestPage_Bits(t *testing.T) {
	p := NewPage()

	for _, i := range []int32{0, 3, 8, 15, 100} {
		if err := p.SetBitAt(i, true); err != nil {
			t.Fatalf("SetBitAt(%d) failed: %v", i, err)
		}
	}
	if p.Buf()[0] != 0b00001001 {
		t.Errorf("first byte = %08b, want 00001001", p.Buf()[0])
	}
	if !p.BitAt(15) || p.BitAt(14) {
		t.Errorf("unexpected bits around 15")
	}

	if err := p.SetBitAt(3, false); err != nil {
		t.Fatalf("SetBitAt() failed: %v", err)
	}
	if p.BitAt(3) {
		t.Errorf("bit 3 still set after clearing")
	}
	if err := p.SetBitAt(PageSize*8, true); err != io.EOF {
		t.Errorf("SetBitAt() out of range error = %v, want io.EOF", err)
	}
}

func TestNewPageFrom(t *testing.T) {
	if _, err := NewPageFrom(make([]byte, 10)); err == nil {
		t.Errorf("NewPageFrom() accepted a short buffer")
	}

	data := make([]byte, PageSize)
	data[7] = 42
	p, err := NewPageFrom(data)
	if err != nil {
		t.Fatalf("NewPageFrom() failed: %v", err)
	}
	data[7] = 0
	if p.Buf()[7] != 42 {
		t.Errorf("NewPageFrom() did not copy its input")
	}
}
