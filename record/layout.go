package record

import "heapdb/file"

// Layout describes how tuples of a schema are placed on a heap page.
//
// A page starts with a header bitmap of HeaderSize bytes, one bit per slot
// (bit i in byte i/8, least significant bit first), followed by SlotsPerPage
// fixed-size tuple slots. Integers take 4 bytes; a Varchar(n) takes a 4-byte
// length plus n bytes.
type Layout struct {
	schema       *Schema
	offsets      map[string]int32
	tupleSize    int32
	slotsPerPage int32
	headerSize   int32
}

func NewLayout(schema *Schema) *Layout {
	offsets := make(map[string]int32)
	var pos int32
	for _, fieldName := range schema.fields {
		offsets[fieldName] = pos
		pos += lengthInBytes(schema, fieldName)
	}

	var slots int32
	if pos > 0 {
		slots = (file.PageSize * 8) / (pos*8 + 1)
	}

	return &Layout{
		schema:       schema,
		offsets:      offsets,
		tupleSize:    pos,
		slotsPerPage: slots,
		headerSize:   (slots + 7) / 8,
	}
}

func (l *Layout) Schema() *Schema {
	return l.schema
}

// Offset returns the position of a field inside a tuple slot.
func (l *Layout) Offset(fieldName string) int32 {
	return l.offsets[fieldName]
}

func (l *Layout) TupleSize() int32 {
	return l.tupleSize
}

func (l *Layout) SlotsPerPage() int32 {
	return l.slotsPerPage
}

func (l *Layout) HeaderSize() int32 {
	return l.headerSize
}

// SlotOffset returns the page offset of slot.
func (l *Layout) SlotOffset(slot int32) int32 {
	return l.headerSize + slot*l.tupleSize
}

func lengthInBytes(schema *Schema, fieldName string) int32 {
	fieldType := schema.FieldType(fieldName)
	switch fieldType {
	case Integer:
		return 4
	case Varchar:
		return schema.FieldLength(fieldName) + 4
	default:
		return 0
	}
}
