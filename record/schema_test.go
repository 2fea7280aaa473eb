package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_Index(t *testing.T) {
	s := NewSchema()
	s.AddIntField("e.id")
	s.AddStringField("e.name", 10)
	s.AddIntField("d.id")

	testCases := []struct {
		name string
		want int
	}{
		{"e.id", 0},
		{"name", 1},
		{"e.name", 1},
		{"id", -1}, // ambiguous
		{"d.id", 2},
		{"x.name", -1},
		{"missing", -1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, s.Index(tc.name))
		})
	}
}

func TestSchema_Equal(t *testing.T) {
	a := NewSchema()
	a.AddIntField("id")
	a.AddStringField("name", 10)

	b := NewSchema()
	b.AddIntField("key")
	b.AddStringField("label", 10)

	c := NewSchema()
	c.AddIntField("id")
	c.AddStringField("name", 11)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
	assert.True(t, a.Equal(a.WithPrefix("t")))
	assert.Equal(t, []string{"t.id", "t.name"}, a.WithPrefix("t").Fields())
	assert.Equal(t, "id int, name string(10)", a.String())
}

func TestParseFieldSpec(t *testing.T) {
	ft, n, err := ParseFieldSpec("int")
	require.NoError(t, err)
	assert.Equal(t, Integer, ft)
	assert.Zero(t, n)

	ft, n, err = ParseFieldSpec("String(32)")
	require.NoError(t, err)
	assert.Equal(t, Varchar, ft)
	assert.EqualValues(t, 32, n)

	for _, bad := range []string{"float", "string()", "string(-1)", "string(x)"} {
		_, _, err := ParseFieldSpec(bad)
		assert.Error(t, err, bad)
	}
}

func TestLayout(t *testing.T) {
	s := NewSchema()
	s.AddIntField("a")
	s.AddIntField("b")
	l := NewLayout(s)

	// 8-byte tuples: floor(4096*8 / 65) slots and a header of ceil(slots/8) bytes.
	assert.EqualValues(t, 8, l.TupleSize())
	assert.EqualValues(t, 504, l.SlotsPerPage())
	assert.EqualValues(t, 63, l.HeaderSize())
	assert.EqualValues(t, 4, l.Offset("b"))
	assert.EqualValues(t, 63+8*2, l.SlotOffset(2))
	assert.LessOrEqual(t, l.HeaderSize()+l.SlotsPerPage()*l.TupleSize(), int32(4096))

	s2 := NewSchema()
	s2.AddIntField("id")
	s2.AddStringField("name", 20)
	l2 := NewLayout(s2)
	assert.EqualValues(t, 28, l2.TupleSize())
	assert.EqualValues(t, 32768/225, l2.SlotsPerPage())
}
