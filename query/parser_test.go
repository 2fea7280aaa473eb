package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heapdb/record"
)

func peopleSchema() *record.Schema {
	s := record.NewSchema()
	s.AddIntField("id")
	s.AddStringField("name", 16)
	s.AddIntField("age")
	return s
}

func person(t *testing.T, id int, name string, age int) *record.Tuple {
	t.Helper()
	tup, err := record.NewTuple(peopleSchema(), id, name, age)
	require.NoError(t, err)
	return tup
}

func TestParsePredicate(t *testing.T) {
	testCases := []struct {
		input string
		want  string
	}{
		{"age >= 30", "age >= 30"},
		{"age>=30 and name='bob'", "age >= 30 AND name = 'bob'"},
		{"id <> -4", "id != -4"},
		{"p.name = q.name", "p.name = q.name"},
		{"name = ''", "name = ''"},
		{"1 < id AND id <= 10 AND name != 'a b'", "1 < id AND id <= 10 AND name != 'a b'"},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			pred, err := ParsePredicate(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, pred.String())
		})
	}
}

func TestParsePredicate_Errors(t *testing.T) {
	for _, input := range []string{
		"",
		"age >",
		"age == 3",
		"age = 3 AND",
		"name = 'unterminated",
		"id = 99999999999",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := ParsePredicate(input)
			assert.Error(t, err)
		})
	}
}

func TestPredicate_IsSatisfied(t *testing.T) {
	bob := person(t, 1, "bob", 42)

	testCases := []struct {
		where string
		want  bool
	}{
		{"age >= 30", true},
		{"age < 30", false},
		{"name = 'bob' AND id = 1", true},
		{"name = 'bob' AND id = 2", false},
		{"name > 'alice'", true},
		{"id != age", true},
	}

	for _, tc := range testCases {
		t.Run(tc.where, func(t *testing.T) {
			pred, err := ParsePredicate(tc.where)
			require.NoError(t, err)
			got, err := pred.IsSatisfied(bob)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("type mismatch", func(t *testing.T) {
		pred, err := ParsePredicate("name = 3")
		require.NoError(t, err)
		_, err = pred.IsSatisfied(bob)
		assert.ErrorIs(t, err, ErrTypeMismatch)
	})

	t.Run("nil predicate", func(t *testing.T) {
		var pred *Predicate
		ok, err := pred.IsSatisfied(bob)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestParseOp(t *testing.T) {
	for _, sym := range []string{"=", "!=", "<", "<=", ">", ">="} {
		op, err := ParseOp(sym)
		require.NoError(t, err)
		assert.Equal(t, sym, op.String())
	}
	_, err := ParseOp("~")
	assert.Error(t, err)
}
