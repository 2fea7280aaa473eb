package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heapdb/record"
)

// execute runs one command line against dir and returns its output.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	var cli CLI
	cli.out = &out

	parser, err := kong.New(&cli, kong.Name("heapdb"))
	require.NoError(t, err)
	args = append([]string{"--config", filepath.Join(dir, "none.ini"), "--data-dir", dir}, args...)
	kctx, err := parser.Parse(args)
	if err != nil {
		return "", err
	}
	err = kctx.Run(&cli.Globals)
	return out.String(), err
}

func TestCommands(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, dir, "create", "people", "id:int", "name:string(8)", "age:int")
	require.NoError(t, err)
	assert.Equal(t, "created people (id int, name string(8), age int)\n", out)

	for _, row := range [][]string{
		{"1", "ada", "36"},
		{"2", "bob", "17"},
		{"3", "cyd", "36"},
	} {
		_, err := execute(t, dir, append([]string{"insert", "people"}, row...)...)
		require.NoError(t, err)
	}

	out, err = execute(t, dir, "scan", "people", "--where", "age = 36")
	require.NoError(t, err)
	assert.Contains(t, out, "ada")
	assert.Contains(t, out, "cyd")
	assert.NotContains(t, out, "bob")
	assert.Contains(t, out, "(2 rows)")

	out, err = execute(t, dir, "aggregate", "people", "--op", "count", "--field", "id", "--group-by", "age")
	require.NoError(t, err)
	assert.Contains(t, out, "count(id)")
	assert.Contains(t, out, "(2 rows)")

	out, err = execute(t, dir, "delete", "people", "--where", "name = 'bob'")
	require.NoError(t, err)
	assert.Equal(t, "deleted 1 rows\n", out)

	out, err = execute(t, dir, "tables")
	require.NoError(t, err)
	assert.Equal(t, "people (id int, name string(8), age int)\n", out)

	out, err = execute(t, dir, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "4.0 KiB")
	assert.Contains(t, out, "buffer pool:")

	_, err = execute(t, dir, "insert", "people", "x", "eve", "1")
	assert.Error(t, err)
	_, err = execute(t, dir, "scan", "nothing")
	assert.Error(t, err)
}

func TestParseSchema(t *testing.T) {
	schema, err := parseSchema([]string{"id:int", "name:string(20)"})
	require.NoError(t, err)
	assert.Equal(t, record.Varchar, schema.FieldType("name"))
	assert.EqualValues(t, 20, schema.FieldLength("name"))

	for _, bad := range [][]string{
		{"id"},
		{":int"},
		{"id:float"},
		{"id:int", "id:int"},
	} {
		_, err := parseSchema(bad)
		assert.Error(t, err, "%v", bad)
	}
}

func TestParseValues(t *testing.T) {
	schema, err := parseSchema([]string{"id:int", "name:string(4)"})
	require.NoError(t, err)

	values, err := parseValues(schema, []string{"-7", "abc"})
	require.NoError(t, err)
	assert.Equal(t, []any{int32(-7), "abc"}, values)

	_, err = parseValues(schema, []string{"1"})
	assert.Error(t, err)
	_, err = parseValues(schema, []string{"3000000000", "a"})
	assert.Error(t, err)
}
