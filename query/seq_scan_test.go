package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heapdb/buffer"
	"heapdb/file"
	"heapdb/heap"
	"heapdb/metadata"
	"heapdb/record"
	"heapdb/transaction"
)

func openTable(t *testing.T) (*heap.File, *buffer.Pool) {
	t.Helper()
	fm, err := file.NewManager(t.TempDir(), false)
	require.NoError(t, err)
	t.Cleanup(func() { fm.Close() })

	mm := metadata.NewManager(fm)
	pool := buffer.NewPool(8, mm)
	require.NoError(t, mm.Load(pool))
	hf, err := mm.CreateTable("people", peopleSchema())
	require.NoError(t, err)
	return hf, pool
}

func count(t *testing.T, tuples []*record.Tuple) int32 {
	t.Helper()
	require.Len(t, tuples, 1)
	return tuples[0].Value(0).(int32)
}

func TestInsertAndSeqScan(t *testing.T) {
	hf, pool := openTable(t)
	ctx := context.Background()
	tid := transaction.NewID()

	ins := NewInsert(tid, pool, hf.ID(), hf.Schema(), people(t))
	got, err := Collect(ctx, ins)
	require.NoError(t, err)
	assert.EqualValues(t, 4, count(t, got))

	// Rewinding reports the count again without inserting twice.
	require.NoError(t, ins.Rewind(ctx))
	ok, err := ins.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int32(4), ins.Tuple().Value(0))

	rows, err := Collect(ctx, NewSeqScan(tid, hf, ""))
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []any{int32(2), "bob", int32(42)}, rows[1].Values())
	assert.NotNil(t, rows[1].RID())

	require.NoError(t, pool.Commit(tid))
}

func TestInsert_SchemaMismatch(t *testing.T) {
	hf, pool := openTable(t)
	tid := transaction.NewID()
	defer pool.Abort(tid)

	names := NewProjectScan(people(t), []string{"name"})
	require.NoError(t, names.Open(context.Background()))
	_, err := Collect(context.Background(), NewInsert(tid, pool, hf.ID(), hf.Schema(), names))
	assert.ErrorIs(t, err, record.ErrSchemaMismatch)
}

func TestSeqScan_Alias(t *testing.T) {
	hf, pool := openTable(t)
	ctx := context.Background()
	tid := transaction.NewID()

	_, err := Collect(ctx, NewInsert(tid, pool, hf.ID(), hf.Schema(), people(t)))
	require.NoError(t, err)

	pred, err := ParsePredicate("p.age = q.age AND p.id < q.id")
	require.NoError(t, err)
	join := NewSelectScan(NewProductScan(NewSeqScan(tid, hf, "p"), NewSeqScan(tid, hf, "q")), pred)
	rows, err := Collect(ctx, NewProjectScan(join, []string{"p.name", "q.name"}))
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"alice", "carol"}}, values(rows))

	require.NoError(t, pool.Commit(tid))
}

func TestDelete(t *testing.T) {
	hf, pool := openTable(t)
	ctx := context.Background()

	writer := transaction.NewID()
	_, err := Collect(ctx, NewInsert(writer, pool, hf.ID(), hf.Schema(), people(t)))
	require.NoError(t, err)
	require.NoError(t, pool.Commit(writer))

	deleter := transaction.NewID()
	pred, err := ParsePredicate("age = 30")
	require.NoError(t, err)
	got, err := Collect(ctx, NewDelete(deleter, pool, NewSelectScan(NewSeqScan(deleter, hf, "p"), pred)))
	require.NoError(t, err)
	assert.EqualValues(t, 2, count(t, got))
	require.NoError(t, pool.Commit(deleter))

	reader := transaction.NewID()
	rows, err := Collect(ctx, NewSeqScan(reader, hf, ""))
	require.NoError(t, err)
	assert.Equal(t, [][]any{
		{int32(2), "bob", int32(42)},
		{int32(4), "dave", int32(17)},
	}, values(rows))
	require.NoError(t, pool.Commit(reader))
}

func TestAggregate_OverTable(t *testing.T) {
	hf, pool := openTable(t)
	ctx := context.Background()
	tid := transaction.NewID()

	_, err := Collect(ctx, NewInsert(tid, pool, hf.ID(), hf.Schema(), people(t)))
	require.NoError(t, err)

	rows, err := Collect(ctx, NewAggregate(NewSeqScan(tid, hf, ""), Avg, "age", ""))
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int32(29)}}, values(rows))
	require.NoError(t, pool.Commit(tid))
}
