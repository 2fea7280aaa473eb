package server

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"heapdb/query"
	"heapdb/record"
	"heapdb/transaction"
)

// ErrTxDone is returned by operations on a committed or aborted transaction.
var ErrTxDone = errors.New("transaction already finished")

// Tx is a transaction handle. A Tx is not meant to be shared between
// goroutines.
type Tx struct {
	db   *DB
	id   transaction.ID
	mu   sync.Mutex
	done bool
}

func newTx(db *DB) *Tx {
	return &Tx{db: db, id: transaction.NewID()}
}

func (tx *Tx) ID() transaction.ID {
	return tx.id
}

// Commit writes the pages tx changed and releases its locks. If a write
// fails the transaction is aborted and the error returned.
func (tx *Tx) Commit() error {
	if !tx.finish() {
		return ErrTxDone
	}
	if err := tx.db.pool.Commit(tx.id); err != nil {
		tx.db.pool.Abort(tx.id)
		return errors.Wrap(err, "commit")
	}
	return nil
}

// Abort drops the changes of tx and releases its locks. Aborting a finished
// transaction does nothing.
func (tx *Tx) Abort() {
	if tx.finish() {
		tx.db.pool.Abort(tx.id)
	}
}

func (tx *Tx) finish() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.done {
		return false
	}
	tx.done = true
	return true
}

func (tx *Tx) check() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.done {
		return ErrTxDone
	}
	return nil
}

// Insert adds one row to table.
func (tx *Tx) Insert(ctx context.Context, table string, values ...any) error {
	if err := tx.check(); err != nil {
		return err
	}
	hf, err := tx.db.Table(table)
	if err != nil {
		return err
	}
	t, err := record.NewTuple(hf.Schema(), values...)
	if err != nil {
		return err
	}
	return tx.db.pool.Insert(ctx, tx.id, hf.ID(), t)
}

// Query returns an unopened scan over the rows of table matching where.
// An empty where matches every row.
func (tx *Tx) Query(table string, where string) (query.Scan, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	hf, err := tx.db.Table(table)
	if err != nil {
		return nil, err
	}

	var scan query.Scan = query.NewSeqScan(tx.id, hf, "")
	if where != "" {
		pred, err := query.ParsePredicate(where)
		if err != nil {
			return nil, err
		}
		scan = query.NewSelectScan(scan, pred)
	}
	return scan, nil
}

// Scan returns the rows of table matching where.
func (tx *Tx) Scan(ctx context.Context, table string, where string) ([]*record.Tuple, error) {
	scan, err := tx.Query(table, where)
	if err != nil {
		return nil, err
	}
	return query.Collect(ctx, scan)
}

// Delete removes the rows of table matching where and returns how many
// there were.
func (tx *Tx) Delete(ctx context.Context, table string, where string) (int, error) {
	scan, err := tx.Query(table, where)
	if err != nil {
		return 0, err
	}
	return tx.count(ctx, query.NewDelete(tx.id, tx.db.pool, scan))
}

// Aggregate computes op over field of table, grouped by groupBy when it is
// not empty.
func (tx *Tx) Aggregate(ctx context.Context, table string, op query.AggOp, field, groupBy string) (*record.Schema, []*record.Tuple, error) {
	scan, err := tx.Query(table, "")
	if err != nil {
		return nil, nil, err
	}
	agg := query.NewAggregate(scan, op, field, groupBy)
	rows, err := query.Collect(ctx, agg)
	if err != nil {
		return nil, nil, err
	}
	return agg.Schema(), rows, nil
}

func (tx *Tx) count(ctx context.Context, scan query.Scan) (int, error) {
	rows, err := query.Collect(ctx, scan)
	if err != nil {
		return 0, err
	}
	if len(rows) != 1 {
		return 0, errors.Errorf("expected one count row, got %d", len(rows))
	}
	return int(rows[0].Value(0).(int32)), nil
}
