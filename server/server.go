// Package server ties the storage layers together into a database handle
// with transactions.
package server

import (
	"context"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"heapdb/buffer"
	"heapdb/config"
	"heapdb/file"
	"heapdb/heap"
	"heapdb/logger"
	"heapdb/metadata"
	"heapdb/record"
)

// DefaultAttempts bounds how often Run executes a transaction that keeps
// failing with a deadlock.
const DefaultAttempts = 10

// DB is an open database directory.
type DB struct {
	fileManager     *file.Manager
	metadataManager *metadata.Manager
	pool            *buffer.Pool
	attempts        int
	log             *logrus.Entry
}

// Open opens the database in cfg.DataDir, creating it if needed, and loads
// its catalog.
func Open(cfg *config.Config) (*DB, error) {
	fileManager, err := file.NewManager(cfg.DataDir, cfg.SyncWrites)
	if err != nil {
		return nil, err
	}
	metadataManager := metadata.NewManager(fileManager)
	pool := buffer.NewPool(cfg.PoolPages, metadataManager)
	if err := metadataManager.Load(pool); err != nil {
		fileManager.Close()
		return nil, err
	}

	db := &DB{
		fileManager:     fileManager,
		metadataManager: metadataManager,
		pool:            pool,
		attempts:        DefaultAttempts,
		log:             logger.For("server"),
	}
	db.log.WithFields(logrus.Fields{
		"dir":    cfg.DataDir,
		"pages":  pool.Capacity(),
		"tables": len(metadataManager.Tables()),
	}).Info("database opened")
	return db, nil
}

func (db *DB) CreateTable(name string, schema *record.Schema) (*heap.File, error) {
	return db.metadataManager.CreateTable(name, schema)
}

func (db *DB) Table(name string) (*heap.File, error) {
	return db.metadataManager.Table(name)
}

// Tables returns the table names in sorted order.
func (db *DB) Tables() []string {
	return db.metadataManager.Tables()
}

func (db *DB) Pool() *buffer.Pool {
	return db.pool
}

func (db *DB) Stats() buffer.Stats {
	return db.pool.Stats()
}

// TableStats counts the pages and tuples of a table in a transaction of its
// own.
func (db *DB) TableStats(ctx context.Context, name string) (metadata.StatInfo, error) {
	var info metadata.StatInfo
	err := db.Run(ctx, func(tx *Tx) error {
		var err error
		info, err = db.metadataManager.GetStatInfo(ctx, tx.ID(), name)
		return err
	})
	return info, err
}

// Begin starts a transaction. It must end with Commit or Abort.
func (db *DB) Begin() *Tx {
	return newTx(db)
}

// Run executes fn in a new transaction, committing if fn returns nil and
// aborting otherwise. A transaction chosen as a deadlock victim is retried
// from the start, up to DefaultAttempts times in total; any other error is
// returned as is.
func (db *DB) Run(ctx context.Context, fn func(tx *Tx) error) error {
	var err error
	for attempt := 1; attempt <= db.attempts; attempt++ {
		tx := db.Begin()
		if err = fn(tx); err == nil {
			return tx.Commit()
		}
		tx.Abort()
		if !buffer.IsDeadlock(err) {
			return err
		}

		db.log.WithFields(logrus.Fields{"tx": tx.ID().Short(), "attempt": attempt}).Debug("deadlock, retrying")
		backoff := time.Duration(rand.Intn(attempt*5)+1) * time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return err
}

// Close releases the open files. Uncommitted changes are lost.
func (db *DB) Close() error {
	db.log.Info("database closed")
	return db.fileManager.Close()
}
