// Package sqlutil provides the small set of helpers every storage package in
// this service builds on: prepared-statement setup, a transaction-aware
// statement wrapper, and a single-writer serializer for sqlite-style
// single-connection safety on the read-write pool.
package sqlutil

import (
	"context"
	"database/sql"
	"fmt"
)

// StatementList is a batch of (destination, SQL) pairs prepared against a
// *sql.DB in one pass. Every storage_table.go in this repo builds its
// prepared statements this way, mirroring the PrepareXTable functions of the
// teacher's roomserver/mediaapi storage packages.
type StatementList []struct {
	Statement **sql.Stmt
	SQL       string
}

// Prepare prepares every statement in the list against db. It returns the
// first error encountered, wrapped with the offending SQL for debugging.
func (s StatementList) Prepare(db *sql.DB) error {
	for _, entry := range s {
		stmt, err := db.Prepare(entry.SQL)
		if err != nil {
			return fmt.Errorf("sqlutil: prepare %q: %w", entry.SQL, err)
		}
		*entry.Statement = stmt
	}
	return nil
}

// TxStmt returns stmt bound to txn if txn is non-nil, otherwise stmt itself.
// Every read/write method in the storage layer calls this so the same
// prepared statement can run standalone or inside a caller's transaction.
func TxStmt(txn *sql.Tx, stmt *sql.Stmt) *sql.Stmt {
	if txn != nil {
		return txn.Stmt(stmt)
	}
	return stmt
}

// Writer serializes writes against a database connection. ExclusiveWriter is
// its only implementation; the interface exists so storage code never has to
// special-case "do I need to serialize this write".
type Writer interface {
	Do(db *sql.DB, txn *sql.Tx, fn func(txn *sql.Tx) error) error
}

// ExclusiveWriter runs every Do call through a buffered channel of size 1,
// guaranteeing at most one write transaction in flight at a time. It is the
// Writer of every storage/shared Database; the room-adjust and edition-commit
// engines open their transactions through WithTransaction instead.
type ExclusiveWriter struct {
	running chan struct{}
}

// NewExclusiveWriter constructs a ready-to-use ExclusiveWriter.
func NewExclusiveWriter() *ExclusiveWriter {
	w := &ExclusiveWriter{running: make(chan struct{}, 1)}
	w.running <- struct{}{}
	return w
}

// Do runs fn inside a transaction, taking ownership of txn if the caller
// already has one open, otherwise opening and committing its own.
func (w *ExclusiveWriter) Do(db *sql.DB, txn *sql.Tx, fn func(txn *sql.Tx) error) error {
	<-w.running
	defer func() { w.running <- struct{}{} }()

	if txn != nil {
		return fn(txn)
	}

	newTxn, err := db.Begin()
	if err != nil {
		return err
	}
	if err := fn(newTxn); err != nil {
		_ = newTxn.Rollback()
		return err
	}
	return newTxn.Commit()
}

// WithTransaction runs fn within a new transaction on db, committing on
// success and rolling back on error or panic. It is used directly by the
// adjust and commit engines, which need explicit control over a single
// long-lived transaction rather than the Writer's per-call semantics.
func WithTransaction(ctx context.Context, db *sql.DB, fn func(txn *sql.Tx) error) (err error) {
	txn, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = txn.Rollback()
			panic(p)
		}
		if err != nil {
			_ = txn.Rollback()
			return
		}
		err = txn.Commit()
	}()
	err = fn(txn)
	return err
}
