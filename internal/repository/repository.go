// Package repository holds the hand-written SQL data access layer.
// Mutating methods take an optional *sql.Tx so the workflow engine and
// services can compose them into one transaction; passing nil runs
// against the pool.
package repository

import (
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx
type dbtx interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// conn selects the transaction when one is supplied
func conn(db *sql.DB, tx *sql.Tx) dbtx {
	if tx != nil {
		return tx
	}
	return db
}

// isUniqueViolation reports whether err is a sqlite UNIQUE constraint
// failure
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
