package store

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB wraps sql.DB for Postgres using pgx.
type DB struct {
	Client *sql.DB
}

var (
	once   sync.Once
	shared *DB
	initEr error
)

// Open returns the process-wide Postgres handle, creating it on first use.
// All callers share one pool; constructing independent handles with divergent
// settings is not supported.
func Open(connString string) (*DB, error) {
	once.Do(func() {
		shared, initEr = newDB(connString)
	})
	return shared, initEr
}

func newDB(connString string) (*DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	return &DB{Client: db}, db.PingContext(context.Background())
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}
