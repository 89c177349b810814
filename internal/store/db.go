package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var ErrNotFound = errors.New("not found")

type DB struct {
	*sql.DB
}

// Make opens (creating if needed) the SQLite database at dbPath and
// applies the schema.
func Make(dbPath string) (*DB, error) {
	// https://github.com/mattn/go-sqlite3#connection-string
	opts := []string{
		"_foreign_keys=1",
		"_journal_mode=WAL",
		"_synchronous=NORMAL",
		"_busy_timeout=5000",
	}

	db, err := sql.Open("sqlite3", dbPath+"?"+strings.Join(opts, "&"))
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		create table if not exists runs (
			id text primary key,
			pipeline_id text not null,
			user_id text not null default '',
			success integer not null,
			started_at text not null,
			ended_at text not null,
			duration_ms integer not null,
			output_location text not null default '',
			output_kind text not null default '',
			error text not null default '',
			result text, -- json
			logs text not null, -- json array
			metadata text -- json
		);

		create index if not exists runs_pipeline on runs (pipeline_id, started_at);

		-- artifacts registered by output sinks
		create table if not exists records (
			id text primary key,
			key text not null unique,
			kind text not null,
			location text not null default '',
			pipeline_id text not null default '',
			run_id text not null default '',
			user_id text not null default '',
			content_type text not null default '',
			size integer not null default 0,
			data text, -- json
			created_at text not null,
			updated_at text not null
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

// fixed width so text ordering matches time ordering
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func now() string {
	return time.Now().UTC().Format(timeFormat)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// FileExists reports whether path names an existing file.
func (d *DB) FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// StatSize returns the size of the file at path.
func (d *DB) StatSize(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func scanErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// withTx runs fn in a transaction, rolling back on error.
func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
