package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

// Record is an artifact registered by an output sink. Key is unique;
// creating a record with an existing key updates it in place.
type Record struct {
	ID          string          `json:"id"`
	Key         string          `json:"key"`
	Kind        string          `json:"kind"`
	Location    string          `json:"location,omitempty"`
	PipelineID  string          `json:"pipeline_id,omitempty"`
	RunID       string          `json:"run_id,omitempty"`
	UserID      string          `json:"user_id,omitempty"`
	ContentType string          `json:"content_type,omitempty"`
	Size        int64           `json:"size"`
	Data        json.RawMessage `json:"data,omitempty"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

func (d *DB) CreateRecord(ctx context.Context, rec Record) (Record, error) {
	if rec.Key == "" {
		return Record{}, errors.New("record key is required")
	}

	var out Record
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		ts := now()
		var data any
		if len(rec.Data) > 0 {
			data = string(rec.Data)
		}
		_, err := tx.ExecContext(ctx, `
			insert into records (
				id, key, kind, location, pipeline_id, run_id, user_id,
				content_type, size, data, created_at, updated_at
			) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			on conflict(key) do update set
				kind = excluded.kind,
				location = excluded.location,
				pipeline_id = excluded.pipeline_id,
				run_id = excluded.run_id,
				user_id = excluded.user_id,
				content_type = excluded.content_type,
				size = excluded.size,
				data = excluded.data,
				updated_at = excluded.updated_at`,
			uuid.NewString(), rec.Key, rec.Kind, rec.Location, rec.PipelineID, rec.RunID, rec.UserID,
			rec.ContentType, rec.Size, data, ts, ts,
		)
		if err != nil {
			return err
		}

		r, err := scanRecord(tx.QueryRowContext(ctx, `select `+recordColumns+` from records where key = ?`, rec.Key))
		if err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

const recordColumns = `id, key, kind, location, pipeline_id, run_id, user_id,
	content_type, size, data, created_at, updated_at`

// GetRecord looks a record up by key.
func (d *DB) GetRecord(ctx context.Context, key string) (Record, error) {
	r, err := scanRecord(d.QueryRowContext(ctx, `select `+recordColumns+` from records where key = ?`, key))
	if err != nil {
		return Record{}, scanErr(err)
	}
	return r, nil
}

func (d *DB) ListRecords(ctx context.Context, runID string) ([]Record, error) {
	rows, err := d.QueryContext(ctx, `select `+recordColumns+` from records where run_id = ? order by created_at`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

func scanRecord(s scanner) (Record, error) {
	var (
		r    Record
		data sql.NullString
	)
	err := s.Scan(&r.ID, &r.Key, &r.Kind, &r.Location, &r.PipelineID, &r.RunID, &r.UserID,
		&r.ContentType, &r.Size, &data, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return Record{}, err
	}
	if data.Valid {
		r.Data = json.RawMessage(data.String)
	}
	return r, nil
}
