package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go-pipeline-engine/internal/model"
)

// SaveRun stores a finished run. Saving the same run id twice replaces it.
func (d *DB) SaveRun(ctx context.Context, r *model.PipelineResult) error {
	result, err := json.Marshal(r.Result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	logs, err := json.Marshal(r.Logs)
	if err != nil {
		return fmt.Errorf("encode logs: %w", err)
	}
	metadata, err := json.Marshal(r.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	_, err = d.ExecContext(ctx, `
		insert into runs (
			id, pipeline_id, user_id, success, started_at, ended_at, duration_ms,
			output_location, output_kind, error, result, logs, metadata
		) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		on conflict(id) do update set
			success = excluded.success,
			ended_at = excluded.ended_at,
			duration_ms = excluded.duration_ms,
			output_location = excluded.output_location,
			output_kind = excluded.output_kind,
			error = excluded.error,
			result = excluded.result,
			logs = excluded.logs,
			metadata = excluded.metadata`,
		r.RunID, r.PipelineID, r.UserID, r.Success,
		r.StartedAt.UTC().Format(timeFormat), r.EndedAt.UTC().Format(timeFormat), r.DurationMs,
		r.OutputLocation, string(r.OutputKind), r.Error,
		string(result), string(logs), string(metadata),
	)
	return err
}

const runColumns = `id, pipeline_id, user_id, success, started_at, ended_at, duration_ms,
	output_location, output_kind, error, result, logs, metadata`

func (d *DB) GetRun(ctx context.Context, id string) (*model.PipelineResult, error) {
	row := d.QueryRowContext(ctx, `select `+runColumns+` from runs where id = ?`, id)
	r, err := scanRun(row)
	if err != nil {
		return nil, scanErr(err)
	}
	return r, nil
}

// ListRuns returns the newest runs first, optionally for one pipeline.
func (d *DB) ListRuns(ctx context.Context, pipelineID string, limit int) ([]*model.PipelineResult, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `select ` + runColumns + ` from runs`
	args := []any{}
	if pipelineID != "" {
		query += ` where pipeline_id = ?`
		args = append(args, pipelineID)
	}
	query += ` order by started_at desc limit ?`
	args = append(args, limit)

	rows, err := d.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*model.PipelineResult
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*model.PipelineResult, error) {
	var (
		r                model.PipelineResult
		started, ended   string
		kind             string
		result, metadata sql.NullString
		logs             string
	)
	err := s.Scan(&r.RunID, &r.PipelineID, &r.UserID, &r.Success, &started, &ended, &r.DurationMs,
		&r.OutputLocation, &kind, &r.Error, &result, &logs, &metadata)
	if err != nil {
		return nil, err
	}

	r.StartedAt = parseTime(started)
	r.EndedAt = parseTime(ended)
	r.OutputKind = model.OutputKind(kind)
	if result.Valid && result.String != "null" {
		if err := json.Unmarshal([]byte(result.String), &r.Result); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(logs), &r.Logs); err != nil {
		return nil, fmt.Errorf("decode logs: %w", err)
	}
	if metadata.Valid && metadata.String != "null" {
		if err := json.Unmarshal([]byte(metadata.String), &r.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &r, nil
}
