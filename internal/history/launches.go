package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const launchColumns = `id, instance_id, pid, started_at, exited_at, exit_error`

func scanLaunch(scanner interface{ Scan(...any) error }) (*launchModel, error) {
	var m launchModel
	err := scanner.Scan(&m.ID, &m.InstanceID, &m.PID, &m.StartedAt, &m.ExitedAt, &m.ExitError)
	return &m, err
}

// RecordLaunch inserts a row for a started widget and returns its id.
func (d *DB) RecordLaunch(ctx context.Context, instanceID string, pid int, at time.Time) (int64, error) {
	res, err := d.conn.ExecContext(ctx,
		`INSERT INTO launches (instance_id, pid, started_at) VALUES (?, ?, ?)`,
		instanceID, pid, at.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record launch: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return id, nil
}

// RecordExit stamps the exit of a launch. exitErr may be nil.
func (d *DB) RecordExit(ctx context.Context, runID int64, at time.Time, exitErr error) error {
	var msg *string
	if exitErr != nil {
		s := exitErr.Error()
		msg = &s
	}
	_, err := d.conn.ExecContext(ctx,
		`UPDATE launches SET exited_at = ?, exit_error = ? WHERE id = ?`,
		at.UnixMilli(), msg, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to record exit: %w", err)
	}
	return nil
}

// Recent returns the newest launches across all instances.
func (d *DB) Recent(ctx context.Context, limit int) ([]Launch, error) {
	return d.query(ctx,
		`SELECT `+launchColumns+` FROM launches ORDER BY started_at DESC, id DESC LIMIT ?`,
		limit,
	)
}

// ForInstance returns the newest launches of one instance.
func (d *DB) ForInstance(ctx context.Context, instanceID string, limit int) ([]Launch, error) {
	return d.query(ctx,
		`SELECT `+launchColumns+` FROM launches WHERE instance_id = ? ORDER BY started_at DESC, id DESC LIMIT ?`,
		instanceID, limit,
	)
}

// Last returns the newest launch of an instance. ok is false when it has
// never been launched.
func (d *DB) Last(ctx context.Context, instanceID string) (l Launch, ok bool, err error) {
	row := d.conn.QueryRowContext(ctx,
		`SELECT `+launchColumns+` FROM launches WHERE instance_id = ? ORDER BY started_at DESC, id DESC LIMIT 1`,
		instanceID,
	)
	m, err := scanLaunch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Launch{}, false, nil
	}
	if err != nil {
		return Launch{}, false, fmt.Errorf("failed to find last launch: %w", err)
	}
	return m.toLaunch(), true, nil
}

// DeleteInstance purges every row of an instance.
func (d *DB) DeleteInstance(ctx context.Context, instanceID string) (int64, error) {
	res, err := d.conn.ExecContext(ctx, `DELETE FROM launches WHERE instance_id = ?`, instanceID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete history: %w", err)
	}
	return res.RowsAffected()
}

func (d *DB) query(ctx context.Context, q string, args ...any) ([]Launch, error) {
	if limit, ok := args[len(args)-1].(int); ok && limit <= 0 {
		args[len(args)-1] = -1
	}
	rows, err := d.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query launches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Launch
	for rows.Next() {
		m, err := scanLaunch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan launch: %w", err)
		}
		out = append(out, m.toLaunch())
	}
	return out, rows.Err()
}
