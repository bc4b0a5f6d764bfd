package journal

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Record inserts one operation row. A missing ID is generated; missing
// timestamps default to the current time.
func (s *Store) Record(op Operation) error {
	if op.Host == "" {
		return errors.New("host is required")
	}
	if err := validateVerb(op.Verb); err != nil {
		return err
	}
	if err := validateStatus(op.Status); err != nil {
		return err
	}
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if op.StartedAt == 0 {
		op.StartedAt = nowUnixMilli()
	}
	if op.FinishedAt == 0 {
		op.FinishedAt = nowUnixMilli()
	}

	_, err := s.db.Exec(
		`INSERT INTO operations (
			operation_id,
			host,
			verb,
			filename,
			size_bytes,
			status,
			detail,
			started_at,
			finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		op.ID,
		op.Host,
		op.Verb,
		op.Filename,
		op.SizeBytes,
		op.Status,
		op.Detail,
		op.StartedAt,
		op.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert operation %q: %w", op.ID, err)
	}

	return nil
}

// RecentForHost returns the newest operations first. An empty host returns
// operations across all hosts; a non-positive limit defaults to 20.
func (s *Store) RecentForHost(host string, limit int) ([]Operation, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT
		operation_id,
		host,
		verb,
		filename,
		size_bytes,
		status,
		detail,
		started_at,
		finished_at
	FROM operations`
	args := make([]any, 0, 2)
	if host != "" {
		query += " WHERE host = ?"
		args = append(args, host)
	}
	query += " ORDER BY started_at DESC, operation_id LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	defer rows.Close()

	ops := make([]Operation, 0, limit)
	for rows.Next() {
		op, scanErr := scanOperation(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan operation row: %w", scanErr)
		}
		ops = append(ops, *op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operation rows: %w", err)
	}
	return ops, nil
}

// LastUpload returns the most recent successful upload of filename to host.
func (s *Store) LastUpload(host, filename string) (*Operation, error) {
	if host == "" {
		return nil, errors.New("host is required")
	}
	if filename == "" {
		return nil, errors.New("filename is required")
	}

	row := s.db.QueryRow(
		`SELECT
			operation_id,
			host,
			verb,
			filename,
			size_bytes,
			status,
			detail,
			started_at,
			finished_at
		FROM operations
		WHERE host = ? AND verb = ? AND filename = ? AND status = ?
		ORDER BY finished_at DESC, operation_id
		LIMIT 1`,
		host,
		VerbUpload,
		filename,
		StatusOK,
	)

	op, err := scanOperation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get last upload %q on %q: %w", filename, host, err)
	}
	return op, nil
}

func scanOperation(row scanner) (*Operation, error) {
	var op Operation
	if err := row.Scan(
		&op.ID,
		&op.Host,
		&op.Verb,
		&op.Filename,
		&op.SizeBytes,
		&op.Status,
		&op.Detail,
		&op.StartedAt,
		&op.FinishedAt,
	); err != nil {
		return nil, err
	}
	return &op, nil
}
