package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/okdesk/deskagent/internal/memory"
)

// AppendMessage implements memory.Store. A zero ts means "now".
func (s *Store) AppendMessage(ctx context.Context, sessionID, role, content string, ts time.Time) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (session_id, role, content, ts)
		VALUES (?, ?, ?, ?)`,
		sessionID, role, content, ts.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite: append message: %w", err)
	}
	return nil
}

// RecentMessages implements memory.Store. It takes the newest limit rows
// and re-sorts them ascending so callers see chronological order.
func (s *Store) RecentMessages(ctx context.Context, sessionID string, limit int) ([]memory.Turn, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, role, content, ts
		FROM messages
		WHERE session_id = ?
		ORDER BY id DESC
		LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: recent messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	turns, err := scanTurns(rows)
	if err != nil {
		return nil, err
	}

	// Reverse to chronological order.
	slices.Reverse(turns)
	return turns, nil
}

// SearchMessages implements memory.Store. Substring match over content,
// newest-first. instr avoids LIKE wildcard escaping.
func (s *Store) SearchMessages(ctx context.Context, sessionID, keyword string, limit int) ([]memory.Turn, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, role, content, ts
		FROM messages
		WHERE session_id = ? AND instr(content, ?) > 0
		ORDER BY id DESC
		LIMIT ?`,
		sessionID, keyword, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: search messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanTurns(rows)
}

// RecordOperation implements memory.Store.
func (s *Store) RecordOperation(ctx context.Context, sessionID, opType, summary string, metadata map[string]string) error {
	metaJSON := []byte("{}")
	if len(metadata) > 0 {
		var err error
		metaJSON, err = json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("sqlite: marshal metadata: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO operations (session_id, op_type, summary, metadata, ts)
		VALUES (?, ?, ?, ?, ?)`,
		sessionID, opType, summary, string(metaJSON), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite: record operation: %w", err)
	}
	return nil
}

// RecentOperations implements memory.Store.
func (s *Store) RecentOperations(ctx context.Context, sessionID string, limit int) ([]memory.Operation, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, op_type, summary, metadata, ts
		FROM operations
		WHERE session_id = ?
		ORDER BY id DESC
		LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: recent operations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ops, err := scanOperations(rows)
	if err != nil {
		return nil, err
	}

	slices.Reverse(ops)
	return ops, nil
}

// SearchOperations implements memory.Store.
func (s *Store) SearchOperations(ctx context.Context, sessionID, keyword string, limit int) ([]memory.Operation, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, op_type, summary, metadata, ts
		FROM operations
		WHERE session_id = ? AND instr(summary, ?) > 0
		ORDER BY id DESC
		LIMIT ?`,
		sessionID, keyword, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: search operations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanOperations(rows)
}

// PutFact implements memory.Store. Facts are append-only: a new row
// shadows earlier versions of the same key.
func (s *Store) PutFact(ctx context.Context, sessionID, key string, value any) error {
	valueJSON, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("sqlite: marshal fact value: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO facts (session_id, key, value, ts)
		VALUES (?, ?, ?, ?)`,
		sessionID, key, string(valueJSON), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite: put fact: %w", err)
	}
	return nil
}

// GetFact implements memory.Store: the highest id for the key wins.
func (s *Store) GetFact(ctx context.Context, sessionID, key string) (any, error) {
	var valueJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT value
		FROM facts
		WHERE session_id = ? AND key = ?
		ORDER BY id DESC
		LIMIT 1`,
		sessionID, key,
	).Scan(&valueJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, memory.ErrFactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get fact: %w", err)
	}

	var value any
	if err := json.Unmarshal([]byte(valueJSON), &value); err != nil {
		return nil, fmt.Errorf("sqlite: unmarshal fact value: %w", err)
	}
	return value, nil
}

func scanTurns(rows *sql.Rows) ([]memory.Turn, error) {
	var turns []memory.Turn
	for rows.Next() {
		var (
			turn  memory.Turn
			tsStr string
		)
		if err := rows.Scan(&turn.SessionID, &turn.Role, &turn.Content, &tsStr); err != nil {
			return nil, fmt.Errorf("sqlite: scan turn: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, tsStr)
		if err != nil {
			return nil, fmt.Errorf("sqlite: parse ts %q: %w", tsStr, err)
		}
		turn.Timestamp = ts
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: scan turns rows: %w", err)
	}
	return turns, nil
}

func scanOperations(rows *sql.Rows) ([]memory.Operation, error) {
	var ops []memory.Operation
	for rows.Next() {
		var (
			op       memory.Operation
			metaJSON string
			tsStr    string
		)
		if err := rows.Scan(&op.SessionID, &op.OpType, &op.Summary, &metaJSON, &tsStr); err != nil {
			return nil, fmt.Errorf("sqlite: scan operation: %w", err)
		}
		if metaJSON != "" && metaJSON != "{}" && metaJSON != "null" {
			if err := json.Unmarshal([]byte(metaJSON), &op.Metadata); err != nil {
				return nil, fmt.Errorf("sqlite: unmarshal metadata: %w", err)
			}
		}
		ts, err := time.Parse(time.RFC3339Nano, tsStr)
		if err != nil {
			return nil, fmt.Errorf("sqlite: parse ts %q: %w", tsStr, err)
		}
		op.Timestamp = ts
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: scan operations rows: %w", err)
	}
	return ops, nil
}
