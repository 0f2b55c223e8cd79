package session

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier defines the database operations the store needs. The interface is
// owned here, by the consumer, so unit tests can substitute an in-memory
// implementation.
type Querier interface {
	// UpsertSession creates the session row if absent and bumps updated_at.
	UpsertSession(ctx context.Context, sessionID string) error
	// LockSession takes the session row lock for the current transaction.
	LockSession(ctx context.Context, sessionID string) error
	// MaxSequence returns the highest sequence number in the session, or 0.
	MaxSequence(ctx context.Context, sessionID string) (int32, error)
	// InsertMessage appends one message at the given sequence number.
	InsertMessage(ctx context.Context, sessionID string, m Message, seq int32) error
	// SessionMessages returns all messages in sequence order.
	SessionMessages(ctx context.Context, sessionID string) ([]Message, error)
}

// pgxConn is the subset of pgx command methods the queries use. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so the same queries run inside and
// outside a transaction.
type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgxQuerier implements Querier against PostgreSQL.
type pgxQuerier struct {
	conn pgxConn
}

// NewQuerier wraps a pgx connection, pool, or transaction.
func NewQuerier(conn pgxConn) Querier {
	return &pgxQuerier{conn: conn}
}

func (q *pgxQuerier) UpsertSession(ctx context.Context, sessionID string) error {
	_, err := q.conn.Exec(ctx, `
		INSERT INTO chat_sessions (session_id)
		VALUES ($1)
		ON CONFLICT (session_id) DO UPDATE SET updated_at = now()`,
		sessionID)
	if err != nil {
		return fmt.Errorf("upserting session: %w", err)
	}
	return nil
}

func (q *pgxQuerier) LockSession(ctx context.Context, sessionID string) error {
	var id string
	err := q.conn.QueryRow(ctx, `
		SELECT session_id FROM chat_sessions
		WHERE session_id = $1
		FOR UPDATE`,
		sessionID).Scan(&id)
	if err != nil {
		return fmt.Errorf("locking session: %w", err)
	}
	return nil
}

func (q *pgxQuerier) MaxSequence(ctx context.Context, sessionID string) (int32, error) {
	var maxSeq int32
	err := q.conn.QueryRow(ctx, `
		SELECT COALESCE(MAX(sequence_number), 0)
		FROM chat_messages
		WHERE session_id = $1`,
		sessionID).Scan(&maxSeq)
	if err != nil {
		return 0, fmt.Errorf("reading max sequence: %w", err)
	}
	return maxSeq, nil
}

func (q *pgxQuerier) InsertMessage(ctx context.Context, sessionID string, m Message, seq int32) error {
	_, err := q.conn.Exec(ctx, `
		INSERT INTO chat_messages (session_id, sender, text, sequence_number)
		VALUES ($1, $2, $3, $4)`,
		sessionID, m.Sender, m.Text, seq)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

func (q *pgxQuerier) SessionMessages(ctx context.Context, sessionID string) ([]Message, error) {
	rows, err := q.conn.Query(ctx, `
		SELECT sender, text, created_at
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY sequence_number`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Sender, &m.Text, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading messages: %w", err)
	}
	return messages, nil
}
