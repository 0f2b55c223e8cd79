// Package session persists per-session conversation history in PostgreSQL.
//
// Sessions are identified by opaque string identifiers chosen by the caller
// and created lazily on first write. Messages are append-only and totally
// ordered by a per-session sequence number; a completed turn always appends
// the user question and the assistant answer as one atomic pair.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store reads and writes conversation history.
//
// Store is safe for concurrent use. Concurrent appends to the same session
// are serialized by a row lock inside the append transaction; across
// requests there is no further ordering guarantee.
type Store struct {
	querier Querier
	pool    *pgxpool.Pool // nil in unit tests; appends then skip the transaction
	logger  *slog.Logger
}

// New creates a Store. Production callers pass NewQuerier(pool) and the pool;
// tests may pass a fake Querier and a nil pool.
func New(querier Querier, pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{querier: querier, pool: pool, logger: logger}
}

// History returns the session's messages in chronological order. An unknown
// session yields an empty history, never an error.
func (s *Store) History(ctx context.Context, sessionID string) ([]Message, error) {
	messages, err := s.querier.SessionMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading history for session %s: %w", sessionID, err)
	}

	// Turns are appended in pairs, so an odd count means a previous append
	// was interrupted partway.
	if len(messages)%2 != 0 {
		s.logger.Warn("session has odd message count",
			"session_id", sessionID, "count", len(messages))
	}
	return messages, nil
}

// AppendExchange appends one completed turn, the user question followed by
// the assistant answer, creating the session if it does not exist. Both
// messages land or neither does.
func (s *Store) AppendExchange(ctx context.Context, sessionID, question, answer string) error {
	now := time.Now().UTC()
	pair := []Message{
		{Sender: SenderUser, Text: question, Timestamp: now},
		{Sender: SenderAssistant, Text: answer, Timestamp: now},
	}

	if s.pool == nil {
		return s.appendNonTransactional(ctx, sessionID, pair)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning append transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil {
			s.logger.Debug("rollback after append", "error", err)
		}
	}()

	q := NewQuerier(tx)
	if err := q.UpsertSession(ctx, sessionID); err != nil {
		return err
	}
	// The row lock serializes concurrent appends so sequence numbers never
	// collide.
	if err := q.LockSession(ctx, sessionID); err != nil {
		return err
	}
	if err := appendPair(ctx, q, sessionID, pair); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing append: %w", err)
	}

	s.logger.Debug("appended exchange", "session_id", sessionID)
	return nil
}

func (s *Store) appendNonTransactional(ctx context.Context, sessionID string, pair []Message) error {
	if err := s.querier.UpsertSession(ctx, sessionID); err != nil {
		return err
	}
	return appendPair(ctx, s.querier, sessionID, pair)
}

func appendPair(ctx context.Context, q Querier, sessionID string, pair []Message) error {
	maxSeq, err := q.MaxSequence(ctx, sessionID)
	if err != nil {
		return err
	}
	for i, m := range pair {
		if err := q.InsertMessage(ctx, sessionID, m, maxSeq+int32(i)+1); err != nil {
			return err
		}
	}
	return nil
}
