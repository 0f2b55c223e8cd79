// Package chat answers sales questions over the course catalog.
//
// The engine dispatches each question through a deterministic fast path
// first; on a miss it retrieves catalog context, assembles a prompt with the
// session's history, and streams the model's answer token by token. The
// completed exchange is persisted to the session afterwards, never before.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/minddojo/sales-assistant/internal/index"
	"github.com/minddojo/sales-assistant/internal/session"
)

// ErrEmptyQuestion is returned when the question is blank after trimming.
var ErrEmptyQuestion = errors.New("question is empty")

// Resolver is the fast path consulted before the model.
type Resolver interface {
	Resolve(ctx context.Context, query string) (string, bool)
}

// Searcher retrieves catalog chunks for prompt context.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]index.Chunk, error)
}

// SessionStore reads and appends conversation history.
type SessionStore interface {
	History(ctx context.Context, sessionID string) ([]session.Message, error)
	AppendExchange(ctx context.Context, sessionID, question, answer string) error
}

// EmitFunc delivers one piece of answer text to the caller's stream.
// Returning an error means the caller is gone; the engine stops emitting.
type EmitFunc func(text string) error

// Config contains all required parameters for Engine.
type Config struct {
	Resolver  Resolver
	Searcher  Searcher
	Sessions  SessionStore
	Generator Generator

	TopK      int           // context chunks per question; default 4
	TypeDelay time.Duration // pause between fast path emissions; default 10ms
	Logger    *slog.Logger
}

func (cfg Config) validate() error {
	if cfg.Resolver == nil {
		return errors.New("resolver is required")
	}
	if cfg.Searcher == nil {
		return errors.New("searcher is required")
	}
	if cfg.Sessions == nil {
		return errors.New("session store is required")
	}
	if cfg.Generator == nil {
		return errors.New("generator is required")
	}
	return nil
}

// Engine is the streaming dispatch core. It is stateless across questions
// and safe for concurrent use.
type Engine struct {
	resolver  Resolver
	searcher  Searcher
	sessions  SessionStore
	generator Generator
	topK      int
	typeDelay time.Duration
	logger    *slog.Logger
}

// New creates an Engine from the given configuration.
func New(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = 4
	}
	typeDelay := cfg.TypeDelay
	if typeDelay <= 0 {
		typeDelay = 10 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		resolver:  cfg.Resolver,
		searcher:  cfg.Searcher,
		sessions:  cfg.Sessions,
		generator: cfg.Generator,
		topK:      topK,
		typeDelay: typeDelay,
		logger:    logger,
	}, nil
}

// Answer handles one question for the session, delivering the answer
// incrementally through emit. The exchange is appended to the session only
// after the full answer reached the caller; a generation failure or a
// disconnected caller leaves the session unchanged for this turn.
func (e *Engine) Answer(ctx context.Context, sessionID, question string, emit EmitFunc) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return ErrEmptyQuestion
	}

	if answer, ok := e.resolver.Resolve(ctx, question); ok {
		if err := e.emitTyped(ctx, answer, emit); err != nil {
			return err
		}
		e.persist(ctx, sessionID, question, answer)
		return nil
	}

	return e.generate(ctx, sessionID, question, emit)
}

// emitTyped delivers a fast path answer rune by rune with a short pause, so
// the caller sees the same typing cadence as a generated answer. The
// concatenated emissions are byte-identical to the resolved answer.
func (e *Engine) emitTyped(ctx context.Context, answer string, emit EmitFunc) error {
	for _, r := range answer {
		if err := emit(string(r)); err != nil {
			return fmt.Errorf("emitting fast path answer: %w", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.typeDelay):
		}
	}
	return nil
}

func (e *Engine) generate(ctx context.Context, sessionID, question string, emit EmitFunc) error {
	history, err := e.sessions.History(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	chunks, err := e.searcher.Search(ctx, question, e.topK)
	if err != nil {
		return fmt.Errorf("retrieving context: %w", err)
	}

	prompt := buildPrompt(question, history, chunks)

	// The generator runs as an independent producer; this goroutine drains
	// its tokens in order. The channel is unbuffered so the producer blocks
	// until each token is forwarded, and the drain loop always runs to
	// channel close so the producer is awaited even after a failed emit.
	tokens := make(chan string)
	done := make(chan error, 1)
	go func() {
		_, genErr := e.generator.Stream(ctx, systemInstruction, prompt,
			func(cbCtx context.Context, token string) error {
				select {
				case tokens <- token:
					return nil
				case <-cbCtx.Done():
					return cbCtx.Err()
				}
			})
		close(tokens)
		done <- genErr
	}()

	var answer strings.Builder
	var emitErr error
	for token := range tokens {
		answer.WriteString(token)
		if emitErr != nil {
			continue
		}
		if err := emit(token); err != nil {
			emitErr = err
			e.logger.Debug("caller gone mid-stream", "session_id", sessionID, "error", err)
		}
	}

	if genErr := <-done; genErr != nil {
		return fmt.Errorf("generating answer: %w", genErr)
	}
	if emitErr != nil {
		return fmt.Errorf("streaming answer: %w", emitErr)
	}

	e.persist(ctx, sessionID, question, answer.String())
	return nil
}

// persist appends the completed exchange. The caller already has the full
// answer at this point, so a failure only costs this turn's history and is
// logged rather than surfaced.
func (e *Engine) persist(ctx context.Context, sessionID, question, answer string) {
	if err := e.sessions.AppendExchange(ctx, sessionID, question, answer); err != nil {
		e.logger.Error("persisting exchange failed",
			"session_id", sessionID, "error", err)
	}
}
