// Package fastpath answers recognized query shapes deterministically,
// without invoking the language model.
//
// A resolver holds an ordered matcher chain. The first matcher that both
// recognizes the query and produces a non-empty answer wins; matchers that
// fail to extract a keyword pass the query along. A matcher that recognizes
// the query but finds no supporting data answers with NotFound rather than
// passing, so the model is never consulted for a shape the fast path owns.
package fastpath

import (
	"context"
	"log/slog"
	"strings"

	"github.com/minddojo/sales-assistant/internal/index"
)

// NotFound is the answer given when a matcher recognizes the query shape
// but the catalog holds nothing to support it.
const NotFound = "ไม่พบข้อมูล กรุณาติดต่อฝ่ายพัฒนาเพิ่มเติม"

// Searcher is the retrieval surface the lookup matchers use.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]index.Chunk, error)
}

// Matcher inspects a query and either answers it or passes.
type Matcher interface {
	// Name identifies the matcher in logs.
	Name() string
	// Resolve returns (answer, true) when the matcher handles the query,
	// including the NotFound case. (_, false) means pass to the next matcher.
	Resolve(ctx context.Context, query string) (string, bool)
}

// Config contains all required parameters for Resolver.
type Config struct {
	Searcher Searcher
	TopK     int
	Logger   *slog.Logger
}

// Resolver runs the matcher chain in fixed priority order.
type Resolver struct {
	matchers []Matcher
	logger   *slog.Logger
}

// New builds the standard chain: situation recommendations first, then
// price lookup, then listing lookup.
func New(cfg Config) *Resolver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = 4
	}
	return &Resolver{
		matchers: []Matcher{
			&recommendMatcher{},
			&priceMatcher{searcher: cfg.Searcher, topK: topK, logger: logger},
			&listingMatcher{searcher: cfg.Searcher, topK: topK, logger: logger},
		},
		logger: logger,
	}
}

// NewWithMatchers builds a resolver over an explicit chain.
func NewWithMatchers(logger *slog.Logger, matchers ...Matcher) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{matchers: matchers, logger: logger}
}

// Resolve tries each matcher in order and returns the first answer.
// (_, false) means no matcher handled the query.
func (r *Resolver) Resolve(ctx context.Context, query string) (string, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", false
	}
	for _, m := range r.matchers {
		answer, ok := m.Resolve(ctx, query)
		if !ok {
			continue
		}
		if answer == "" {
			continue
		}
		r.logger.Debug("fast path hit", "matcher", m.Name())
		return answer, true
	}
	return "", false
}
