package fastpath

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/minddojo/sales-assistant/internal/index"
)

// listingMatcher answers "what <X> are there" style questions with the
// distinct titles of matching chunks.
type listingMatcher struct {
	searcher Searcher
	topK     int
	logger   *slog.Logger
}

var listingPattern = regexp.MustCompile(`(?i)what\s+(.+?)\s+(?:are there|do you have|are available)`)

func (m *listingMatcher) Name() string { return "listing" }

func (m *listingMatcher) Resolve(ctx context.Context, query string) (string, bool) {
	match := listingPattern.FindStringSubmatch(query)
	if match == nil {
		return "", false
	}
	fragment := strings.TrimSpace(match[1])
	if fragment == "" {
		return "", false
	}

	chunks, err := m.searcher.Search(ctx, query, m.topK)
	if err != nil {
		m.logger.Warn("listing lookup retrieval failed", "error", err)
		return "", false
	}

	// Match the singular form too, so "courses" finds "Course Title" lines.
	needles := []string{strings.ToLower(fragment)}
	if singular := strings.TrimSuffix(needles[0], "s"); singular != needles[0] && singular != "" {
		needles = append(needles, singular)
	}

	var names []string
	seen := make(map[string]bool)
	for _, c := range chunks {
		if !containsAny(strings.ToLower(c.Content), needles) {
			continue
		}
		name := c.Metadata[index.MetaTitle]
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}

	if len(names) == 0 {
		return NotFound, true
	}
	return "found: " + strings.Join(names, ", "), true
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
