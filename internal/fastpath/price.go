package fastpath

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// priceMatcher answers "<course> ราคาเท่าไหร่" style questions by pulling
// the price field out of retrieved course chunks.
type priceMatcher struct {
	searcher Searcher
	topK     int
	logger   *slog.Logger
}

// The course name is whatever precedes the price phrase.
var pricePattern = regexp.MustCompile(`(?i)^\s*(.*?)\s*(?:มีราคา|ราคา|price|how much|what is)`)

var (
	titleField = regexp.MustCompile(`(?m)^Course Title \(EN\):\s*(.+)$`)
	priceField = regexp.MustCompile(`(?m)^Price:\s*(.+)$`)

	amountPattern   = regexp.MustCompile(`\d[\d,\s]*\d|\d`)
	currencyPattern = regexp.MustCompile(`(?i)THB|บาท|baht|USD`)
)

func (m *priceMatcher) Name() string { return "price" }

func (m *priceMatcher) Resolve(ctx context.Context, query string) (string, bool) {
	match := pricePattern.FindStringSubmatch(query)
	if match == nil {
		return "", false
	}
	fragment := strings.TrimSpace(match[1])
	if fragment == "" {
		return "", false
	}

	chunks, err := m.searcher.Search(ctx, query, m.topK)
	if err != nil {
		m.logger.Warn("price lookup retrieval failed", "error", err)
		return "", false
	}

	var lines []string
	for _, c := range chunks {
		if !strings.Contains(strings.ToLower(c.Content), strings.ToLower(fragment)) {
			continue
		}
		title := firstSubmatch(titleField, c.Content)
		price := firstSubmatch(priceField, c.Content)
		if title == "" || price == "" {
			continue
		}
		lines = append(lines, formatPriceLine(title, price))
	}

	if len(lines) == 0 {
		return NotFound, true
	}
	return strings.Join(lines, "\n"), true
}

// formatPriceLine renders "Title: amount currency" when the price field
// carries a number, or the raw field (e.g. "ติดต่อฝ่ายขาย") when it does not.
func formatPriceLine(title, price string) string {
	amount := amountPattern.FindString(price)
	if amount == "" {
		return fmt.Sprintf("%s: %s", title, price)
	}
	amount = strings.Map(func(r rune) rune {
		if r == ' ' {
			return -1
		}
		return r
	}, amount)
	currency := currencyPattern.FindString(price)
	if currency == "" {
		return fmt.Sprintf("%s: %s", title, amount)
	}
	return fmt.Sprintf("%s: %s %s", title, amount, currency)
}

func firstSubmatch(re *regexp.Regexp, text string) string {
	match := re.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	return strings.TrimSpace(match[1])
}
