package index

import (
	"context"
	"fmt"
	"log/slog"

	chromem "github.com/philippgille/chromem-go"
)

// Retriever serves similarity searches against a populated collection.
type Retriever struct {
	collection *chromem.Collection
	logger     *slog.Logger
}

// NewRetriever wraps an opened collection.
func NewRetriever(collection *chromem.Collection, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{collection: collection, logger: logger}
}

// Count reports how many chunks the index holds.
func (r *Retriever) Count() int {
	return r.collection.Count()
}

// Search returns up to k chunks most similar to the query, highest
// similarity first. k is clamped to the collection size; a request against
// an empty collection returns no results without error.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]Chunk, error) {
	if query == "" {
		return nil, nil
	}
	if k <= 0 {
		return nil, nil
	}
	count := r.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := r.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}

	chunks := make([]Chunk, 0, len(results))
	for _, res := range results {
		chunks = append(chunks, Chunk{
			ID:         res.ID,
			Content:    res.Content,
			Metadata:   res.Metadata,
			Similarity: res.Similarity,
		})
	}
	return chunks, nil
}
