package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/gofrs/flock"
	chromem "github.com/philippgille/chromem-go"

	"github.com/minddojo/sales-assistant/internal/record"
)

// CollectionName is the chromem collection holding the catalog chunks.
const CollectionName = "minddojo-courses"

// RecordSource lists the catalog records the index is built from.
// *record.Store satisfies this; tests substitute fakes.
type RecordSource interface {
	ListCourses(ctx context.Context) ([]record.Course, error)
	ListFacilitators(ctx context.Context) ([]record.Facilitator, error)
}

// ErrEmptyCatalog is returned when a build finds no records to index.
// Starting with an unseeded database is a deployment mistake, not a
// degraded mode.
var ErrEmptyCatalog = errors.New("catalog is empty, run seed first")

// BuilderConfig contains all required parameters for Builder.
type BuilderConfig struct {
	Source       RecordSource
	Embedding    chromem.EmbeddingFunc
	Path         string // index artifact directory
	ChunkSize    int    // maximum chunk length in runes
	ChunkOverlap int    // overlap between adjacent chunks in runes
	Logger       *slog.Logger
}

func (cfg BuilderConfig) validate() error {
	if cfg.Source == nil {
		return errors.New("record source is required")
	}
	if cfg.Embedding == nil {
		return errors.New("embedding func is required")
	}
	if cfg.Path == "" {
		return errors.New("index path is required")
	}
	return nil
}

// Builder builds or loads the persisted semantic index.
type Builder struct {
	source       RecordSource
	embedding    chromem.EmbeddingFunc
	path         string
	chunkSize    int
	chunkOverlap int
	logger       *slog.Logger
}

// NewBuilder creates a Builder from the given configuration.
func NewBuilder(cfg BuilderConfig) (*Builder, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		source:       cfg.Source,
		embedding:    cfg.Embedding,
		path:         cfg.Path,
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		logger:       logger,
	}, nil
}

// BuildOrLoad opens the persisted index, returning it untouched when it is
// already populated. Otherwise it reads the catalog, renders and embeds every
// record, and persists the result before returning.
//
// A populated artifact is trusted as up to date; there is no staleness check.
// The build itself runs under a file lock so two processes pointed at the
// same artifact cannot build concurrently.
func (b *Builder) BuildOrLoad(ctx context.Context) (*Retriever, error) {
	db, err := chromem.NewPersistentDB(b.path, false)
	if err != nil {
		return nil, fmt.Errorf("opening index at %s: %w", b.path, err)
	}

	collection, err := db.GetOrCreateCollection(CollectionName, nil, b.embedding)
	if err != nil {
		return nil, fmt.Errorf("opening collection %s: %w", CollectionName, err)
	}

	if collection.Count() > 0 {
		b.logger.Info("loaded persisted index", "path", b.path, "chunks", collection.Count())
		return NewRetriever(collection, b.logger), nil
	}

	lock := flock.New(b.path + ".lock")
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("locking index build: %w", err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			b.logger.Warn("failed to release index build lock", "error", err)
		}
	}()

	// Another process may have finished the build while we waited.
	if collection.Count() > 0 {
		b.logger.Info("index built by concurrent process", "chunks", collection.Count())
		return NewRetriever(collection, b.logger), nil
	}

	if err := b.build(ctx, collection); err != nil {
		return nil, err
	}

	return NewRetriever(collection, b.logger), nil
}

// build reads the catalog and indexes it. Any failure aborts with no partial
// artifact trusted on the next start: chromem persists per document, but the
// caller treats a build error as startup-fatal, and the next start resumes
// into the same collection before any search is served.
func (b *Builder) build(ctx context.Context, collection *chromem.Collection) error {
	courses, err := b.source.ListCourses(ctx)
	if err != nil {
		return fmt.Errorf("loading courses: %w", err)
	}
	facilitators, err := b.source.ListFacilitators(ctx)
	if err != nil {
		return fmt.Errorf("loading facilitators: %w", err)
	}

	var chunks []Chunk
	for _, c := range courses {
		chunks = append(chunks, chunkCourse(c, b.chunkSize, b.chunkOverlap)...)
	}
	for _, f := range facilitators {
		chunks = append(chunks, chunkFacilitator(f, b.chunkSize, b.chunkOverlap)...)
	}

	if len(chunks) == 0 {
		return ErrEmptyCatalog
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for _, c := range chunks {
		docs = append(docs, chromem.Document{
			ID:       c.ID,
			Content:  c.Content,
			Metadata: c.Metadata,
		})
	}

	if err := collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("indexing %d chunks: %w", len(docs), err)
	}

	b.logger.Info("index built",
		"path", b.path,
		"courses", len(courses),
		"facilitators", len(facilitators),
		"chunks", len(chunks),
	)
	return nil
}
