package record

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store reads and seeds the course catalog in PostgreSQL.
//
// Store is safe for concurrent use; all mutation happens through ReplaceAll,
// which runs in a single transaction.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a catalog store on the given connection pool.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// ListCourses returns every course with facilitator names resolved,
// ordered by course id for deterministic index builds.
func (s *Store) ListCourses(ctx context.Context) ([]Course, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.title, c.family, c.description, c.course_type,
		       c.objectives, c.duration, c.price, c.created_at,
		       COALESCE(array_agg(f.name ORDER BY f.id) FILTER (WHERE f.id IS NOT NULL), '{}')
		FROM courses c
		LEFT JOIN course_facilitators cf ON cf.course_id = c.id
		LEFT JOIN facilitators f ON f.id = cf.facilitator_id
		GROUP BY c.id
		ORDER BY c.id`)
	if err != nil {
		return nil, fmt.Errorf("listing courses: %w", err)
	}
	defer rows.Close()

	var courses []Course
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Family, &c.Description, &c.Type,
			&c.Objectives, &c.Duration, &c.Price, &c.CreatedAt, &c.FacilitatorNames); err != nil {
			return nil, fmt.Errorf("scanning course row: %w", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating course rows: %w", err)
	}

	s.logger.Debug("listed courses", "count", len(courses))
	return courses, nil
}

// ListFacilitators returns every facilitator with course-title back-references,
// ordered by facilitator id.
func (s *Store) ListFacilitators(ctx context.Context) ([]Facilitator, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT f.id, f.name, f.nickname, f.expertise, f.training_style, f.created_at,
		       COALESCE(array_agg(c.title ORDER BY c.id) FILTER (WHERE c.id IS NOT NULL), '{}')
		FROM facilitators f
		LEFT JOIN course_facilitators cf ON cf.facilitator_id = f.id
		LEFT JOIN courses c ON c.id = cf.course_id
		GROUP BY f.id
		ORDER BY f.id`)
	if err != nil {
		return nil, fmt.Errorf("listing facilitators: %w", err)
	}
	defer rows.Close()

	var facilitators []Facilitator
	for rows.Next() {
		var f Facilitator
		if err := rows.Scan(&f.ID, &f.Name, &f.Nickname, &f.Expertise,
			&f.TrainingStyle, &f.CreatedAt, &f.CourseTitles); err != nil {
			return nil, fmt.Errorf("scanning facilitator row: %w", err)
		}
		facilitators = append(facilitators, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating facilitator rows: %w", err)
	}

	s.logger.Debug("listed facilitators", "count", len(facilitators))
	return facilitators, nil
}

// ReplaceAll wipes the catalog and inserts the given records in one
// transaction. Used by the seed command; either everything lands or nothing
// does.
func (s *Store) ReplaceAll(ctx context.Context, courses []Course, facilitators []Facilitator) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning seed transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
			s.logger.Debug("seed transaction rollback", "error", err)
		}
	}()

	for _, table := range []string{"course_facilitators", "courses", "facilitators"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	for _, f := range facilitators {
		if _, err := tx.Exec(ctx, `
			INSERT INTO facilitators (id, name, nickname, expertise, training_style)
			VALUES ($1, $2, $3, $4, $5)`,
			f.ID, f.Name, f.Nickname, f.Expertise, f.TrainingStyle); err != nil {
			return fmt.Errorf("inserting facilitator %q: %w", f.ID, err)
		}
	}

	for _, c := range courses {
		if _, err := tx.Exec(ctx, `
			INSERT INTO courses (id, title, family, description, course_type, objectives, duration, price)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID, c.Title, c.Family, c.Description, c.Type, c.Objectives, c.Duration, c.Price); err != nil {
			return fmt.Errorf("inserting course %q: %w", c.ID, err)
		}
		for _, fid := range c.FacilitatorIDs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO course_facilitators (course_id, facilitator_id)
				VALUES ($1, $2)`, c.ID, fid); err != nil {
				return fmt.Errorf("linking course %q to facilitator %q: %w", c.ID, fid, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing seed transaction: %w", err)
	}

	s.logger.Info("catalog seeded", "courses", len(courses), "facilitators", len(facilitators))
	return nil
}
