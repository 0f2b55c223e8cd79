// Package record provides the course/facilitator catalog backed by PostgreSQL.
//
// Records are seeded once by the seed command and read-only afterwards; the
// rest of the system only ever lists them to build the retrieval index.
package record

import "time"

// Course is a training course offered in the catalog.
type Course struct {
	ID          string
	Title       string
	Family      string
	Description string
	Type        string
	Objectives  []string
	Duration    string
	Price       string

	// FacilitatorIDs links to facilitators (many-to-many). Used for seeding.
	FacilitatorIDs []string

	// FacilitatorNames is resolved on read for rendering.
	FacilitatorNames []string

	CreatedAt time.Time
}

// Facilitator is a trainer who runs one or more courses.
type Facilitator struct {
	ID            string
	Name          string
	Nickname      string
	Expertise     []string
	TrainingStyle string

	// CourseTitles is resolved on read; back-references for rendering.
	CourseTitles []string

	CreatedAt time.Time
}
