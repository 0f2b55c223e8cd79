package record

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

//go:embed catalog.json
var defaultCatalog []byte

// fixtureCourse mirrors the catalog fixture's JSON shape.
type fixtureCourse struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Family         string   `json:"family"`
	Description    string   `json:"description"`
	Type           string   `json:"type"`
	Objectives     []string `json:"objectives"`
	Duration       string   `json:"duration"`
	Price          string   `json:"price"`
	FacilitatorIDs []string `json:"facilitator_ids"`
}

type fixtureFacilitator struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Nickname      string   `json:"nickname"`
	Expertise     []string `json:"expertise"`
	TrainingStyle []string `json:"training_style"`
}

type fixture struct {
	Courses      []fixtureCourse      `json:"courses"`
	Facilitators []fixtureFacilitator `json:"facilitators"`
}

// DefaultFixture returns the catalog bundled with the binary.
func DefaultFixture() ([]Course, []Facilitator, error) {
	return LoadFixture(bytes.NewReader(defaultCatalog))
}

// LoadFixture parses a catalog fixture. Facilitator references are checked
// so a typo in the fixture fails the seed instead of breaking rendering
// later.
func LoadFixture(r io.Reader) ([]Course, []Facilitator, error) {
	var fx fixture
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fx); err != nil {
		return nil, nil, fmt.Errorf("parsing catalog fixture: %w", err)
	}

	known := make(map[string]bool, len(fx.Facilitators))
	facilitators := make([]Facilitator, 0, len(fx.Facilitators))
	for _, f := range fx.Facilitators {
		if f.ID == "" || f.Name == "" {
			return nil, nil, fmt.Errorf("facilitator %q: id and name are required", f.ID)
		}
		known[f.ID] = true
		facilitators = append(facilitators, Facilitator{
			ID:            f.ID,
			Name:          f.Name,
			Nickname:      f.Nickname,
			Expertise:     f.Expertise,
			TrainingStyle: strings.Join(f.TrainingStyle, ", "),
		})
	}

	courses := make([]Course, 0, len(fx.Courses))
	for _, c := range fx.Courses {
		if c.ID == "" || c.Title == "" {
			return nil, nil, fmt.Errorf("course %q: id and title are required", c.ID)
		}
		var ids []string
		for _, fid := range c.FacilitatorIDs {
			if fid == "" {
				continue
			}
			if !known[fid] {
				return nil, nil, fmt.Errorf("course %q references unknown facilitator %q", c.ID, fid)
			}
			ids = append(ids, fid)
		}
		courses = append(courses, Course{
			ID:             c.ID,
			Title:          c.Title,
			Family:         c.Family,
			Description:    c.Description,
			Type:           c.Type,
			Objectives:     c.Objectives,
			Duration:       c.Duration,
			Price:          c.Price,
			FacilitatorIDs: ids,
		})
	}

	return courses, facilitators, nil
}
