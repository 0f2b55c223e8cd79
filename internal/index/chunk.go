// Package index builds and queries the persisted semantic index over the
// course catalog.
//
// The index is a chromem collection persisted under a single directory
// (Config.IndexPath). Once built it is trusted as-is on later startups: the
// builder never re-reads the catalog when a populated index exists on disk.
// Re-seeding the catalog removes the artifact so the next start rebuilds.
package index

import (
	"fmt"
	"strings"

	"github.com/minddojo/sales-assistant/internal/record"
)

// Chunk type discriminators stored in chunk metadata.
const (
	TypeCourse      = "course"
	TypeFacilitator = "facilitator"
)

// Metadata keys carried by every chunk.
const (
	MetaType     = "type"
	MetaRecordID = "record_id"
	MetaTitle    = "title"
)

// Chunk is one unit of retrievable text plus its metadata.
// Chunks are created at build time and immutable afterwards.
type Chunk struct {
	ID         string
	Content    string
	Metadata   map[string]string
	Similarity float32 // populated on search results only
}

// Type returns the chunk's type discriminator ("course" or "facilitator").
func (c Chunk) Type() string {
	return c.Metadata[MetaType]
}

// renderCourse flattens a course into the labelled text block that gets
// embedded. The labels are load-bearing: the fast-path handlers parse them
// back out, and the system instruction tells the model to quote them.
func renderCourse(c record.Course) string {
	var b strings.Builder
	b.WriteString("[COURSE DATA]\n")
	fmt.Fprintf(&b, "Course Title (EN): %s\n", c.Title)
	fmt.Fprintf(&b, "Description (TH): %s\n", c.Description)
	fmt.Fprintf(&b, "Objectives (TH): %s\n", strings.Join(c.Objectives, "; "))
	fmt.Fprintf(&b, "Duration: %s\n", c.Duration)
	fmt.Fprintf(&b, "Price: %s\n", c.Price)
	fmt.Fprintf(&b, "Facilitators: %s\n", joinOrNone(c.FacilitatorNames))
	return b.String()
}

// renderFacilitator flattens a facilitator the same way, with back-references
// to the courses they run.
func renderFacilitator(f record.Facilitator) string {
	var b strings.Builder
	b.WriteString("[FACILITATOR DATA]\n")
	fmt.Fprintf(&b, "Name: %s\n", f.Name)
	fmt.Fprintf(&b, "Nickname: %s\n", f.Nickname)
	fmt.Fprintf(&b, "Expertise: %s\n", strings.Join(f.Expertise, ", "))
	fmt.Fprintf(&b, "Training Style: %s\n", f.TrainingStyle)
	fmt.Fprintf(&b, "Courses: %s\n", joinOrNone(f.CourseTitles))
	return b.String()
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "None"
	}
	return strings.Join(names, ", ")
}

// splitContent splits text into rune-bounded pieces of at most maxLen with
// overlap runes shared between adjacent pieces, so a field split across a
// boundary still appears whole in one of them. Content within maxLen is
// returned as a single piece.
func splitContent(text string, maxLen, overlap int) []string {
	runes := []rune(text)
	if maxLen <= 0 || len(runes) <= maxLen {
		return []string{text}
	}
	if overlap < 0 || overlap >= maxLen {
		overlap = 0
	}

	var pieces []string
	step := maxLen - overlap
	for start := 0; start < len(runes); start += step {
		end := start + maxLen
		if end >= len(runes) {
			pieces = append(pieces, string(runes[start:]))
			break
		}
		pieces = append(pieces, string(runes[start:end]))
	}
	return pieces
}

// chunkCourse renders a course and splits it into one or more chunks.
func chunkCourse(c record.Course, maxLen, overlap int) []Chunk {
	return buildChunks(c.ID, c.Title, TypeCourse, renderCourse(c), maxLen, overlap)
}

// chunkFacilitator renders a facilitator and splits it into one or more chunks.
func chunkFacilitator(f record.Facilitator, maxLen, overlap int) []Chunk {
	return buildChunks(f.ID, f.Name, TypeFacilitator, renderFacilitator(f), maxLen, overlap)
}

func buildChunks(recordID, title, chunkType, content string, maxLen, overlap int) []Chunk {
	pieces := splitContent(content, maxLen, overlap)
	chunks := make([]Chunk, 0, len(pieces))
	for i, piece := range pieces {
		id := recordID
		if len(pieces) > 1 {
			id = fmt.Sprintf("%s:%d", recordID, i)
		}
		chunks = append(chunks, Chunk{
			ID:      id,
			Content: piece,
			Metadata: map[string]string{
				MetaType:     chunkType,
				MetaRecordID: recordID,
				MetaTitle:    title,
			},
		})
	}
	return chunks
}
