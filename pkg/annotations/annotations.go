package annotations

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/xhad/mercury/internal/models"
	"github.com/xhad/mercury/internal/types"
)

// Label is one human judgment: a source range, a summary range, and whether
// the two are consistent.
type Label struct {
	RecordID     string `json:"record_id"`
	SampleID     int64  `json:"sample_id"`
	SummaryStart int    `json:"summary_start"`
	SummaryEnd   int    `json:"summary_end"`
	SourceStart  int    `json:"source_start"`
	SourceEnd    int    `json:"source_end"`
	Consistent   bool   `json:"consistent"`
	Annotator    string `json:"user_id"`
}

// sameJudgment ignores the record id, so the same annotator re-submitting
// the same ranges is a no-op.
func (l Label) sameJudgment(other Label) bool {
	return l.SampleID == other.SampleID &&
		l.SummaryStart == other.SummaryStart &&
		l.SummaryEnd == other.SummaryEnd &&
		l.SourceStart == other.SourceStart &&
		l.SourceEnd == other.SourceEnd &&
		l.Consistent == other.Consistent &&
		l.Annotator == other.Annotator
}

// RangeText is a labeled range resolved against its document text.
type RangeText struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// DumpEntry groups all annotations of one sample with the full texts.
type DumpEntry struct {
	Source      string      `json:"source"`
	Summary     string      `json:"summary"`
	Annotations []DumpLabel `json:"annotations"`
}

type DumpLabel struct {
	Source     RangeText `json:"source"`
	Summary    RangeText `json:"summary"`
	Consistent bool      `json:"consistent"`
	Annotator  string    `json:"annotator"`
}

// Store keeps labels in memory behind a mutex. Labels are small and written
// at human speed; durability comes from Dump.
type Store struct {
	mu     sync.Mutex
	labels []Label
}

func New() *Store {
	return &Store{}
}

// Push records a label, assigning a fresh record id when none is given.
// Duplicate judgments are dropped and the existing record returned.
func (s *Store) Push(label Label) Label {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.labels {
		if existing.sameJudgment(label) {
			return existing
		}
	}
	if label.RecordID == "" {
		label.RecordID = uuid.NewString()
	}
	s.labels = append(s.labels, label)
	return label
}

// All returns a copy of every label.
func (s *Store) All() []Label {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Label, len(s.labels))
	copy(out, s.labels)
	return out
}

// ExportUser returns the labels of one annotator.
func (s *Store) ExportUser(userID string) []Label {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Label
	for _, label := range s.labels {
		if label.Annotator == userID {
			out = append(out, label)
		}
	}
	return out
}

// Dump resolves every label against the chunk store's document texts and
// writes the grouped result as indented JSON.
func (s *Store) Dump(ctx context.Context, chunks types.ChunkStore, path string) ([]DumpEntry, error) {
	labels := s.All()

	entries := make(map[int64]*DumpEntry)
	var order []int64
	for _, label := range labels {
		entry, ok := entries[label.SampleID]
		if !ok {
			source, err := chunks.Document(ctx, label.SampleID, models.RoleSource)
			if err != nil {
				return nil, err
			}
			summary, err := chunks.Document(ctx, label.SampleID, models.RoleSummary)
			if err != nil {
				return nil, err
			}
			entry = &DumpEntry{Source: source, Summary: summary}
			entries[label.SampleID] = entry
			order = append(order, label.SampleID)
		}
		entry.Annotations = append(entry.Annotations, DumpLabel{
			Source: RangeText{
				Text:  clip(entry.Source, label.SourceStart, label.SourceEnd),
				Start: label.SourceStart,
				End:   label.SourceEnd,
			},
			Summary: RangeText{
				Text:  clip(entry.Summary, label.SummaryStart, label.SummaryEnd),
				Start: label.SummaryStart,
				End:   label.SummaryEnd,
			},
			Consistent: label.Consistent,
			Annotator:  label.Annotator,
		})
	}

	result := make([]DumpEntry, 0, len(order))
	for _, id := range order {
		result = append(result, *entries[id])
	}

	data, err := json.MarshalIndent(result, "", "    ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, err
	}
	return result, nil
}

func clip(text string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(text) {
		end = len(text)
	}
	if start > end {
		return ""
	}
	return text[start:end]
}
