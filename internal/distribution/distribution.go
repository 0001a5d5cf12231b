// Package distribution gathers monolith records from one or more engine
// invocations into an ordered Distribution for statistical analysis.
package distribution

import (
	"github.com/seantiz/monolithium/internal/model"
)

// Distribution is an append-only sequence of records. Order is the order
// in which the engine emitted them; nothing is sorted or deduplicated.
type Distribution struct {
	records []model.Monolith
}

// New creates an empty distribution.
func New() *Distribution {
	return &Distribution{}
}

// Add appends one record.
func (d *Distribution) Add(m model.Monolith) {
	d.records = append(d.records, m)
}

// Extend appends records in order.
func (d *Distribution) Extend(ms []model.Monolith) {
	d.records = append(d.records, ms...)
}

// Len returns the number of records.
func (d *Distribution) Len() int { return len(d.records) }

// Records returns a copy of the records in emission order.
func (d *Distribution) Records() []model.Monolith {
	out := make([]model.Monolith, len(d.records))
	copy(out, d.records)
	return out
}

// Summary describes a distribution. The envelope fields bound every
// record's bounding box; they are zero for an empty distribution.
type Summary struct {
	Count     int   `json:"count"`
	Worlds    int   `json:"worlds"`
	TotalArea int64 `json:"total_area"`
	MinArea   int64 `json:"min_area"`
	MaxArea   int64 `json:"max_area"`
	MinX      int64 `json:"minx"`
	MaxX      int64 `json:"maxx"`
	MinZ      int64 `json:"minz"`
	MaxZ      int64 `json:"maxz"`
}

// MeanArea is the average record area, or 0 when there are no records.
func (s Summary) MeanArea() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.TotalArea) / float64(s.Count)
}

// Summarize computes a Summary over records.
func Summarize(records []model.Monolith) Summary {
	var s Summary
	if len(records) == 0 {
		return s
	}
	worlds := make(map[int64]struct{})
	first := records[0]
	s.MinArea, s.MaxArea = first.Area, first.Area
	s.MinX, s.MaxX, s.MinZ, s.MaxZ = first.MinX, first.MaxX, first.MinZ, first.MaxZ
	for _, m := range records {
		s.Count++
		s.TotalArea += m.Area
		s.MinArea = min(s.MinArea, m.Area)
		s.MaxArea = max(s.MaxArea, m.Area)
		s.MinX = min(s.MinX, m.MinX)
		s.MaxX = max(s.MaxX, m.MaxX)
		s.MinZ = min(s.MinZ, m.MinZ)
		s.MaxZ = max(s.MaxZ, m.MaxZ)
		worlds[m.Seed] = struct{}{}
	}
	s.Worlds = len(worlds)
	return s
}

// Summary computes a Summary of the distribution.
func (d *Distribution) Summary() Summary {
	return Summarize(d.records)
}
