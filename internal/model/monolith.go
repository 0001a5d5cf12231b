package model

import "fmt"

// Monolith is one structure found by the search engine: the world seed that
// produced it, its area and its bounding box.
type Monolith struct {
	Area int64 `json:"area"`
	Seed int64 `json:"seed"`
	MinX int64 `json:"minx"`
	MaxX int64 `json:"maxx"`
	MinZ int64 `json:"minz"`
	MaxZ int64 `json:"maxz"`
}

// Validate checks the bounding box is well formed.
func (m Monolith) Validate() error {
	if m.MinX > m.MaxX {
		return fmt.Errorf("minx %d greater than maxx %d", m.MinX, m.MaxX)
	}
	if m.MinZ > m.MaxZ {
		return fmt.Errorf("minz %d greater than maxz %d", m.MinZ, m.MaxZ)
	}
	return nil
}

// Width is the extent of the bounding box along the x axis.
func (m Monolith) Width() int64 { return m.MaxX - m.MinX }

// Depth is the extent of the bounding box along the z axis.
func (m Monolith) Depth() int64 { return m.MaxZ - m.MinZ }
