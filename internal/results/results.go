// Package results extracts monolith records from the search engine's
// captured standard output.
//
// The engine prints one record per line, tagged with the literal prefix
// "json" followed by a JSON object. Every other line is a diagnostic and is
// ignored.
package results

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"github.com/seantiz/monolithium/internal/model"
)

// Prefix marks a record line.
const Prefix = "json"

// Policy decides what a malformed record line does to a parse.
type Policy int

const (
	// Strict fails the whole parse on the first malformed record.
	Strict Policy = iota
	// SkipInvalid logs malformed records and keeps going.
	SkipInvalid
)

func (p Policy) String() string {
	switch p {
	case Strict:
		return "strict"
	case SkipInvalid:
		return "skip-invalid"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// DecodeError reports a record line whose payload could not be decoded.
type DecodeError struct {
	// Line is the 1-based line number in the captured output.
	Line  int
	Text  string
	Cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode record on line %d: %v", e.Line, e.Cause)
}

func (e *DecodeError) Unwrap() error { return e.Cause }

// record mirrors model.Monolith with pointers so missing fields are detectable.
type record struct {
	Area *int64 `json:"area"`
	Seed *int64 `json:"seed"`
	MinX *int64 `json:"minx"`
	MaxX *int64 `json:"maxx"`
	MinZ *int64 `json:"minz"`
	MaxZ *int64 `json:"maxz"`
}

// Decode parses a record payload (the text after the prefix).
func Decode(payload string) (model.Monolith, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.DisallowUnknownFields()

	var r record
	if err := dec.Decode(&r); err != nil {
		return model.Monolith{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return model.Monolith{}, errors.New("unexpected data after record")
	}

	fields := []struct {
		name string
		v    *int64
	}{
		{"area", r.Area}, {"seed", r.Seed},
		{"minx", r.MinX}, {"maxx", r.MaxX},
		{"minz", r.MinZ}, {"maxz", r.MaxZ},
	}
	for _, f := range fields {
		if f.v == nil {
			return model.Monolith{}, fmt.Errorf("missing field %q", f.name)
		}
	}

	m := model.Monolith{
		Area: *r.Area,
		Seed: *r.Seed,
		MinX: *r.MinX,
		MaxX: *r.MaxX,
		MinZ: *r.MinZ,
		MaxZ: *r.MaxZ,
	}
	if err := m.Validate(); err != nil {
		return model.Monolith{}, err
	}
	return m, nil
}

// Records walks the lines of text and yields each record line decoded, in
// order. Malformed records are yielded as a *DecodeError; the caller decides
// whether to stop.
func Records(text []byte) iter.Seq2[model.Monolith, error] {
	return func(yield func(model.Monolith, error) bool) {
		n := 0
		for line := range bytes.Lines(text) {
			n++
			line = bytes.TrimRight(line, "\r\n")
			if !bytes.HasPrefix(line, []byte(Prefix)) {
				continue
			}
			m, err := Decode(string(line[len(Prefix):]))
			if err != nil {
				if !yield(model.Monolith{}, &DecodeError{Line: n, Text: string(line), Cause: err}) {
					return
				}
				continue
			}
			if !yield(m, nil) {
				return
			}
		}
	}
}

// Parse collects every record in text. Under Strict the first malformed
// record aborts the parse; under SkipInvalid it is logged and dropped.
func Parse(text []byte, policy Policy, logger *slog.Logger) ([]model.Monolith, error) {
	var out []model.Monolith
	skipped := 0
	for m, err := range Records(text) {
		if err != nil {
			if policy == Strict {
				return nil, err
			}
			var de *DecodeError
			if errors.As(err, &de) {
				logger.Warn("skipping malformed record", "line", de.Line, "error", de.Cause)
			}
			skipped++
			continue
		}
		out = append(out, m)
	}
	if skipped > 0 {
		logger.Info("parse finished with skipped records", "records", len(out), "skipped", skipped)
	}
	return out, nil
}

// Encode renders m as a record line, without a trailing newline.
func Encode(m model.Monolith) string {
	// A struct of integers always marshals.
	data, _ := json.Marshal(m)
	return Prefix + string(data)
}
