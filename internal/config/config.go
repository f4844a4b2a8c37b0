// Package config holds the presentation-policy settings of the
// inspector. Truncation thresholds and batch sizes are UI layout policy,
// not algorithm semantics, so they are inputs here rather than constants
// in the engine.
package config

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Settings configures a loupe inspection session.
type Settings struct {
	// MaxValueLength is the display-length threshold beyond which labels
	// are truncated and get a full-value affordance.
	MaxValueLength int

	// ChildrenBatchSize is the per-expansion element limit for large
	// collections.
	ChildrenBatchSize int

	// TracePath is the SQLite command trace database, empty to disable
	// tracing.
	TracePath string
}

// Default returns the stock settings.
func Default() Settings {
	return Settings{
		MaxValueLength:    1000,
		ChildrenBatchSize: 100,
	}
}

// Load reads settings from a CUE file. Absent fields keep their
// defaults; present fields are validated.
//
// Expected shape:
//
//	maxValueLength:    1000
//	childrenBatchSize: 100
//	tracePath:         "session.db"
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(data)
	if err := v.Err(); err != nil {
		return Settings{}, fmt.Errorf("compile settings %s: %w", path, err)
	}

	s := Default()

	if err := readInt(v, "maxValueLength", &s.MaxValueLength); err != nil {
		return Settings{}, err
	}
	if err := readInt(v, "childrenBatchSize", &s.ChildrenBatchSize); err != nil {
		return Settings{}, err
	}
	if err := readString(v, "tracePath", &s.TracePath); err != nil {
		return Settings{}, err
	}

	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("settings %s: %w", path, err)
	}
	return s, nil
}

// Validate checks that the thresholds are usable.
func (s Settings) Validate() error {
	if s.MaxValueLength <= 0 {
		return fmt.Errorf("maxValueLength must be positive, got %d", s.MaxValueLength)
	}
	if s.ChildrenBatchSize <= 0 {
		return fmt.Errorf("childrenBatchSize must be positive, got %d", s.ChildrenBatchSize)
	}
	return nil
}

func readInt(v cue.Value, field string, dst *int) error {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil
	}
	n, err := fv.Int64()
	if err != nil {
		return fmt.Errorf("settings field %s: %w", field, err)
	}
	*dst = int(n)
	return nil
}

func readString(v cue.Value, field string, dst *string) error {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil
	}
	s, err := fv.String()
	if err != nil {
		return fmt.Errorf("settings field %s: %w", field, err)
	}
	*dst = s
	return nil
}
