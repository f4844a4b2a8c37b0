package bridge

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Entry is one value in a process snapshot.
type Entry struct {
	Descriptor Descriptor

	// Text is the display text for scalar and string values.
	Text string

	// Members lists child refs for objects and (optionally) arrays.
	Members []ValueRef

	// ElementPrefix synthesizes array elements "prefix-<index>" when
	// Members is empty; lets fixtures declare huge arrays compactly.
	ElementPrefix string

	// Referrers lists refs of objects referencing this value.
	Referrers []ValueRef
}

// Snapshot is an in-memory Bridge over a frozen picture of a paused
// process. Tests and the inspect CLI command use it in place of a real
// wire connection.
type Snapshot struct {
	mu     sync.RWMutex
	values map[ValueRef]*Entry
	roots  []ValueRef
	caps   map[Capability]bool
	reads  atomic.Int64
}

// New creates an empty snapshot.
func New() *Snapshot {
	return &Snapshot{
		values: make(map[ValueRef]*Entry),
		caps:   make(map[Capability]bool),
	}
}

// Add registers a value under its descriptor's ref.
func (s *Snapshot) Add(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := e
	s.values[e.Descriptor.Ref] = &entry
}

// SetRoots declares the top-level values of the snapshot.
func (s *Snapshot) SetRoots(refs ...ValueRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roots = refs
}

// EnableCapability turns on an optional introspection feature.
func (s *Snapshot) EnableCapability(c Capability) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caps[c] = true
}

// Roots returns descriptors for the snapshot's top-level values.
func (s *Snapshot) Roots() []Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Descriptor, 0, len(s.roots))
	for _, ref := range s.roots {
		if e, ok := s.values[ref]; ok {
			out = append(out, e.Descriptor)
		}
	}
	return out
}

// Reads returns the number of ReadValue round trips served. Tests use
// it to assert fetch deduplication.
func (s *Snapshot) Reads() int64 {
	return s.reads.Load()
}

func (s *Snapshot) entry(ref ValueRef) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.values[ref]
	if !ok {
		return nil, fmt.Errorf("snapshot: unknown value ref %q", ref)
	}
	return e, nil
}

// ReadValue implements Bridge.
func (s *Snapshot) ReadValue(ctx context.Context, d Descriptor) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.reads.Add(1)
	e, err := s.entry(d.Ref)
	if err != nil {
		// Synthesized array elements have no stored entry; their display
		// text travels on the descriptor.
		if d.Text != "" {
			return d.Text, nil
		}
		return "", err
	}
	return e.Text, nil
}

// EnumerateMembers implements Bridge.
func (s *Snapshot) EnumerateMembers(ctx context.Context, ref ValueRef, offset, count int) ([]Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, err := s.entry(ref)
	if err != nil {
		return nil, err
	}

	if len(e.Members) == 0 && e.Descriptor.Kind == KindArray && e.Descriptor.Length > 0 {
		return s.synthesizeElements(e, offset, count), nil
	}

	members := e.Members
	if offset < 0 {
		offset = 0
	}
	if offset >= len(members) {
		return nil, nil
	}
	members = members[offset:]
	if count >= 0 && count < len(members) {
		members = members[:count]
	}

	out := make([]Descriptor, 0, len(members))
	for _, m := range members {
		me, err := s.entry(m)
		if err != nil {
			return nil, err
		}
		out = append(out, me.Descriptor)
	}
	return out, nil
}

// synthesizeElements fabricates element descriptors for declaratively
// sized arrays.
func (s *Snapshot) synthesizeElements(e *Entry, offset, count int) []Descriptor {
	length := e.Descriptor.Length
	if offset < 0 {
		offset = 0
	}
	if offset > length {
		offset = length
	}
	end := length
	if count >= 0 && offset+count < end {
		end = offset + count
	}

	prefix := e.ElementPrefix
	if prefix == "" {
		prefix = "elem"
	}
	out := make([]Descriptor, 0, end-offset)
	for i := offset; i < end; i++ {
		out = append(out, Descriptor{
			Name:         fmt.Sprintf("[%d]", i),
			Ref:          ValueRef(fmt.Sprintf("%s#%d", e.Descriptor.Ref, i)),
			TypeName:     "int",
			Kind:         KindPrimitive,
			Length:       -1,
			EvalTemplate: fmt.Sprintf("{parent}[%d]", i),
			Language:     e.Descriptor.Language,
			Text:         fmt.Sprintf("%s-%d", prefix, i),
		})
	}
	return out
}

// HasCapability implements Bridge.
func (s *Snapshot) HasCapability(c Capability) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.caps[c]
}

// ReferringObjects implements Bridge.
func (s *Snapshot) ReferringObjects(ctx context.Context, ref ValueRef, limit int) ([]Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, err := s.entry(ref)
	if err != nil {
		return nil, err
	}
	refs := e.Referrers
	if limit >= 0 && limit < len(refs) {
		refs = refs[:limit]
	}
	out := make([]Descriptor, 0, len(refs))
	for _, r := range refs {
		re, err := s.entry(r)
		if err != nil {
			return nil, err
		}
		out = append(out, re.Descriptor)
	}
	return out, nil
}

// SetValue implements Bridge by rewriting the entry's text.
func (s *Snapshot) SetValue(ctx context.Context, ref ValueRef, expression string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.values[ref]
	if !ok {
		return fmt.Errorf("snapshot: unknown value ref %q", ref)
	}
	if !e.Descriptor.CanSetValue {
		return fmt.Errorf("snapshot: value %q is read-only", ref)
	}
	e.Text = expression
	return nil
}

// snapshotFile is the YAML shape for snapshot fixtures.
type snapshotFile struct {
	Capabilities []string                     `yaml:"capabilities"`
	Roots        []string                     `yaml:"roots"`
	Values       map[string]snapshotFileValue `yaml:"values"`
}

type snapshotFileValue struct {
	Name          string   `yaml:"name"`
	Type          string   `yaml:"type"`
	Kind          string   `yaml:"kind"`
	Text          string   `yaml:"text"`
	Length        *int     `yaml:"length"`
	Members       []string `yaml:"members"`
	ElementPrefix string   `yaml:"elementPrefix"`
	Referrers     []string `yaml:"referrers"`
	OnDemand      bool     `yaml:"onDemand"`
	CanSet        bool     `yaml:"canSet"`
	Eval          string   `yaml:"eval"`
	Language      string   `yaml:"language"`
	Imports       []string `yaml:"imports"`
}

// LoadSnapshot reads a snapshot fixture from a YAML file.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var file snapshotFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", path, err)
	}

	s := New()
	for _, c := range file.Capabilities {
		s.EnableCapability(Capability(c))
	}

	// Deterministic insertion order keeps error messages stable.
	refs := make([]string, 0, len(file.Values))
	for ref := range file.Values {
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	for _, ref := range refs {
		v := file.Values[ref]
		kind := ValueKind(v.Kind)
		if kind == "" {
			kind = KindObject
		}
		length := -1
		if v.Length != nil {
			length = *v.Length
		} else if kind == KindArray {
			length = len(v.Members)
		}

		members := make([]ValueRef, len(v.Members))
		for i, m := range v.Members {
			members[i] = ValueRef(m)
		}
		referrers := make([]ValueRef, len(v.Referrers))
		for i, r := range v.Referrers {
			referrers[i] = ValueRef(r)
		}

		messageText := ""
		if kind == KindMessage {
			messageText = v.Text
		}

		s.Add(Entry{
			Descriptor: Descriptor{
				Name:         v.Name,
				Ref:          ValueRef(ref),
				TypeName:     v.Type,
				Kind:         kind,
				Length:       length,
				Text:         messageText,
				OnDemand:     v.OnDemand,
				CanSetValue:  v.CanSet,
				EvalTemplate: v.Eval,
				Language:     v.Language,
				Imports:      v.Imports,
			},
			Text:          v.Text,
			Members:       members,
			ElementPrefix: v.ElementPrefix,
			Referrers:     referrers,
		})
	}

	roots := make([]ValueRef, len(file.Roots))
	for i, r := range file.Roots {
		roots[i] = ValueRef(r)
	}
	s.SetRoots(roots...)

	return s, nil
}
