package ui

import "sync"

// EventKind enumerates the closed set of results a sink can receive.
type EventKind string

const (
	EventPresentationReady EventKind = "presentation-ready"
	EventFullValueEval     EventKind = "full-value-evaluator"
	EventChildrenBatch     EventKind = "children-batch"
	EventTooMany           EventKind = "too-many"
	EventMessage           EventKind = "message"
	EventAlreadySorted     EventKind = "already-sorted"
	EventError             EventKind = "error"
)

// Event is one recorded sink interaction.
type Event struct {
	Kind         EventKind
	Presentation Presentation
	Expandable   bool
	Evaluator    FullValueEvaluator
	Rows         []Row
	Last         bool
	Remaining    int
	Text         string
	Icon         Icon
	Style        MessageStyle
	Link         *TreeLink
	Sorted       bool
}

// RecordingSink is a thread-safe ValueSink and CompositeSink that stores
// every interaction. Tests and the CLI walk the recorded events instead
// of a real widget.
type RecordingSink struct {
	mu       sync.Mutex
	events   []Event
	obsolete bool
	signal   chan struct{}
}

// NewRecordingSink creates an empty recording sink.
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{signal: make(chan struct{}, 1)}
}

// MarkObsolete makes IsObsolete return true from now on.
func (s *RecordingSink) MarkObsolete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.obsolete = true
}

// IsObsolete reports whether this sink was superseded.
func (s *RecordingSink) IsObsolete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.obsolete
}

// Events returns a snapshot of everything recorded so far.
func (s *RecordingSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Wait returns a channel signalled whenever a new event is recorded.
func (s *RecordingSink) Wait() <-chan struct{} {
	return s.signal
}

func (s *RecordingSink) add(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *RecordingSink) SetPresentation(p Presentation, expandable bool) {
	s.add(Event{Kind: EventPresentationReady, Presentation: p, Expandable: expandable})
}

func (s *RecordingSink) SetFullValueEvaluator(ev FullValueEvaluator) {
	s.add(Event{Kind: EventFullValueEval, Evaluator: ev})
}

func (s *RecordingSink) AddChildren(rows []Row, last bool) {
	s.add(Event{Kind: EventChildrenBatch, Rows: rows, Last: last})
}

func (s *RecordingSink) TooManyChildren(remaining int) {
	s.add(Event{Kind: EventTooMany, Remaining: remaining})
}

func (s *RecordingSink) SetMessage(text string, icon Icon, style MessageStyle, link *TreeLink) {
	s.add(Event{Kind: EventMessage, Text: text, Icon: icon, Style: style, Link: link})
}

func (s *RecordingSink) SetAlreadySorted(sorted bool) {
	s.add(Event{Kind: EventAlreadySorted, Sorted: sorted})
}

func (s *RecordingSink) SetErrorMessage(message string, link *TreeLink) {
	s.add(Event{Kind: EventError, Text: message, Link: link})
}

// ClearChildren records nothing; the recording sink keeps history so
// tests can assert on the rebuild sequence. It exists to satisfy
// RebuildSink.
func (s *RecordingSink) ClearChildren() {}
