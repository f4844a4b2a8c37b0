package ui

// Icon identifies the glyph shown next to a tree row. The engine only
// picks icons; drawing them is the widget's business.
type Icon string

const (
	IconValue     Icon = "value"
	IconPrimitive Icon = "primitive"
	IconArray     Icon = "array"
	IconObject    Icon = "object"
	IconWatch     Icon = "watch"
	IconMessage   Icon = "message"
	IconError     Icon = "error"
)

// PresentationKind distinguishes regular and error presentations.
type PresentationKind string

const (
	KindRegular PresentationKind = "regular"
	KindError   PresentationKind = "error"
)

// Presentation is the computed label for one value row.
type Presentation struct {
	Icon Icon
	Text string
	// TypeHint is the runtime type name, shown dimmed after the text.
	TypeHint string
	Kind     PresentationKind
}

// NewErrorPresentation builds a terminal error presentation.
func NewErrorPresentation(text string) Presentation {
	return Presentation{Icon: IconError, Text: text, Kind: KindError}
}

// MessageStyle selects rendering attributes for informational rows.
type MessageStyle string

const (
	StyleInfo  MessageStyle = "info"
	StyleError MessageStyle = "error"
)

// TreeLink is an optional hyperlink attached to a message or error row.
type TreeLink struct {
	Text   string
	Target string
}

// FullValueCallback receives the result of an on-demand full-value fetch.
type FullValueCallback interface {
	Evaluated(fullText string)
	ErrorOccurred(message string)
	IsObsolete() bool
}

// FullValueEvaluator is the "show more" affordance attached to a
// presentation whose text was truncated, or supplied directly by a
// renderer.
type FullValueEvaluator interface {
	// LinkText is the affordance label ("View", "Evaluate", ...).
	LinkText() string
	// StartEvaluation begins the secondary fetch. Non-blocking; the
	// result arrives on the callback.
	StartEvaluation(cb FullValueCallback)
}

// Value is one inspectable runtime value as the tree widget sees it.
// Implemented by valuetree.Node.
type Value interface {
	Name() string
	ComputePresentation(sink ValueSink)
	ComputeChildren(sink CompositeSink)
}

// Row is one entry in a children batch: either a child value or a plain
// informational message leaf.
type Row struct {
	Name    string
	Value   Value
	Message *MessageRow
}

// MessageRow is a non-interactive informational leaf.
type MessageRow struct {
	Text string
	Icon Icon
}

// ValueSink consumes presentation results for a single tree node.
//
// IsObsolete is queried by the engine immediately before applying
// results; a node superseded by newer activity reports true and its
// in-flight results are silently dropped.
type ValueSink interface {
	SetPresentation(p Presentation, expandable bool)
	SetFullValueEvaluator(ev FullValueEvaluator)
	SetErrorMessage(message string, link *TreeLink)
	IsObsolete() bool
}

// CompositeSink consumes children results for a single tree node.
type CompositeSink interface {
	AddChildren(rows []Row, last bool)
	TooManyChildren(remaining int)
	SetMessage(text string, icon Icon, style MessageStyle, link *TreeLink)
	SetAlreadySorted(sorted bool)
	SetErrorMessage(message string, link *TreeLink)
	IsObsolete() bool
}

// RebuildSink is a ValueSink that can also drop its children subtree,
// used when the node's renderer changes and the row must be rebuilt.
type RebuildSink interface {
	ValueSink
	ClearChildren()
}
