package ast

// Item is the root AST node for a parsed assessment item.
type Item struct {
	// Metadata
	Identifier    string
	Title         string
	Label         string
	Language      string
	ToolName      string
	ToolVersion   string
	Adaptive      bool
	TimeDependent bool

	// Variables and processing
	Declarations       *Declarations
	TemplateProcessing []*Rule // Nil when the item has no templateProcessing
	ResponseProcessing []*Rule // Nil when the item has no responseProcessing
	ResponseTemplate   string  // template attribute of responseProcessing, if any

	// Content
	Stylesheets    []string
	Body           *Node // itemBody element
	ModalFeedbacks []*ModalFeedback

	// Source tracking
	SourceName string
	Location   Location
}

// HasTemplateProcessing returns true if the item declares templateProcessing.
func (it *Item) HasTemplateProcessing() bool {
	return it.TemplateProcessing != nil
}

// HasResponseProcessing returns true if the item declares responseProcessing.
func (it *Item) HasResponseProcessing() bool {
	return it.ResponseProcessing != nil
}

// ShowHide is the visibility policy of feedback content.
type ShowHide string

const (
	ShowHideShow ShowHide = "show"
	ShowHideHide ShowHide = "hide"
)

// ModalFeedback is a feedback block keyed by an outcome variable.
type ModalFeedback struct {
	OutcomeIdentifier string
	Identifier        string
	ShowHide          ShowHide
	Title             string
	Content           *Node // The modalFeedback element itself
	Location          Location
}
