package ast

import "fmt"

// Location represents the source position of a node in the item document.
// Items are parsed from memory, so File is a caller-supplied name and may be empty.
type Location struct {
	File   string // Document name (optional)
	Line   int    // Line number (1-based)
	Column int    // Column number (1-based)
}

// String returns a human-readable representation of the location.
// Format: "file:line:column", or "line:column" when no name was given.
func (l Location) String() string {
	if l.Line == 0 {
		return "<unknown>"
	}
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// IsValid returns true if the location carries line information.
func (l Location) IsValid() bool {
	return l.Line > 0
}
