package errors

import (
	"fmt"
	"strings"
)

// ExtractContext extracts the lines surrounding loc from the in-memory
// source document, marking the error line and column.
func ExtractContext(source []byte, line, column, contextLines int) string {
	if line <= 0 || len(source) == 0 {
		return ""
	}

	lines := strings.Split(string(source), "\n")
	errorLine := line - 1
	if errorLine >= len(lines) {
		return ""
	}

	startLine := errorLine - contextLines
	endLine := errorLine + contextLines
	if startLine < 0 {
		startLine = 0
	}
	if endLine >= len(lines) {
		endLine = len(lines) - 1
	}

	var sb strings.Builder
	width := len(fmt.Sprintf("%d", endLine+1))

	for i := startLine; i <= endLine; i++ {
		prefix := "  "
		if i == errorLine {
			prefix = "->"
		}
		sb.WriteString(fmt.Sprintf("%s %*d | %s\n", prefix, width, i+1, strings.TrimRight(lines[i], "\r")))

		if i == errorLine && column > 0 {
			sb.WriteString(fmt.Sprintf("   %s | %s^\n", strings.Repeat(" ", width), strings.Repeat(" ", column-1)))
		}
	}

	return sb.String()
}

// WithContext fills err.Context from source when the error has a location.
func WithContext(err *Error, source []byte, contextLines int) *Error {
	if err.Location.IsValid() && err.Context == "" {
		err.Context = ExtractContext(source, err.Location.Line, err.Location.Column, contextLines)
	}
	return err
}

// AddContext adds two lines of context around every located error in the list.
func (el *ErrorList) AddContext(source []byte) {
	for _, err := range el.Errors {
		WithContext(err, source, 2)
	}
}
