package parser

import (
	"fmt"
	"io"

	"mercator-hq/itemengine/pkg/qti/ast"
	qtiErrors "mercator-hq/itemengine/pkg/qti/errors"
)

const (
	// DefaultMaxDocumentSize is the default limit on the size of an item document.
	DefaultMaxDocumentSize = 5 * 1024 * 1024

	// DefaultMaxDepth is the default limit on expression and condition nesting.
	DefaultMaxDepth = 32
)

// Parser parses QTI assessment item documents into Abstract Syntax Trees.
// It handles XML decoding, name normalization across QTI 2 and QTI 3, and
// AST construction. It never touches the filesystem: documents are supplied
// as bytes or readers by the host.
type Parser struct {
	// Configuration
	maxDocumentSize int64 // Maximum document size in bytes
	maxDepth        int   // Maximum expression/condition nesting depth
	strictMode      bool  // Strict XML and unsupported templates become errors
}

// NewParser creates a new parser with default configuration.
func NewParser() *Parser {
	return &Parser{
		maxDocumentSize: DefaultMaxDocumentSize,
		maxDepth:        DefaultMaxDepth,
		strictMode:      false,
	}
}

// WithMaxDocumentSize sets the maximum document size limit.
func (p *Parser) WithMaxDocumentSize(size int64) *Parser {
	p.maxDocumentSize = size
	return p
}

// WithMaxDepth sets the maximum expression nesting depth.
func (p *Parser) WithMaxDepth(depth int) *Parser {
	p.maxDepth = depth
	return p
}

// WithStrictMode enables strict XML decoding and rejects response processing
// templates the parser cannot expand.
func (p *Parser) WithStrictMode(strict bool) *Parser {
	p.strictMode = strict
	return p
}

// ParseBytes parses an item document held in memory.
// sourceName is only used in error locations and may be empty.
func (p *Parser) ParseBytes(data []byte, sourceName string) (*ast.Item, error) {
	if int64(len(data)) > p.maxDocumentSize {
		return nil, &qtiErrors.Error{
			Type:       qtiErrors.ErrorTypeStructural,
			Message:    fmt.Sprintf("Document size %d exceeds maximum %d bytes", len(data), p.maxDocumentSize),
			Location:   ast.Location{File: sourceName},
			Suggestion: "Raise parser.max_document_bytes if the item is legitimately this large",
		}
	}

	root, err := readTree(data, sourceName, p.strictMode)
	if err != nil {
		se := err.(*syntaxError)
		e := &qtiErrors.Error{
			Type:       qtiErrors.ErrorTypeSyntax,
			Message:    fmt.Sprintf("XML parsing failed: %s", se.msg),
			Location:   ast.Location{File: sourceName, Line: se.line, Column: se.col},
			Suggestion: "Check that every element is closed and attributes are quoted",
		}
		return nil, qtiErrors.WithContext(e, data, 2)
	}

	b := newBuilder(sourceName, p.maxDepth, p.strictMode)
	item, err := b.buildItem(root)
	if err != nil {
		if errList, ok := err.(*qtiErrors.ErrorList); ok {
			errList.AddContext(data)
		}
		return nil, err
	}

	return item, nil
}

// ParseReader reads an item document from r and parses it.
func (p *Parser) ParseReader(r io.Reader, sourceName string) (*ast.Item, error) {
	data, err := io.ReadAll(io.LimitReader(r, p.maxDocumentSize+1))
	if err != nil {
		return nil, qtiErrors.Wrap(qtiErrors.ErrorTypeSyntax, err, "Failed to read document")
	}
	return p.ParseBytes(data, sourceName)
}
