// Package parser provides XML decoding and AST construction for QTI
// assessment items.
//
// The parser accepts both QTI 2.x element names (responseDeclaration) and
// QTI 3 names (qti-response-declaration), normalizing everything to the QTI 2
// spelling. It tolerates HTML entities and, outside strict mode, HTML-style
// void elements in vendor content. Errors are accumulated and returned as an
// *errors.ErrorList with source locations, surrounding lines and suggestions.
//
// # Basic Usage
//
//	p := parser.NewParser().WithMaxDepth(16)
//	item, err := p.ParseBytes(src, "choice.xml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Loaded item:", item.Identifier)
//	fmt.Println("Declarations:", item.Declarations.Len())
//
// Standard response processing templates (match_correct, map_response,
// map_response_point) referenced by URI are expanded into rule trees, so the
// evaluator never has to fetch them.
package parser
