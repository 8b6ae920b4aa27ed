// Package ast provides the Abstract Syntax Tree (AST) definitions for QTI
// assessment items.
//
// The AST is produced once by the parser and is immutable afterwards, so a
// single parsed item can be shared read-only by any number of sessions. All
// nodes preserve source location information for precise error reporting.
//
// # Core Types
//
// Item: Root node holding metadata, declarations, processing rules, the item
// body and modal feedback
//
// Declarations: Ordered, indexed response/outcome/template declarations,
// always including the built-ins numAttempts, duration and completionStatus
//
// Rule: Template or response processing statement (setter, condition, exit)
//
// Expr: Expression tree node tagged with a closed Operator enum
//
// Node: Item body markup (elements and text)
//
// Location: Source location (name, line, column)
//
// # Basic Usage
//
//	item, err := parser.NewParser().ParseBytes(src, "choice.xml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, decl := range item.Declarations.ByKind(ast.KindResponse) {
//	    fmt.Println(decl.Identifier, decl.Cardinality, decl.BaseType)
//	}
//
// Use the visitor pattern for AST traversal:
//
//	if err := ast.Walk(item, myVisitor); err != nil {
//	    log.Fatal(err)
//	}
package ast
