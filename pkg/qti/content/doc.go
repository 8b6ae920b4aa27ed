// Package content turns item body markup into safe, renderable HTML.
//
// Sanitizer removes script elements, event handler attributes, executable
// or protocol-relative URLs, iframe srcdoc and SVG animations that retarget
// links or handlers. It works on a golang.org/x/net/html node tree and
// removes rather than escapes, so its output is non-executing by
// construction. It has no error path.
//
// Renderer serializes an ast.Node tree using QTI 3 element names, replaces
// printedVariable elements with the bound value, resolves templateBlock,
// templateInline, feedbackBlock and feedbackInline visibility, and passes
// the result through its Sanitizer. Text is never scanned for placeholders,
// so literal tokens such as {A} are left alone.
package content
