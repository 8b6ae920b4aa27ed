package parser

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"mercator-hq/itemengine/pkg/qti/ast"
)

const (
	nsXLink = "http://www.w3.org/1999/xlink"
	nsXML   = "http://www.w3.org/XML/1998/namespace"
	nsXSI   = "http://www.w3.org/2001/XMLSchema-instance"
	nsSVG   = "http://www.w3.org/2000/svg"
	nsMath  = "http://www.w3.org/1998/Math/MathML"

	// maxTreeDepth bounds element nesting independently of expression depth.
	maxTreeDepth = 512
)

// syntaxError is a decoding failure with its position.
type syntaxError struct {
	msg  string
	line int
	col  int
}

func (e *syntaxError) Error() string { return e.msg }

// readTree decodes an XML document into a generic node tree. QTI 3 names
// (qti-choice-interaction, response-identifier) are normalized to their QTI 2
// spelling so the builder only deals with one vocabulary. HTML entities and,
// unless strict, HTML-style unclosed elements are tolerated in vendor content.
func readTree(data []byte, name string, strict bool) (*ast.Node, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.Strict = strict
	d.Entity = xml.HTMLEntity
	if !strict {
		d.AutoClose = xml.HTMLAutoClose
	}

	var root *ast.Node
	var stack []*ast.Node
	foreign := 0 // depth inside svg/math subtrees

	for {
		line, col := d.InputPos()
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			l, c := d.InputPos()
			if se, ok := err.(*xml.SyntaxError); ok {
				l, c = se.Line, 0
			}
			return nil, &syntaxError{msg: err.Error(), line: l, col: c}
		}
		loc := ast.Location{File: name, Line: line, Column: col}

		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) >= maxTreeDepth {
				return nil, &syntaxError{msg: fmt.Sprintf("element nesting exceeds %d levels", maxTreeDepth), line: line, col: col}
			}
			inForeign := foreign > 0 || t.Name.Space == nsSVG || t.Name.Space == nsMath ||
				t.Name.Local == "svg" || t.Name.Local == "math"
			n := &ast.Node{Type: ast.ElementNode, Location: loc}
			if inForeign {
				foreign++
				n.Name = t.Name.Local
			} else {
				n.Name, n.QTI = normalizeElementName(t.Name.Local)
			}
			n.Attrs = convertAttrs(t.Attr, n.QTI && strings.HasPrefix(t.Name.Local, "qti-"))

			if len(stack) == 0 {
				if root != nil {
					return nil, &syntaxError{msg: "document has more than one root element", line: line, col: col}
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)

		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			if foreign > 0 {
				foreign--
			}

		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			parent := stack[len(stack)-1]
			text := string(t)
			// Merge adjacent text so entities do not split runs.
			if k := len(parent.Children); k > 0 && parent.Children[k-1].Type == ast.TextNode {
				parent.Children[k-1].Text += text
				continue
			}
			parent.Children = append(parent.Children, &ast.Node{Type: ast.TextNode, Text: text, Location: loc})
		}
	}

	if root == nil {
		return nil, &syntaxError{msg: "document has no root element", line: 1, col: 1}
	}
	return root, nil
}

// convertAttrs keeps attribute order, restores well-known prefixes and drops
// namespace declarations and schema hints. Attributes of QTI 3 elements are
// converted from kebab-case.
func convertAttrs(in []xml.Attr, kebab bool) []ast.Attr {
	out := make([]ast.Attr, 0, len(in))
	for _, a := range in {
		name := a.Name.Local
		switch a.Name.Space {
		case "":
			if name == "xmlns" {
				continue
			}
		case "xmlns", nsXSI, "xsi":
			continue
		case nsXLink, "xlink":
			name = "xlink:" + name
		case nsXML, "xml":
			name = "xml:" + name
		default:
			if strings.Contains(a.Name.Space, "/") {
				continue
			}
			name = a.Name.Space + ":" + name
		}
		if kebab && a.Name.Space == "" && !strings.HasPrefix(name, "data-") && !strings.HasPrefix(name, "aria-") {
			name = camelCase(name)
		}
		out = append(out, ast.Attr{Name: name, Value: a.Value})
	}
	return out
}

// specialNames holds camelCase conversions that do not follow the regular
// kebab-to-camel rule.
var specialNames = map[string]string{
	"durationLt":  "durationLT",
	"durationGte": "durationGTE",
}

// normalizeElementName returns the QTI 2 spelling of a QTI element name and
// whether the element belongs to the QTI vocabulary.
func normalizeElementName(local string) (string, bool) {
	if rest, ok := strings.CutPrefix(local, "qti-"); ok {
		name := camelCase(rest)
		if s, ok := specialNames[name]; ok {
			name = s
		}
		return name, true
	}
	if qtiElements[local] {
		return local, true
	}
	if _, ok := ast.LookupOperator(local); ok {
		return local, true
	}
	return local, false
}

func camelCase(kebab string) string {
	if !strings.Contains(kebab, "-") {
		return kebab
	}
	parts := strings.Split(kebab, "-")
	var sb strings.Builder
	sb.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		sb.WriteString(strings.ToUpper(p[:1]))
		sb.WriteString(p[1:])
	}
	return sb.String()
}

// qtiElements lists the non-operator QTI element names used in items.
var qtiElements = map[string]bool{
	"assessmentItem": true, "responseDeclaration": true, "outcomeDeclaration": true,
	"templateDeclaration": true, "defaultValue": true, "correctResponse": true,
	"value": true, "mapping": true, "mapEntry": true, "areaMapping": true,
	"areaMapEntry": true, "matchTable": true, "matchTableEntry": true,
	"interpolationTable": true, "interpolationTableEntry": true,
	"templateProcessing": true, "responseProcessing": true, "responseCondition": true,
	"responseIf": true, "responseElseIf": true, "responseElse": true,
	"setOutcomeValue": true, "lookupOutcomeValue": true, "exitResponse": true,
	"responseProcessingFragment": true, "templateCondition": true, "templateIf": true,
	"templateElseIf": true, "templateElse": true, "setTemplateValue": true,
	"setCorrectResponse": true, "setDefaultValue": true, "templateConstraint": true,
	"exitTemplate": true, "stylesheet": true, "itemBody": true, "modalFeedback": true,
	"contentBody": true, "prompt": true, "printedVariable": true, "templateBlock": true,
	"templateInline": true, "feedbackBlock": true, "feedbackInline": true,
	"rubricBlock": true, "companionMaterialsInfo": true,

	"choiceInteraction": true, "orderInteraction": true, "associateInteraction": true,
	"matchInteraction": true, "gapMatchInteraction": true, "inlineChoiceInteraction": true,
	"textEntryInteraction": true, "extendedTextInteraction": true, "hottextInteraction": true,
	"hotspotInteraction": true, "selectPointInteraction": true, "graphicOrderInteraction": true,
	"graphicAssociateInteraction": true, "graphicGapMatchInteraction": true,
	"positionObjectInteraction": true, "positionObjectStage": true, "sliderInteraction": true,
	"drawingInteraction": true, "uploadInteraction": true, "customInteraction": true,
	"endAttemptInteraction": true, "mediaInteraction": true, "portableCustomInteraction": true,

	"simpleChoice": true, "simpleAssociableChoice": true, "simpleMatchSet": true,
	"inlineChoice": true, "gapText": true, "gapImg": true, "gap": true, "hottext": true,
	"hotspotChoice": true, "associableHotspot": true,
}
