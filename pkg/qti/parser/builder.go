package parser

import (
	"fmt"
	"strconv"
	"strings"

	"mercator-hq/itemengine/pkg/qti/ast"
	qtiErrors "mercator-hq/itemengine/pkg/qti/errors"
	"mercator-hq/itemengine/pkg/qti/value"
)

// ruleSet selects which processing rules are legal in a block.
type ruleSet int

const (
	responseRules ruleSet = iota
	templateRules
)

var (
	responseRuleNames = []string{"responseCondition", "setOutcomeValue", "lookupOutcomeValue", "exitResponse", "responseProcessingFragment"}
	templateRuleNames = []string{"templateCondition", "setTemplateValue", "setCorrectResponse", "setDefaultValue", "templateConstraint", "exitTemplate"}
)

// builder constructs AST nodes from the decoded element tree.
// It accumulates errors so one pass reports every problem in the document.
type builder struct {
	sourceName string
	maxDepth   int
	strict     bool
	errors     *qtiErrors.ErrorList
}

// newBuilder creates a new AST builder for the given source.
func newBuilder(sourceName string, maxDepth int, strict bool) *builder {
	return &builder{
		sourceName: sourceName,
		maxDepth:   maxDepth,
		strict:     strict,
		errors:     qtiErrors.NewErrorList(),
	}
}

func (b *builder) structural(loc ast.Location, format string, args ...any) {
	b.errors.AddError(qtiErrors.ErrorTypeStructural, fmt.Sprintf(format, args...), loc)
}

func (b *builder) syntax(loc ast.Location, format string, args ...any) {
	b.errors.AddError(qtiErrors.ErrorTypeSyntax, fmt.Sprintf(format, args...), loc)
}

// required returns an attribute, recording a structural error when it is missing or empty.
func (b *builder) required(n *ast.Node, name string) string {
	v, ok := n.Attr(name)
	if !ok || strings.TrimSpace(v) == "" {
		b.structural(n.Location, "<%s> is missing required attribute %q", n.Name, name)
		return ""
	}
	return strings.TrimSpace(v)
}

func (b *builder) boolAttr(n *ast.Node, name string, def bool) bool {
	v, ok := n.Attr(name)
	if !ok {
		return def
	}
	switch strings.TrimSpace(v) {
	case "true", "1":
		return true
	case "false", "0":
		return false
	}
	b.syntax(n.Location, "<%s> attribute %q must be true or false, got %q", n.Name, name, v)
	return def
}

func (b *builder) floatAttr(n *ast.Node, name string) *float64 {
	v, ok := n.Attr(name)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		b.syntax(n.Location, "<%s> attribute %q must be numeric, got %q", n.Name, name, v)
		return nil
	}
	return &f
}

// elements returns the element children of n.
func elements(n *ast.Node) []*ast.Node {
	var out []*ast.Node
	for _, c := range n.Children {
		if c.Type == ast.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// buildItem transforms the root element into an ast.Item.
func (b *builder) buildItem(root *ast.Node) (*ast.Item, error) {
	if root.Name != "assessmentItem" {
		b.errors.AddErrorWithSuggestion(qtiErrors.ErrorTypeStructural,
			fmt.Sprintf("Root element must be <assessmentItem>, found <%s>", root.Name),
			root.Location,
			qtiErrors.SuggestName(root.Name, []string{"assessmentItem", "qti-assessment-item"}))
		return nil, b.errors
	}

	item := &ast.Item{
		Identifier:    b.required(root, "identifier"),
		Title:         root.AttrOr("title", ""),
		Label:         root.AttrOr("label", ""),
		Language:      root.AttrOr("xml:lang", ""),
		ToolName:      root.AttrOr("toolName", ""),
		ToolVersion:   root.AttrOr("toolVersion", ""),
		Adaptive:      b.boolAttr(root, "adaptive", false),
		TimeDependent: b.boolAttr(root, "timeDependent", false),
		Declarations:  ast.NewDeclarations(),
		SourceName:    b.sourceName,
		Location:      root.Location,
	}

	for _, c := range elements(root) {
		switch c.Name {
		case "responseDeclaration":
			b.addDeclaration(item, b.buildDeclaration(c, ast.KindResponse))
		case "outcomeDeclaration":
			b.addDeclaration(item, b.buildDeclaration(c, ast.KindOutcome))
		case "templateDeclaration":
			b.addDeclaration(item, b.buildDeclaration(c, ast.KindTemplate))
		case "templateProcessing":
			item.TemplateProcessing = b.buildRules(elements(c), templateRules, 0)
		case "responseProcessing":
			b.buildResponseProcessing(item, c)
		case "stylesheet":
			item.Stylesheets = append(item.Stylesheets, b.required(c, "href"))
		case "itemBody":
			item.Body = c
		case "modalFeedback":
			if fb := b.buildModalFeedback(c); fb != nil {
				item.ModalFeedbacks = append(item.ModalFeedbacks, fb)
			}
		}
	}

	if b.errors.HasErrors() {
		return nil, b.errors
	}
	return item, nil
}

func (b *builder) addDeclaration(item *ast.Item, decl *ast.Declaration) {
	if decl == nil {
		return
	}
	if err := item.Declarations.Add(decl); err != nil {
		b.structural(decl.Location, "%v", err)
	}
}

// buildDeclaration transforms a response/outcome/template declaration.
func (b *builder) buildDeclaration(n *ast.Node, kind ast.DeclarationKind) *ast.Declaration {
	before := b.errors.Count()

	decl := &ast.Declaration{
		Identifier: b.required(n, "identifier"),
		Kind:       kind,
		Default:    value.Null(),
		Correct:    value.Null(),
		Location:   n.Location,
	}

	cardText := b.required(n, "cardinality")
	if cardText != "" {
		card, ok := value.ParseCardinality(cardText)
		if !ok {
			b.errors.AddErrorWithSuggestion(qtiErrors.ErrorTypeStructural,
				fmt.Sprintf("Declaration %q has unknown cardinality %q", decl.Identifier, cardText),
				n.Location,
				qtiErrors.SuggestName(cardText, []string{"single", "multiple", "ordered", "record"}))
		}
		decl.Cardinality = card
	}

	if btText, ok := n.Attr("baseType"); ok {
		bt, ok := value.ParseBaseType(strings.TrimSpace(btText))
		if !ok {
			b.errors.AddErrorWithSuggestion(qtiErrors.ErrorTypeStructural,
				fmt.Sprintf("Declaration %q has unknown base type %q", decl.Identifier, btText),
				n.Location,
				qtiErrors.SuggestName(btText, value.BaseTypeNames()))
		}
		decl.BaseType = bt
	} else if decl.Cardinality != value.CardinalityRecord {
		b.structural(n.Location, "Declaration %q is missing required attribute \"baseType\"", decl.Identifier)
	}

	if b.errors.Count() > before {
		return nil
	}

	switch kind {
	case ast.KindOutcome:
		decl.NormalMinimum = b.floatAttr(n, "normalMinimum")
		decl.NormalMaximum = b.floatAttr(n, "normalMaximum")
		if view, ok := n.Attr("view"); ok {
			decl.View = strings.Fields(view)
		}
	case ast.KindTemplate:
		decl.ParamVariable = b.boolAttr(n, "paramVariable", false)
		decl.MathVariable = b.boolAttr(n, "mathVariable", false)
	}

	for _, c := range elements(n) {
		switch c.Name {
		case "defaultValue":
			decl.Default = b.buildValues(c, decl)
		case "correctResponse":
			if kind != ast.KindResponse {
				b.structural(c.Location, "<correctResponse> is only allowed on response declarations, found on %s declaration %q", kind, decl.Identifier)
				continue
			}
			decl.Correct = b.buildValues(c, decl)
		case "mapping":
			decl.Mapping = b.buildMapping(c, decl)
		case "areaMapping":
			decl.AreaMapping = b.buildAreaMapping(c, decl)
		case "matchTable", "interpolationTable":
			if kind != ast.KindOutcome {
				b.structural(c.Location, "<%s> is only allowed on outcome declarations", c.Name)
				continue
			}
			decl.Lookup = b.buildLookupTable(c, decl)
		}
	}

	return decl
}

// buildValues reads the <value> children of a defaultValue or correctResponse.
func (b *builder) buildValues(n *ast.Node, decl *ast.Declaration) value.Value {
	vals := make([]*ast.Node, 0)
	for _, c := range elements(n) {
		if c.Name == "value" {
			vals = append(vals, c)
		}
	}

	if decl.Cardinality == value.CardinalityRecord {
		fields := make(map[string]value.Value, len(vals))
		for _, v := range vals {
			field := b.required(v, "fieldIdentifier")
			btText := b.required(v, "baseType")
			bt, ok := value.ParseBaseType(btText)
			if !ok {
				if btText != "" {
					b.structural(v.Location, "Record field %q has unknown base type %q", field, btText)
				}
				continue
			}
			s, err := value.ParseScalar(bt, v.TextContent())
			if err != nil {
				b.syntax(v.Location, "Declaration %q: %v", decl.Identifier, err)
				continue
			}
			fields[field] = value.NewSingle(s)
		}
		return value.NewRecord(fields)
	}

	items := make([]value.Scalar, 0, len(vals))
	for _, v := range vals {
		s, err := value.ParseScalar(decl.BaseType, v.TextContent())
		if err != nil {
			b.syntax(v.Location, "Declaration %q: %v", decl.Identifier, err)
			continue
		}
		items = append(items, s)
	}

	if decl.Cardinality == value.CardinalitySingle {
		if len(vals) != 1 {
			b.structural(n.Location, "Declaration %q has single cardinality but <%s> holds %d values", decl.Identifier, n.Name, len(vals))
			return value.Null()
		}
		if len(items) == 0 {
			return value.Null()
		}
		return value.NewSingle(items[0])
	}
	return value.NewContainer(decl.Cardinality, decl.BaseType, items...)
}

// buildMapping reads a <mapping> element.
func (b *builder) buildMapping(n *ast.Node, decl *ast.Declaration) *ast.Mapping {
	m := &ast.Mapping{
		LowerBound: b.floatAttr(n, "lowerBound"),
		UpperBound: b.floatAttr(n, "upperBound"),
	}
	if d := b.floatAttr(n, "defaultValue"); d != nil {
		m.DefaultValue = *d
	}

	for _, c := range elements(n) {
		if c.Name != "mapEntry" {
			continue
		}
		keyText, ok := c.Attr("mapKey")
		if !ok {
			b.structural(c.Location, "<mapEntry> of %q is missing required attribute \"mapKey\"", decl.Identifier)
			continue
		}
		key, err := value.ParseScalar(decl.BaseType, keyText)
		if err != nil {
			b.syntax(c.Location, "Mapping of %q: %v", decl.Identifier, err)
			continue
		}
		mapped := b.floatAttr(c, "mappedValue")
		if mapped == nil {
			if _, ok := c.Attr("mappedValue"); !ok {
				b.structural(c.Location, "<mapEntry> of %q is missing required attribute \"mappedValue\"", decl.Identifier)
			}
			continue
		}
		m.Entries = append(m.Entries, ast.MapEntry{
			Key:           key,
			Value:         *mapped,
			CaseSensitive: b.boolAttr(c, "caseSensitive", true),
		})
	}
	return m
}

// buildAreaMapping reads an <areaMapping> element.
func (b *builder) buildAreaMapping(n *ast.Node, decl *ast.Declaration) *ast.AreaMapping {
	m := &ast.AreaMapping{
		LowerBound: b.floatAttr(n, "lowerBound"),
		UpperBound: b.floatAttr(n, "upperBound"),
	}
	if d := b.floatAttr(n, "defaultValue"); d != nil {
		m.DefaultValue = *d
	}

	for _, c := range elements(n) {
		if c.Name != "areaMapEntry" {
			continue
		}
		shape := ast.Shape(b.required(c, "shape"))
		switch shape {
		case ast.ShapeCircle, ast.ShapeRect, ast.ShapePoly, ast.ShapeEllipse, ast.ShapeDefault:
		case "":
			continue
		default:
			b.structural(c.Location, "Area mapping of %q has unknown shape %q", decl.Identifier, shape)
			continue
		}
		coords, err := parseCoords(c.AttrOr("coords", ""))
		if err != nil {
			b.syntax(c.Location, "Area mapping of %q: %v", decl.Identifier, err)
			continue
		}
		mapped := b.floatAttr(c, "mappedValue")
		if mapped == nil {
			b.structural(c.Location, "<areaMapEntry> of %q needs a numeric \"mappedValue\"", decl.Identifier)
			continue
		}
		m.Entries = append(m.Entries, ast.AreaMapEntry{Shape: shape, Coords: coords, Value: *mapped})
	}
	return m
}

func parseCoords(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(p), "%")), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid coords %q", s)
		}
		out = append(out, f)
	}
	return out, nil
}

// buildLookupTable reads a matchTable or interpolationTable.
func (b *builder) buildLookupTable(n *ast.Node, decl *ast.Declaration) *ast.LookupTable {
	t := &ast.LookupTable{Default: value.Null()}
	if d, ok := n.Attr("defaultValue"); ok {
		s, err := value.ParseScalar(decl.BaseType, d)
		if err != nil {
			b.syntax(n.Location, "Lookup table of %q: %v", decl.Identifier, err)
		} else {
			t.Default = value.NewSingle(s)
		}
	}

	for _, c := range elements(n) {
		target, err := value.ParseScalar(decl.BaseType, c.AttrOr("targetValue", ""))
		if err != nil {
			b.syntax(c.Location, "Lookup table of %q: %v", decl.Identifier, err)
			continue
		}
		src := strings.TrimSpace(c.AttrOr("sourceValue", ""))
		switch c.Name {
		case "matchTableEntry":
			i, err := strconv.ParseInt(src, 10, 64)
			if err != nil {
				b.syntax(c.Location, "matchTableEntry sourceValue must be an integer, got %q", src)
				continue
			}
			t.Match = append(t.Match, ast.MatchEntry{Source: i, Target: target})
		case "interpolationTableEntry":
			f, err := strconv.ParseFloat(src, 64)
			if err != nil {
				b.syntax(c.Location, "interpolationTableEntry sourceValue must be numeric, got %q", src)
				continue
			}
			t.Interpolation = append(t.Interpolation, ast.InterpolationEntry{
				Source:          f,
				IncludeBoundary: b.boolAttr(c, "includeBoundary", true),
				Target:          target,
			})
		}
	}
	return t
}

// buildResponseProcessing reads responseProcessing, expanding a standard
// template when the element carries no rules of its own.
func (b *builder) buildResponseProcessing(item *ast.Item, n *ast.Node) {
	tmpl := strings.TrimSpace(n.AttrOr("template", ""))
	item.ResponseTemplate = tmpl
	children := elements(n)

	if len(children) == 0 && tmpl != "" {
		if rules, ok := standardTemplate(tmpl, n.Location); ok {
			item.ResponseProcessing = rules
			return
		}
		if b.strict {
			b.errors.AddErrorWithSuggestion(qtiErrors.ErrorTypeStructural,
				fmt.Sprintf("Unsupported response processing template %q", tmpl),
				n.Location,
				"Inline the template's rules or use match_correct, map_response or map_response_point")
		}
		return
	}

	item.ResponseProcessing = b.buildRules(children, responseRules, 0)
}

// buildModalFeedback reads a modalFeedback element.
func (b *builder) buildModalFeedback(n *ast.Node) *ast.ModalFeedback {
	fb := &ast.ModalFeedback{
		OutcomeIdentifier: b.required(n, "outcomeIdentifier"),
		Identifier:        b.required(n, "identifier"),
		Title:             n.AttrOr("title", ""),
		Content:           n,
		Location:          n.Location,
	}
	switch sh := ast.ShowHide(b.required(n, "showHide")); sh {
	case ast.ShowHideShow, ast.ShowHideHide:
		fb.ShowHide = sh
	case "":
		return nil
	default:
		b.structural(n.Location, "<modalFeedback> showHide must be show or hide, got %q", sh)
		return nil
	}
	if fb.OutcomeIdentifier == "" || fb.Identifier == "" {
		return nil
	}
	return fb
}

// buildRules builds a rule list. The result is never nil so callers can
// distinguish an empty block from an absent one.
func (b *builder) buildRules(nodes []*ast.Node, set ruleSet, depth int) []*ast.Rule {
	rules := make([]*ast.Rule, 0, len(nodes))
	for _, n := range nodes {
		if r := b.buildRule(n, set, depth); r != nil {
			rules = append(rules, r)
		}
	}
	return rules
}

func (b *builder) buildRule(n *ast.Node, set ruleSet, depth int) *ast.Rule {
	if depth > b.maxDepth {
		b.structural(n.Location, "Rule nesting exceeds maximum depth %d", b.maxDepth)
		return nil
	}

	allowed := responseRuleNames
	if set == templateRules {
		allowed = templateRuleNames
	}
	known := false
	for _, name := range allowed {
		if n.Name == name {
			known = true
			break
		}
	}
	if !known {
		b.errors.AddErrorWithSuggestion(qtiErrors.ErrorTypeStructural,
			fmt.Sprintf("Unexpected element <%s> in processing rules", n.Name),
			n.Location,
			qtiErrors.SuggestName(n.Name, allowed))
		return nil
	}

	rule := &ast.Rule{Type: ast.RuleType(n.Name), Location: n.Location}

	switch rule.Type {
	case ast.RuleResponseCondition, ast.RuleTemplateCondition:
		b.buildCondition(rule, n, set, depth)

	case ast.RuleExitResponse, ast.RuleExitTemplate:

	case ast.RuleProcessingFragment:
		rule.Rules = b.buildRules(elements(n), set, depth+1)

	case ast.RuleTemplateConstraint:
		rule.Expr = b.buildSingleExpr(n, depth)

	default:
		rule.Identifier = b.required(n, "identifier")
		rule.Expr = b.buildSingleExpr(n, depth)
	}

	return rule
}

// buildSingleExpr builds the one expression child of a rule element.
func (b *builder) buildSingleExpr(n *ast.Node, depth int) *ast.Expr {
	children := elements(n)
	if len(children) != 1 {
		b.structural(n.Location, "<%s> must contain exactly one expression, found %d", n.Name, len(children))
		return nil
	}
	return b.buildExpr(children[0], depth+1)
}

func (b *builder) buildCondition(rule *ast.Rule, n *ast.Node, set ruleSet, depth int) {
	prefix := "response"
	if set == templateRules {
		prefix = "template"
	}

	children := elements(n)
	if len(children) == 0 || children[0].Name != prefix+"If" {
		b.structural(n.Location, "<%s> must start with <%sIf>", n.Name, prefix)
		return
	}

	for i, c := range children {
		switch c.Name {
		case prefix + "If", prefix + "ElseIf":
			if c.Name == prefix+"If" && i > 0 {
				b.structural(c.Location, "<%s> may only appear first in <%s>", c.Name, n.Name)
				continue
			}
			if rule.HasElse {
				b.structural(c.Location, "<%s> after <%sElse>", c.Name, prefix)
				continue
			}
			parts := elements(c)
			if len(parts) == 0 {
				b.structural(c.Location, "<%s> is missing its condition expression", c.Name)
				continue
			}
			rule.Branches = append(rule.Branches, ast.Branch{
				Condition: b.buildExpr(parts[0], depth+1),
				Rules:     b.buildRules(parts[1:], set, depth+1),
				Location:  c.Location,
			})
		case prefix + "Else":
			if rule.HasElse {
				b.structural(c.Location, "<%s> holds more than one <%s>", n.Name, c.Name)
				continue
			}
			rule.HasElse = true
			rule.Else = b.buildRules(elements(c), set, depth+1)
		default:
			b.structural(c.Location, "Unexpected element <%s> in <%s>", c.Name, n.Name)
		}
	}
}

// buildExpr builds an expression tree rooted at n.
func (b *builder) buildExpr(n *ast.Node, depth int) *ast.Expr {
	if depth > b.maxDepth {
		b.structural(n.Location, "Expression nesting exceeds maximum depth %d", b.maxDepth)
		return nil
	}

	op, ok := ast.LookupOperator(n.Name)
	if !ok {
		b.errors.AddErrorWithSuggestion(qtiErrors.ErrorTypeStructural,
			fmt.Sprintf("Unknown expression <%s>", n.Name),
			n.Location,
			qtiErrors.SuggestName(n.Name, ast.OperatorNames()))
		return nil
	}

	e := &ast.Expr{Op: op, Location: n.Location}
	if len(n.Attrs) > 0 {
		e.Attrs = make(map[string]string, len(n.Attrs))
		for _, a := range n.Attrs {
			e.Attrs[a.Name] = a.Value
		}
	}

	switch op {
	case ast.OpBaseValue:
		btText := b.required(n, "baseType")
		if btText != "" {
			bt, ok := value.ParseBaseType(btText)
			if !ok {
				b.errors.AddErrorWithSuggestion(qtiErrors.ErrorTypeStructural,
					fmt.Sprintf("<baseValue> has unknown base type %q", btText),
					n.Location,
					qtiErrors.SuggestName(btText, value.BaseTypeNames()))
			}
			e.BaseType = bt
		}
		e.Text = n.TextContent()
	case ast.OpVariable, ast.OpCorrect, ast.OpDefault, ast.OpMapResponse, ast.OpMapResponsePoint:
		e.Identifier = b.required(n, "identifier")
	}

	for _, c := range elements(n) {
		if child := b.buildExpr(c, depth+1); child != nil {
			e.Children = append(e.Children, child)
		}
	}
	return e
}
