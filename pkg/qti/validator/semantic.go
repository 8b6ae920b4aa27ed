package validator

import (
	"fmt"
	"strings"

	"mercator-hq/itemengine/pkg/qti/ast"
	qtiErrors "mercator-hq/itemengine/pkg/qti/errors"
)

// SemanticValidator checks that every identifier an item refers to resolves
// to a declaration of the right kind.
type SemanticValidator struct {
	item   *ast.Item
	errors *qtiErrors.ErrorList
}

// NewSemanticValidator creates a new semantic validator.
func NewSemanticValidator() *SemanticValidator {
	return &SemanticValidator{
		errors: qtiErrors.NewErrorList(),
	}
}

// Validate performs semantic validation on an item.
func (v *SemanticValidator) Validate(item *ast.Item) error {
	v.item = item
	v.errors = qtiErrors.NewErrorList()

	if err := ast.Walk(item, v); err != nil {
		return err
	}

	for _, fb := range item.ModalFeedbacks {
		v.expectKind(fb.OutcomeIdentifier, fb.Location, "modalFeedback outcomeIdentifier", ast.KindOutcome)
	}

	return v.errors.ToError()
}

// resolve returns the declaration for id, recording an error with a
// suggestion when it is missing.
func (v *SemanticValidator) resolve(id string, loc ast.Location, what string) *ast.Declaration {
	decl := v.item.Declarations.Get(id)
	if decl == nil {
		v.errors.AddErrorWithSuggestion(qtiErrors.ErrorTypeSemantic,
			fmt.Sprintf("%s refers to undeclared variable %q", what, id),
			loc,
			qtiErrors.SuggestIdentifier(id, v.item.Declarations.Identifiers()))
	}
	return decl
}

func (v *SemanticValidator) expectKind(id string, loc ast.Location, what string, kinds ...ast.DeclarationKind) *ast.Declaration {
	decl := v.resolve(id, loc, what)
	if decl == nil {
		return nil
	}
	for _, k := range kinds {
		if decl.Kind == k {
			return decl
		}
	}
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	v.errors.AddError(qtiErrors.ErrorTypeSemantic,
		fmt.Sprintf("%s %q must be a %s variable, but it is declared as %s", what, id, strings.Join(names, " or "), decl.Kind),
		loc)
	return nil
}

// VisitDeclaration implements ast.Visitor.
func (v *SemanticValidator) VisitDeclaration(*ast.Declaration) error { return nil }

// VisitRule checks setter targets.
func (v *SemanticValidator) VisitRule(r *ast.Rule) error {
	loc := r.Location
	what := "<" + string(r.Type) + ">"
	switch r.Type {
	case ast.RuleSetOutcomeValue:
		v.expectKind(r.Identifier, loc, what, ast.KindOutcome)
	case ast.RuleLookupOutcomeValue:
		if decl := v.expectKind(r.Identifier, loc, what, ast.KindOutcome); decl != nil && decl.Lookup == nil {
			v.errors.AddError(qtiErrors.ErrorTypeSemantic,
				fmt.Sprintf("%s target %q has no matchTable or interpolationTable", what, r.Identifier), loc)
		}
	case ast.RuleSetTemplateValue:
		v.expectKind(r.Identifier, loc, what, ast.KindTemplate)
	case ast.RuleSetCorrectResponse:
		v.expectKind(r.Identifier, loc, what, ast.KindResponse)
	case ast.RuleSetDefaultValue:
		v.expectKind(r.Identifier, loc, what, ast.KindResponse, ast.KindOutcome)
	}
	return nil
}

// VisitExpr checks variable references made by expressions.
func (v *SemanticValidator) VisitExpr(e *ast.Expr) error {
	what := "<" + e.Op.String() + ">"
	switch e.Op {
	case ast.OpVariable, ast.OpDefault:
		v.resolve(e.Identifier, e.Location, what)
	case ast.OpCorrect:
		v.expectKind(e.Identifier, e.Location, what, ast.KindResponse)
	case ast.OpMapResponse:
		if decl := v.expectKind(e.Identifier, e.Location, what, ast.KindResponse); decl != nil && decl.Mapping == nil {
			v.errors.AddError(qtiErrors.ErrorTypeSemantic,
				fmt.Sprintf("%s target %q has no mapping", what, e.Identifier), e.Location)
		}
	case ast.OpMapResponsePoint:
		if decl := v.expectKind(e.Identifier, e.Location, what, ast.KindResponse); decl != nil && decl.AreaMapping == nil {
			v.errors.AddError(qtiErrors.ErrorTypeSemantic,
				fmt.Sprintf("%s target %q has no areaMapping", what, e.Identifier), e.Location)
		}
	}

	for _, attr := range []string{"min", "max", "step", "n", "figures", "pattern"} {
		if s, ok := e.Attr(attr); ok && isRef(s) {
			id := strings.Trim(strings.TrimSpace(s), "{}")
			v.resolve(id, e.Location, fmt.Sprintf("%s attribute %q", what, attr))
		}
	}
	return nil
}

// VisitNode checks references made by item body content.
func (v *SemanticValidator) VisitNode(n *ast.Node) error {
	if n.Type != ast.ElementNode || !n.QTI {
		return nil
	}
	what := "<" + n.Name + ">"

	switch {
	case strings.HasSuffix(n.Name, "Interaction"):
		if id, ok := n.Attr("responseIdentifier"); ok {
			v.expectKind(id, n.Location, what+" responseIdentifier", ast.KindResponse)
		}
	case n.Name == "printedVariable":
		if id, ok := n.Attr("identifier"); ok {
			v.expectKind(id, n.Location, what, ast.KindOutcome, ast.KindTemplate)
		} else {
			v.errors.AddError(qtiErrors.ErrorTypeSemantic, "<printedVariable> has no identifier", n.Location)
		}
	case n.Name == "templateBlock" || n.Name == "templateInline":
		if id, ok := n.Attr("templateIdentifier"); ok {
			v.expectKind(id, n.Location, what+" templateIdentifier", ast.KindTemplate)
		}
	case n.Name == "feedbackBlock" || n.Name == "feedbackInline":
		if id, ok := n.Attr("outcomeIdentifier"); ok {
			v.expectKind(id, n.Location, what+" outcomeIdentifier", ast.KindOutcome)
		}
	}
	return nil
}
