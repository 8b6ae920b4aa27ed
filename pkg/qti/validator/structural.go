package validator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"mercator-hq/itemengine/pkg/qti/ast"
	qtiErrors "mercator-hq/itemengine/pkg/qti/errors"
	"mercator-hq/itemengine/pkg/qti/value"
)

// StructuralValidator checks the shape of processing rules and expressions:
// operator arity, required attributes and attribute formats.
type StructuralValidator struct {
	errors *qtiErrors.ErrorList
}

// NewStructuralValidator creates a new structural validator.
func NewStructuralValidator() *StructuralValidator {
	return &StructuralValidator{
		errors: qtiErrors.NewErrorList(),
	}
}

// Validate performs structural validation on an item.
func (v *StructuralValidator) Validate(item *ast.Item) error {
	v.errors = qtiErrors.NewErrorList()

	if item.Identifier == "" {
		v.errors.AddError(qtiErrors.ErrorTypeStructural, "Item identifier is required", item.Location)
	}

	for _, decl := range item.Declarations.All() {
		v.validateDeclaration(decl)
	}

	if err := ast.WalkRules(item.TemplateProcessing, v); err != nil {
		return err
	}
	if err := ast.WalkRules(item.ResponseProcessing, v); err != nil {
		return err
	}

	return v.errors.ToError()
}

func (v *StructuralValidator) validateDeclaration(decl *ast.Declaration) {
	if decl.Cardinality == value.CardinalityRecord && (decl.Mapping != nil || decl.AreaMapping != nil) {
		v.errors.AddError(qtiErrors.ErrorTypeStructural,
			fmt.Sprintf("Declaration %q has record cardinality and cannot carry a mapping", decl.Identifier),
			decl.Location)
	}
	if decl.AreaMapping != nil && decl.BaseType != value.BaseTypePoint {
		v.errors.AddError(qtiErrors.ErrorTypeStructural,
			fmt.Sprintf("Declaration %q has an areaMapping but base type %s (want point)", decl.Identifier, decl.BaseType),
			decl.Location)
	}
	if m := decl.Mapping; m != nil && m.LowerBound != nil && m.UpperBound != nil && *m.LowerBound > *m.UpperBound {
		v.errors.AddError(qtiErrors.ErrorTypeStructural,
			fmt.Sprintf("Mapping of %q has lowerBound %g above upperBound %g", decl.Identifier, *m.LowerBound, *m.UpperBound),
			decl.Location)
	}
}

// VisitDeclaration implements ast.Visitor.
func (v *StructuralValidator) VisitDeclaration(*ast.Declaration) error { return nil }

// VisitNode implements ast.Visitor.
func (v *StructuralValidator) VisitNode(*ast.Node) error { return nil }

// VisitRule checks that rules carry the parts their type requires.
func (v *StructuralValidator) VisitRule(r *ast.Rule) error {
	switch {
	case r.IsSetter(), r.Type == ast.RuleTemplateConstraint:
		if r.Expr == nil {
			v.errors.AddError(qtiErrors.ErrorTypeStructural,
				fmt.Sprintf("<%s> has no expression", r.Type), r.Location)
		}
	case r.IsCondition():
		if len(r.Branches) == 0 {
			v.errors.AddError(qtiErrors.ErrorTypeStructural,
				fmt.Sprintf("<%s> has no branches", r.Type), r.Location)
		}
		for _, br := range r.Branches {
			if br.Condition == nil {
				v.errors.AddError(qtiErrors.ErrorTypeStructural, "Condition branch has no expression", br.Location)
			}
		}
	}
	return nil
}

// VisitExpr checks operator arity and operator-specific attributes.
func (v *StructuralValidator) VisitExpr(e *ast.Expr) error {
	min, max := e.Op.Arity()
	n := len(e.Children)
	if n < min || (max >= 0 && n > max) {
		v.errors.AddError(qtiErrors.ErrorTypeStructural,
			fmt.Sprintf("<%s> takes %s, found %d", e.Op, arityText(min, max), n), e.Location)
	}

	switch e.Op {
	case ast.OpRandomInteger:
		v.requireIntOrRef(e, "min", true)
		v.requireIntOrRef(e, "max", true)
		v.requireIntOrRef(e, "step", false)
	case ast.OpRandomFloat:
		v.requireFloatOrRef(e, "min", true)
		v.requireFloatOrRef(e, "max", true)
	case ast.OpAnyN:
		v.requireIntOrRef(e, "min", true)
		v.requireIntOrRef(e, "max", true)
	case ast.OpIndex:
		v.requireIntOrRef(e, "n", true)
	case ast.OpEqual:
		mode := e.AttrOr("toleranceMode", "exact")
		switch mode {
		case "exact":
		case "absolute", "relative":
			tol, ok := e.Attr("tolerance")
			if !ok || len(strings.Fields(tol)) == 0 || len(strings.Fields(tol)) > 2 {
				v.errors.AddError(qtiErrors.ErrorTypeStructural,
					"<equal> with a non-exact toleranceMode needs one or two tolerance values", e.Location)
			}
		default:
			v.errors.AddErrorWithSuggestion(qtiErrors.ErrorTypeStructural,
				fmt.Sprintf("<equal> has unknown toleranceMode %q", mode), e.Location,
				qtiErrors.SuggestName(mode, []string{"exact", "absolute", "relative"}))
		}
	case ast.OpEqualRounded:
		mode := e.AttrOr("roundingMode", "significantFigures")
		if mode != "significantFigures" && mode != "decimalPlaces" {
			v.errors.AddErrorWithSuggestion(qtiErrors.ErrorTypeStructural,
				fmt.Sprintf("<equalRounded> has unknown roundingMode %q", mode), e.Location,
				qtiErrors.SuggestName(mode, []string{"significantFigures", "decimalPlaces"}))
		}
		v.requireIntOrRef(e, "figures", true)
	case ast.OpStringMatch:
		v.requireBool(e, "caseSensitive", false)
		v.requireBool(e, "substring", false)
	case ast.OpSubstring:
		v.requireBool(e, "caseSensitive", false)
	case ast.OpPatternMatch:
		pattern, ok := e.Attr("pattern")
		if !ok {
			v.missing(e, "pattern")
		} else if !isRef(pattern) {
			if _, err := regexp.Compile("^(?:" + pattern + ")$"); err != nil {
				v.errors.AddError(qtiErrors.ErrorTypeSyntax,
					fmt.Sprintf("<patternMatch> pattern %q does not compile: %v", pattern, err), e.Location)
			}
		}
	case ast.OpFieldValue:
		if _, ok := e.Attr("fieldIdentifier"); !ok {
			v.missing(e, "fieldIdentifier")
		}
	case ast.OpInside:
		shape := ast.Shape(e.AttrOr("shape", ""))
		switch shape {
		case ast.ShapeCircle, ast.ShapeRect, ast.ShapePoly, ast.ShapeEllipse, ast.ShapeDefault:
		default:
			v.errors.AddError(qtiErrors.ErrorTypeStructural,
				fmt.Sprintf("<inside> has unknown shape %q", shape), e.Location)
		}
		if shape != ast.ShapeDefault {
			if _, ok := e.Attr("coords"); !ok {
				v.missing(e, "coords")
			}
		}
	}
	return nil
}

func (v *StructuralValidator) missing(e *ast.Expr, attr string) {
	v.errors.AddError(qtiErrors.ErrorTypeStructural,
		fmt.Sprintf("<%s> is missing required attribute %q", e.Op, attr), e.Location)
}

func (v *StructuralValidator) requireIntOrRef(e *ast.Expr, attr string, required bool) {
	s, ok := e.Attr(attr)
	if !ok {
		if required {
			v.missing(e, attr)
		}
		return
	}
	if isRef(s) {
		return
	}
	if _, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err != nil {
		v.errors.AddError(qtiErrors.ErrorTypeSyntax,
			fmt.Sprintf("<%s> attribute %q must be an integer or a {variable} reference, got %q", e.Op, attr, s), e.Location)
	}
}

func (v *StructuralValidator) requireFloatOrRef(e *ast.Expr, attr string, required bool) {
	s, ok := e.Attr(attr)
	if !ok {
		if required {
			v.missing(e, attr)
		}
		return
	}
	if isRef(s) {
		return
	}
	if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
		v.errors.AddError(qtiErrors.ErrorTypeSyntax,
			fmt.Sprintf("<%s> attribute %q must be a number or a {variable} reference, got %q", e.Op, attr, s), e.Location)
	}
}

func (v *StructuralValidator) requireBool(e *ast.Expr, attr string, required bool) {
	s, ok := e.Attr(attr)
	if !ok {
		if required {
			v.missing(e, attr)
		}
		return
	}
	switch strings.TrimSpace(s) {
	case "true", "false", "1", "0":
		return
	}
	v.errors.AddError(qtiErrors.ErrorTypeSyntax,
		fmt.Sprintf("<%s> attribute %q must be true or false, got %q", e.Op, attr, s), e.Location)
}

// isRef reports whether an attribute value is a {variable} reference.
func isRef(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) > 2 && strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}")
}

func arityText(min, max int) string {
	switch {
	case max < 0:
		return fmt.Sprintf("at least %d expression(s)", min)
	case min == max:
		return fmt.Sprintf("exactly %d expression(s)", min)
	}
	return fmt.Sprintf("%d to %d expressions", min, max)
}
