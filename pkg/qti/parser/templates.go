package parser

import (
	"path"
	"strings"

	"mercator-hq/itemengine/pkg/qti/ast"
	"mercator-hq/itemengine/pkg/qti/value"
)

// standardTemplate expands one of the standard response processing templates
// into its equivalent rule tree. The template is recognised by the last path
// segment of its URI, so QTI 2.1, 2.2 and 3 locations all resolve.
func standardTemplate(uri string, loc ast.Location) ([]*ast.Rule, bool) {
	name := strings.TrimSuffix(path.Base(uri), ".xml")

	variable := func(id string) *ast.Expr {
		return &ast.Expr{Op: ast.OpVariable, Identifier: id, Location: loc}
	}
	float := func(text string) *ast.Expr {
		return &ast.Expr{Op: ast.OpBaseValue, BaseType: value.BaseTypeFloat, Text: text, Location: loc}
	}
	setScore := func(e *ast.Expr) []*ast.Rule {
		return []*ast.Rule{{Type: ast.RuleSetOutcomeValue, Identifier: "SCORE", Expr: e, Location: loc}}
	}
	condition := func(cond *ast.Expr, then, otherwise *ast.Expr) []*ast.Rule {
		return []*ast.Rule{{
			Type:     ast.RuleResponseCondition,
			Branches: []ast.Branch{{Condition: cond, Rules: setScore(then), Location: loc}},
			Else:     setScore(otherwise),
			HasElse:  true,
			Location: loc,
		}}
	}

	switch name {
	case "match_correct":
		match := &ast.Expr{
			Op:       ast.OpMatch,
			Children: []*ast.Expr{variable("RESPONSE"), {Op: ast.OpCorrect, Identifier: "RESPONSE", Location: loc}},
			Location: loc,
		}
		return condition(match, float("1"), float("0")), true

	case "map_response":
		isNull := &ast.Expr{Op: ast.OpIsNull, Children: []*ast.Expr{variable("RESPONSE")}, Location: loc}
		mapped := &ast.Expr{Op: ast.OpMapResponse, Identifier: "RESPONSE", Location: loc}
		return condition(isNull, float("0"), mapped), true

	case "map_response_point":
		isNull := &ast.Expr{Op: ast.OpIsNull, Children: []*ast.Expr{variable("RESPONSE")}, Location: loc}
		mapped := &ast.Expr{Op: ast.OpMapResponsePoint, Identifier: "RESPONSE", Location: loc}
		return condition(isNull, float("0"), mapped), true
	}

	return nil, false
}
