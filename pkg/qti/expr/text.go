package expr

import (
	"regexp"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"mercator-hq/itemengine/pkg/qti/ast"
	"mercator-hq/itemengine/pkg/qti/value"
)

// fold applies Unicode case folding for case-insensitive comparison.
func fold(s string) string {
	return cases.Fold().String(s)
}

// textOf returns the text of a single textual value.
func (c *call) textOf(e *ast.Expr, v value.Value) (string, error) {
	s, err := c.single(e, v)
	if err != nil {
		return "", err
	}
	switch s.Type() {
	case value.BaseTypeString, value.BaseTypeIdentifier, value.BaseTypeURI, value.BaseTypeIntOrIdentifier:
		return s.Text(), nil
	}
	return "", c.fail(e, nil, "expected a string, got %s", s.Type())
}

// stringMatch compares two strings, optionally ignoring case. The deprecated
// substring attribute turns it into a containment test.
func (c *call) stringMatch(e *ast.Expr, a, b value.Value) (value.Value, error) {
	if a.IsNull() || b.IsNull() {
		return value.Null(), nil
	}
	x, err := c.textOf(e, a)
	if err != nil {
		return value.Null(), err
	}
	y, err := c.textOf(e, b)
	if err != nil {
		return value.Null(), err
	}
	caseSensitive, err := c.boolAttr(e, "caseSensitive", true)
	if err != nil {
		return value.Null(), err
	}
	sub, err := c.boolAttr(e, "substring", false)
	if err != nil {
		return value.Null(), err
	}
	if !caseSensitive {
		x, y = fold(x), fold(y)
	}
	if sub {
		return value.Boolean(strings.Contains(y, x)), nil
	}
	return value.Boolean(x == y), nil
}

// substring reports whether the first string occurs inside the second.
func (c *call) substring(e *ast.Expr, a, b value.Value) (value.Value, error) {
	if a.IsNull() || b.IsNull() {
		return value.Null(), nil
	}
	x, err := c.textOf(e, a)
	if err != nil {
		return value.Null(), err
	}
	y, err := c.textOf(e, b)
	if err != nil {
		return value.Null(), err
	}
	caseSensitive, err := c.boolAttr(e, "caseSensitive", true)
	if err != nil {
		return value.Null(), err
	}
	if !caseSensitive {
		x, y = fold(x), fold(y)
	}
	return value.Boolean(strings.Contains(y, x)), nil
}

var patternCache sync.Map // pattern string -> *regexp.Regexp

// patternMatch matches the whole string against the pattern attribute.
func (c *call) patternMatch(e *ast.Expr, a value.Value) (value.Value, error) {
	pattern, _, err := c.attrRef(e, "pattern")
	if err != nil {
		return value.Null(), err
	}
	if a.IsNull() {
		return value.Null(), nil
	}
	s, err := c.textOf(e, a)
	if err != nil {
		return value.Null(), err
	}

	re, ok := patternCache.Load(pattern)
	if !ok {
		compiled, cerr := regexp.Compile("^(?:" + pattern + ")$")
		if cerr != nil {
			return value.Null(), c.fail(e, cerr, "pattern %q does not compile", pattern)
		}
		re, _ = patternCache.LoadOrStore(pattern, compiled)
	}
	return value.Boolean(re.(*regexp.Regexp).MatchString(s)), nil
}
