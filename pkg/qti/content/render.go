package content

import (
	"fmt"
	"html"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"mercator-hq/itemengine/pkg/qti/ast"
	"mercator-hq/itemengine/pkg/qti/value"
)

// Bindings provides the variable values the renderer substitutes.
type Bindings interface {
	Lookup(id string) (value.Value, bool)
}

// voidElements never take an end tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true,
	"img": true, "input": true, "link": true, "meta": true, "param": true,
	"source": true, "track": true, "wbr": true,
}

// Renderer serializes an item body to markup with variable values
// substituted and conditional content resolved, then sanitizes it.
type Renderer struct {
	sanitizer *Sanitizer
	logger    *slog.Logger
}

// NewRenderer creates a renderer. A nil sanitizer uses NewSanitizer().
func NewRenderer(sanitizer *Sanitizer, logger *slog.Logger) *Renderer {
	if sanitizer == nil {
		sanitizer = NewSanitizer()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{sanitizer: sanitizer, logger: logger}
}

// Sanitizer returns the sanitizer applied to rendered output.
func (r *Renderer) Sanitizer() *Sanitizer { return r.sanitizer }

// Render renders n and its subtree.
func (r *Renderer) Render(n *ast.Node, b Bindings) (string, Report) {
	if n == nil {
		return "", Report{}
	}
	var sb strings.Builder
	r.write(&sb, n, b)
	return r.finish(sb.String())
}

// RenderChildren renders the children of n without n itself, as used for
// feedback content.
func (r *Renderer) RenderChildren(n *ast.Node, b Bindings) (string, Report) {
	if n == nil {
		return "", Report{}
	}
	var sb strings.Builder
	for _, c := range n.Children {
		r.write(&sb, c, b)
	}
	return r.finish(sb.String())
}

func (r *Renderer) finish(markup string) (string, Report) {
	out, report := r.sanitizer.Sanitize(markup)
	if report.Total() > 0 {
		r.logger.Debug("removed unsafe markup",
			"scripts", report.Scripts,
			"event_handlers", report.EventHandlers,
			"urls", report.URLs,
			"srcdoc", report.Srcdoc,
			"animations", report.Animations,
			"raw_text", report.RawText,
		)
	}
	return out, report
}

func (r *Renderer) write(sb *strings.Builder, n *ast.Node, b Bindings) {
	if n.Type == ast.TextNode {
		sb.WriteString(html.EscapeString(n.Text))
		return
	}

	if n.QTI {
		switch n.Name {
		case "printedVariable":
			sb.WriteString(html.EscapeString(PrintedValue(n, b)))
			return
		case "templateBlock", "templateInline":
			if r.visible(n, "templateIdentifier", b) {
				r.writeChildren(sb, n, b)
			}
			return
		case "feedbackBlock", "feedbackInline":
			if r.visible(n, "outcomeIdentifier", b) {
				r.writeChildren(sb, n, b)
			}
			return
		}
	}

	name := n.Name
	if n.QTI {
		name = ast.KebabName(n.Name)
	}
	sb.WriteByte('<')
	sb.WriteString(name)
	for _, a := range n.Attrs {
		attr := a.Name
		if n.QTI {
			attr = kebabAttr(attr)
		}
		sb.WriteByte(' ')
		sb.WriteString(attr)
		sb.WriteString(`="`)
		sb.WriteString(html.EscapeString(a.Value))
		sb.WriteByte('"')
	}
	sb.WriteByte('>')
	if !n.QTI && voidElements[strings.ToLower(name)] {
		return
	}
	r.writeChildren(sb, n, b)
	sb.WriteString("</")
	sb.WriteString(name)
	sb.WriteByte('>')
}

func (r *Renderer) writeChildren(sb *strings.Builder, n *ast.Node, b Bindings) {
	for _, c := range n.Children {
		r.write(sb, c, b)
	}
}

func (r *Renderer) visible(n *ast.Node, governing string, b Bindings) bool {
	v, _ := b.Lookup(n.AttrOr(governing, ""))
	return Visible(v, n.AttrOr("identifier", ""), ast.ShowHide(n.AttrOr("showHide", string(ast.ShowHideShow))))
}

// Visible applies a show/hide policy: with show the content is visible when
// the governing value matches identifier (membership for containers), with
// hide when it does not.
func Visible(v value.Value, identifier string, policy ast.ShowHide) bool {
	matched := false
	for _, s := range v.Items() {
		if s.Text() == identifier {
			matched = true
			break
		}
	}
	if policy == ast.ShowHideHide {
		return !matched
	}
	return matched
}

// kebabAttr converts a normalized camelCase attribute name to its QTI 3
// spelling. Prefixed and data-* names are kept.
func kebabAttr(name string) string {
	if strings.ContainsAny(name, ":-") {
		return name
	}
	var sb strings.Builder
	for i, c := range name {
		if c >= 'A' && c <= 'Z' {
			if i > 0 {
				sb.WriteByte('-')
			}
			c += 'a' - 'A'
		}
		sb.WriteRune(c)
	}
	return sb.String()
}

var formatVerb = regexp.MustCompile(`%[-+ #0]*\d*(?:\.\d+)?([diouxXeEfFgGs])`)

// PrintedValue formats the variable a printedVariable element refers to.
// Containers are joined with the delimiter attribute (default ";"), record
// fields are selected with the field attribute, and the format and base
// attributes apply to numeric values. An unbound variable prints nothing.
func PrintedValue(n *ast.Node, b Bindings) string {
	v, ok := b.Lookup(n.AttrOr("identifier", ""))
	if !ok || v.IsNull() {
		return ""
	}
	if v.Kind() == value.KindRecord {
		f, ok := v.Field(n.AttrOr("field", ""))
		if !ok {
			return ""
		}
		v = f
	}

	format := n.AttrOr("format", "")
	base, _ := strconv.Atoi(n.AttrOr("base", "10"))
	items := v.Items()
	parts := make([]string, len(items))
	for i, s := range items {
		parts[i] = formatScalar(s, format, base)
	}
	return strings.Join(parts, n.AttrOr("delimiter", ";"))
}

func formatScalar(s value.Scalar, format string, base int) string {
	if !s.IsNumeric() {
		return s.Text()
	}
	if format == "" {
		if s.Type() == value.BaseTypeInteger && base >= 2 && base <= 36 && base != 10 {
			return strconv.FormatInt(s.Int(), base)
		}
		return s.String()
	}

	loc := formatVerb.FindStringSubmatchIndex(format)
	if loc == nil {
		return strings.ReplaceAll(format, "%%", "%")
	}
	spec := format[loc[0]:loc[1]]
	verb := format[loc[2]:loc[3]]

	var formatted string
	switch verb {
	case "d", "i", "u", "o", "x", "X":
		i, ok := roundInt(s)
		switch {
		case !ok:
			formatted = strconv.FormatFloat(s.Float(), 'f', 0, 64)
		case verb == "o" || verb == "x" || verb == "X":
			formatted = fmt.Sprintf(spec, i)
		default:
			formatted = fmt.Sprintf(spec[:len(spec)-1]+"d", i)
		}
	case "s":
		formatted = fmt.Sprintf(spec, s.String())
	default:
		formatted = fmt.Sprintf(spec, s.Float())
	}
	prefix := strings.ReplaceAll(format[:loc[0]], "%%", "%")
	suffix := strings.ReplaceAll(format[loc[1]:], "%%", "%")
	return prefix + formatted + suffix
}

// roundInt rounds half away from zero. It reports false when the result
// does not fit an int64.
func roundInt(s value.Scalar) (int64, bool) {
	if s.Type() == value.BaseTypeInteger {
		return s.Int(), true
	}
	return value.FloatToInt(math.Round(s.Float()))
}
