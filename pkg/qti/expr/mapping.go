package expr

import (
	"math"
	"strconv"
	"strings"

	"mercator-hq/itemengine/pkg/qti/ast"
	"mercator-hq/itemengine/pkg/qti/value"
)

// mapResponse scores a response variable through its declaration's mapping:
// every distinct response item contributes the weight of the first matching
// entry, or the mapping default when no entry matches. The sum is clamped to
// the mapping bounds. A NULL response scores 0 before clamping.
func (c *call) mapResponse(e *ast.Expr) (value.Value, error) {
	decl := c.b.Declaration(e.Identifier)
	if decl == nil {
		return value.Null(), c.fail(e, nil, "%q is not declared", e.Identifier)
	}
	if decl.Mapping == nil {
		return value.Null(), c.fail(e, nil, "%q has no mapping", e.Identifier)
	}
	resp, _ := c.b.Lookup(e.Identifier)
	if resp.Kind() == value.KindRecord {
		return value.Null(), c.fail(e, nil, "record responses cannot be mapped")
	}
	return value.Float(MapValue(decl.Mapping, resp)), nil
}

// MapValue applies a mapping to a response value.
func MapValue(m *ast.Mapping, resp value.Value) float64 {
	total := 0.0
	for _, item := range resp.Distinct() {
		weight := m.DefaultValue
		for _, entry := range m.Entries {
			if keyMatches(entry, item) {
				weight = entry.Value
				break
			}
		}
		total += weight
	}
	return clamp(total, m.LowerBound, m.UpperBound)
}

func keyMatches(entry ast.MapEntry, item value.Scalar) bool {
	if entry.CaseSensitive || entry.Key.Type() != value.BaseTypeString {
		return entry.Key.Equal(item)
	}
	return fold(entry.Key.Text()) == fold(item.Text())
}

func clamp(x float64, lo, hi *float64) float64 {
	if lo != nil && x < *lo {
		x = *lo
	}
	if hi != nil && x > *hi {
		x = *hi
	}
	return x
}

// mapResponsePoint scores point responses through an area mapping. Each area
// is counted once however many points fall in it; points outside every area
// contribute the mapping default.
func (c *call) mapResponsePoint(e *ast.Expr) (value.Value, error) {
	decl := c.b.Declaration(e.Identifier)
	if decl == nil {
		return value.Null(), c.fail(e, nil, "%q is not declared", e.Identifier)
	}
	am := decl.AreaMapping
	if am == nil {
		return value.Null(), c.fail(e, nil, "%q has no areaMapping", e.Identifier)
	}
	resp, _ := c.b.Lookup(e.Identifier)
	if resp.Kind() == value.KindRecord {
		return value.Null(), c.fail(e, nil, "record responses cannot be mapped")
	}

	total := 0.0
	counted := make([]bool, len(am.Entries))
	for _, p := range resp.Items() {
		if p.Type() != value.BaseTypePoint {
			return value.Null(), c.fail(e, nil, "expected point responses, got %s", p.Type())
		}
		hit := false
		for i, entry := range am.Entries {
			if !Inside(entry.Shape, entry.Coords, p.Point()) {
				continue
			}
			hit = true
			if !counted[i] {
				counted[i] = true
				total += entry.Value
			}
			break
		}
		if !hit {
			total += am.DefaultValue
		}
	}
	return value.Float(clamp(total, am.LowerBound, am.UpperBound)), nil
}

// inside reports whether any point of the operand lies in the shape.
func (c *call) inside(e *ast.Expr, a value.Value) (value.Value, error) {
	if a.IsNull() {
		return value.Null(), nil
	}
	shape := ast.Shape(e.AttrOr("shape", ""))
	coords, err := parseCoords(e.AttrOr("coords", ""))
	if err != nil {
		return value.Null(), c.fail(e, err, "invalid coords")
	}
	for _, p := range a.Items() {
		if p.Type() != value.BaseTypePoint {
			return value.Null(), c.fail(e, nil, "expected points, got %s", p.Type())
		}
		if Inside(shape, coords, p.Point()) {
			return value.Boolean(true), nil
		}
	}
	return value.Boolean(false), nil
}

func parseCoords(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSuffix(strings.TrimSpace(part), "%")
		if part == "" {
			continue
		}
		f, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Inside reports whether p lies in the shape described by coords, using the
// HTML image map conventions: circle (x, y, r), rect (left, top, right,
// bottom), ellipse (x, y, hr, vr) and poly (x1, y1, x2, y2, ...). The
// default shape contains every point. Malformed coordinates contain nothing.
func Inside(shape ast.Shape, coords []float64, p value.Point) bool {
	x, y := float64(p.X), float64(p.Y)
	switch shape {
	case ast.ShapeDefault:
		return true
	case ast.ShapeCircle:
		if len(coords) < 3 {
			return false
		}
		dx, dy := x-coords[0], y-coords[1]
		return dx*dx+dy*dy <= coords[2]*coords[2]
	case ast.ShapeRect:
		if len(coords) < 4 {
			return false
		}
		left, right := math.Min(coords[0], coords[2]), math.Max(coords[0], coords[2])
		top, bottom := math.Min(coords[1], coords[3]), math.Max(coords[1], coords[3])
		return x >= left && x <= right && y >= top && y <= bottom
	case ast.ShapeEllipse:
		if len(coords) < 4 || coords[2] == 0 || coords[3] == 0 {
			return false
		}
		dx, dy := (x-coords[0])/coords[2], (y-coords[1])/coords[3]
		return dx*dx+dy*dy <= 1
	case ast.ShapePoly:
		return insidePolygon(coords, x, y)
	}
	return false
}

// insidePolygon applies the even-odd rule. The polygon may repeat its first
// vertex at the end.
func insidePolygon(coords []float64, x, y float64) bool {
	n := len(coords) / 2
	if n < 3 {
		return false
	}
	in := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := coords[2*i], coords[2*i+1]
		xj, yj := coords[2*j], coords[2*j+1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			in = !in
		}
	}
	return in
}
