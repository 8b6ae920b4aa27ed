package value

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Point is a pair of integer coordinates.
type Point struct {
	X int
	Y int
}

// Pair is a pair of identifiers. Whether the order matters depends on the
// scalar's base type (pair is unordered, directedPair is ordered).
type Pair struct {
	First  string
	Second string
}

// Scalar is a single typed primitive. The zero Scalar is invalid; construct
// scalars with the New* functions or ParseScalar.
type Scalar struct {
	typ  BaseType
	text string
	i    int64
	f    float64
	b    bool
	pt   Point
	pair Pair
}

// NewIdentifier returns an identifier scalar.
func NewIdentifier(s string) Scalar { return Scalar{typ: BaseTypeIdentifier, text: s} }

// NewString returns a string scalar.
func NewString(s string) Scalar { return Scalar{typ: BaseTypeString, text: s} }

// NewURI returns a uri scalar.
func NewURI(s string) Scalar { return Scalar{typ: BaseTypeURI, text: s} }

// NewFile returns a file scalar holding a reference to the uploaded content.
func NewFile(s string) Scalar { return Scalar{typ: BaseTypeFile, text: s} }

// NewInteger returns an integer scalar.
func NewInteger(i int64) Scalar { return Scalar{typ: BaseTypeInteger, i: i} }

// NewFloat returns a float scalar.
func NewFloat(f float64) Scalar { return Scalar{typ: BaseTypeFloat, f: f} }

// NewBoolean returns a boolean scalar.
func NewBoolean(b bool) Scalar { return Scalar{typ: BaseTypeBoolean, b: b} }

// NewDuration returns a duration scalar measured in seconds.
func NewDuration(seconds float64) Scalar { return Scalar{typ: BaseTypeDuration, f: seconds} }

// NewPoint returns a point scalar.
func NewPoint(x, y int) Scalar { return Scalar{typ: BaseTypePoint, pt: Point{X: x, Y: y}} }

// NewPair returns an unordered pair scalar.
func NewPair(a, b string) Scalar {
	return Scalar{typ: BaseTypePair, pair: Pair{First: a, Second: b}}
}

// NewDirectedPair returns an ordered pair scalar.
func NewDirectedPair(a, b string) Scalar {
	return Scalar{typ: BaseTypeDirectedPair, pair: Pair{First: a, Second: b}}
}

// Type returns the scalar's base type.
func (s Scalar) Type() BaseType { return s.typ }

// Valid reports whether the scalar was constructed.
func (s Scalar) Valid() bool { return s.typ != "" }

// Text returns the raw text of textual scalars and the canonical literal otherwise.
func (s Scalar) Text() string {
	if s.typ.isTextual() {
		return s.text
	}
	return s.String()
}

// twoTo63 is the smallest float64 above the int64 range.
const twoTo63 = 1 << 63

// FloatToInt truncates f to an int64. It reports false for NaN, infinities
// and values outside the int64 range.
func FloatToInt(f float64) (int64, bool) {
	t := math.Trunc(f)
	if !(t >= -twoTo63 && t < twoTo63) {
		return 0, false
	}
	return int64(t), true
}

// Int returns the integer payload. Floats are truncated; a float outside
// the int64 range reads as 0.
func (s Scalar) Int() int64 {
	switch s.typ {
	case BaseTypeInteger:
		return s.i
	case BaseTypeFloat, BaseTypeDuration:
		i, _ := FloatToInt(s.f)
		return i
	case BaseTypeIntOrIdentifier:
		i, _ := strconv.ParseInt(s.text, 10, 64)
		return i
	}
	return 0
}

// Float returns the numeric payload as a float64.
func (s Scalar) Float() float64 {
	switch s.typ {
	case BaseTypeInteger:
		return float64(s.i)
	case BaseTypeFloat, BaseTypeDuration:
		return s.f
	}
	return math.NaN()
}

// Bool returns the boolean payload.
func (s Scalar) Bool() bool { return s.typ == BaseTypeBoolean && s.b }

// Point returns the point payload.
func (s Scalar) Point() Point { return s.pt }

// Pair returns the pair payload.
func (s Scalar) Pair() Pair { return s.pair }

// IsNumeric reports whether the scalar takes part in arithmetic.
func (s Scalar) IsNumeric() bool { return s.typ.IsNumeric() }

// String returns the canonical literal form, which ParseScalar accepts back.
func (s Scalar) String() string {
	switch s.typ {
	case BaseTypeInteger:
		return strconv.FormatInt(s.i, 10)
	case BaseTypeFloat, BaseTypeDuration:
		return strconv.FormatFloat(s.f, 'g', -1, 64)
	case BaseTypeBoolean:
		return strconv.FormatBool(s.b)
	case BaseTypePoint:
		return fmt.Sprintf("%d %d", s.pt.X, s.pt.Y)
	case BaseTypePair, BaseTypeDirectedPair:
		return s.pair.First + " " + s.pair.Second
	}
	return s.text
}

// Equal reports whether two scalars hold the same value. Numeric scalars
// compare by magnitude across integer/float, textual scalars by text, and
// pairs ignore order unless directed.
func (s Scalar) Equal(o Scalar) bool {
	switch {
	case s.typ.IsNumeric() && o.typ.IsNumeric():
		if s.typ == BaseTypeInteger && o.typ == BaseTypeInteger {
			return s.i == o.i
		}
		return s.Float() == o.Float()
	case s.typ.isTextual() && o.typ.isTextual():
		return s.text == o.text
	case s.typ != o.typ:
		return false
	}

	switch s.typ {
	case BaseTypeBoolean:
		return s.b == o.b
	case BaseTypePoint:
		return s.pt == o.pt
	case BaseTypeDirectedPair:
		return s.pair == o.pair
	case BaseTypePair:
		return s.pair == o.pair ||
			(s.pair.First == o.pair.Second && s.pair.Second == o.pair.First)
	}
	return false
}

// key returns a string that is identical for Equal scalars.
func (s Scalar) key() string {
	switch {
	case s.typ.IsNumeric():
		return "n:" + strconv.FormatFloat(s.Float(), 'g', -1, 64)
	case s.typ.isTextual():
		return "t:" + s.text
	case s.typ == BaseTypePair:
		a, b := s.pair.First, s.pair.Second
		if b < a {
			a, b = b, a
		}
		return "p:" + a + " " + b
	}
	return string(s.typ) + ":" + s.String()
}

// ParseError reports a literal that does not parse under its base type.
type ParseError struct {
	BaseType BaseType
	Literal  string
	Reason   string
}

// Error returns the error message.
func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s literal %q: %s", e.BaseType, e.Literal, e.Reason)
}

// ParseScalar parses literal text according to the base type. Unparseable
// text is an error; nothing is silently coerced to a default.
func ParseScalar(bt BaseType, text string) (Scalar, error) {
	fail := func(reason string) (Scalar, error) {
		return Scalar{}, &ParseError{BaseType: bt, Literal: text, Reason: reason}
	}

	if bt == BaseTypeString {
		return NewString(text), nil
	}

	t := strings.TrimSpace(text)
	switch bt {
	case BaseTypeIdentifier:
		if t == "" || strings.IndexFunc(t, unicode.IsSpace) >= 0 {
			return fail("identifiers must be non-empty and contain no whitespace")
		}
		return NewIdentifier(t), nil

	case BaseTypeURI:
		return NewURI(t), nil

	case BaseTypeFile:
		return NewFile(t), nil

	case BaseTypeIntOrIdentifier:
		if t == "" {
			return fail("empty value")
		}
		return Scalar{typ: BaseTypeIntOrIdentifier, text: t}, nil

	case BaseTypeInteger:
		i, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return fail("not an integer")
		}
		return NewInteger(i), nil

	case BaseTypeFloat:
		f, err := parseFloat(t)
		if err != nil {
			return fail("not a number")
		}
		return NewFloat(f), nil

	case BaseTypeBoolean:
		switch t {
		case "true", "1":
			return NewBoolean(true), nil
		case "false", "0":
			return NewBoolean(false), nil
		}
		return fail("expected true or false")

	case BaseTypePoint:
		f := strings.Fields(t)
		if len(f) != 2 {
			return fail("expected two integer coordinates")
		}
		x, errX := strconv.Atoi(f[0])
		y, errY := strconv.Atoi(f[1])
		if errX != nil || errY != nil {
			return fail("expected two integer coordinates")
		}
		return NewPoint(x, y), nil

	case BaseTypePair, BaseTypeDirectedPair:
		f := strings.Fields(t)
		if len(f) != 2 {
			return fail("expected two identifiers")
		}
		if bt == BaseTypePair {
			return NewPair(f[0], f[1]), nil
		}
		return NewDirectedPair(f[0], f[1]), nil

	case BaseTypeDuration:
		secs, err := parseDuration(t)
		if err != nil {
			return fail(err.Error())
		}
		return NewDuration(secs), nil
	}

	return fail("unknown base type")
}

// parseFloat accepts the XML Schema spellings of infinity in addition to
// Go's float syntax.
func parseFloat(t string) (float64, error) {
	switch t {
	case "INF":
		return math.Inf(1), nil
	case "-INF":
		return math.Inf(-1), nil
	}
	return strconv.ParseFloat(t, 64)
}

var isoDuration = regexp.MustCompile(`^(-)?P(?:(\d+(?:\.\d+)?)D)?(?:T(?:(\d+(?:\.\d+)?)H)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// parseDuration reads either a plain number of seconds or an ISO 8601
// day/time duration such as PT1M30S.
func parseDuration(t string) (float64, error) {
	if f, err := strconv.ParseFloat(t, 64); err == nil {
		return f, nil
	}
	m := isoDuration.FindStringSubmatch(t)
	if m == nil || t == "P" || strings.HasSuffix(t, "T") {
		return 0, fmt.Errorf("expected seconds or an ISO 8601 duration")
	}
	var total float64
	for i, unit := range []float64{86400, 3600, 60, 1} {
		if m[i+2] == "" {
			continue
		}
		v, _ := strconv.ParseFloat(m[i+2], 64)
		total += v * unit
	}
	if m[1] == "-" {
		total = -total
	}
	return total, nil
}
