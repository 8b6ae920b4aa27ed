package interaction

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"

	"mercator-hq/itemengine/pkg/qti/ast"
	"mercator-hq/itemengine/pkg/qti/value"
)

// Enumerate returns the interactions of an item body in document order.
func Enumerate(body *ast.Node) []Interaction {
	var out []Interaction
	ast.Inspect(body, func(n *ast.Node) bool {
		if n.Type != ast.ElementNode || !n.QTI || !IsInteraction(n.Name) {
			return true
		}
		out = append(out, build(n))
		return false
	})
	return out
}

func build(n *ast.Node) Interaction {
	it := Interaction{
		Type:     Type(n.Name),
		Attrs:    make(map[string]string, len(n.Attrs)),
		Location: n.Location,
	}
	for _, a := range n.Attrs {
		it.Attrs[a.Name] = a.Value
	}

	it.ResponseIdentifier = it.Attrs["responseIdentifier"]
	it.ResponseBearing = it.ResponseIdentifier != "" && it.Type != TypeEndAttempt
	it.Shuffle = it.Attrs["shuffle"] == "true"
	it.MaxChoices = atoi(it.Attrs["maxChoices"])
	it.MinChoices = atoi(it.Attrs["minChoices"])
	it.MaxAssociations = atoi(it.Attrs["maxAssociations"])
	it.MinAssociations = atoi(it.Attrs["minAssociations"])
	it.ExpectedLength = atoi(it.Attrs["expectedLength"])
	it.ExpectedLines = atoi(it.Attrs["expectedLines"])
	it.PatternMask = it.Attrs["patternMask"]
	it.MinStrings = atoi(it.Attrs["minStrings"])
	it.MaxStrings = atoi(it.Attrs["maxStrings"])
	it.MinPlays = atoi(it.Attrs["minPlays"])
	it.MaxPlays = atoi(it.Attrs["maxPlays"])
	it.LowerBound = floatAttr(it.Attrs, "lowerBound")
	it.UpperBound = floatAttr(it.Attrs, "upperBound")
	it.Step = floatAttr(it.Attrs, "step")

	// maxChoices defaults to 1 for choice and hottext interactions.
	if _, ok := it.Attrs["maxChoices"]; !ok && (it.Type == TypeChoice || it.Type == TypeHottext) {
		it.MaxChoices = 1
	}

	for _, c := range n.Children {
		ast.Inspect(c, func(cn *ast.Node) bool {
			if cn.Type != ast.ElementNode || !cn.QTI {
				return true
			}
			switch {
			case cn.Name == "prompt":
				it.Prompt = collapse(cn.TextContent())
				return false
			case choiceElements[cn.Name]:
				it.Choices = append(it.Choices, Choice{
					Identifier: cn.AttrOr("identifier", ""),
					Kind:       cn.Name,
					Text:       collapse(cn.TextContent()),
					Fixed:      cn.AttrOr("fixed", "") == "true",
					MatchMax:   atoi(cn.AttrOr("matchMax", "")),
					Shape:      cn.AttrOr("shape", ""),
					Coords:     cn.AttrOr("coords", ""),
				})
				// gapMatch choices can hold gaps in their text.
				return cn.Name == "gapText"
			}
			return true
		})
	}
	return it
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func floatAttr(attrs map[string]string, name string) *float64 {
	s, ok := attrs[name]
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &f
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ShuffledChoices returns the choices in delivery order. Without shuffle the
// document order is kept; with shuffle, fixed choices keep their position
// and the others are permuted using rng.
func (it Interaction) ShuffledChoices(rng *rand.Rand) []Choice {
	out := make([]Choice, len(it.Choices))
	copy(out, it.Choices)
	if !it.Shuffle || rng == nil {
		return out
	}

	var free []int
	for i, c := range out {
		if !c.Fixed {
			free = append(free, i)
		}
	}
	movable := make([]Choice, len(free))
	for i, idx := range free {
		movable[i] = out[idx]
	}
	rng.Shuffle(len(movable), func(i, j int) { movable[i], movable[j] = movable[j], movable[i] })
	for i, idx := range free {
		out[idx] = movable[i]
	}
	return out
}

// ArrangedChoices returns the choices in the identifier order given. It
// reports false unless order is a permutation of the choice identifiers
// that leaves every fixed choice at its document position.
func (it Interaction) ArrangedChoices(order []string) ([]Choice, bool) {
	if len(order) != len(it.Choices) {
		return nil, false
	}
	byID := make(map[string]Choice, len(it.Choices))
	for _, c := range it.Choices {
		byID[c.Identifier] = c
	}
	out := make([]Choice, len(order))
	for i, id := range order {
		c, ok := byID[id]
		if !ok {
			return nil, false
		}
		if it.Choices[i].Fixed && it.Choices[i].Identifier != id {
			return nil, false
		}
		delete(byID, id)
		out[i] = c
	}
	return out, true
}

// ChoiceIdentifiers returns the identifiers of choices in order.
func ChoiceIdentifiers(choices []Choice) []string {
	ids := make([]string, len(choices))
	for i, c := range choices {
		ids[i] = c.Identifier
	}
	return ids
}

// Progress counts answered response-bearing interactions.
type Progress struct {
	Total      int `json:"total"`
	Answered   int `json:"answered"`
	Unanswered int `json:"unanswered"`
}

// Catalog is the interaction list of one item.
type Catalog struct {
	interactions []Interaction
}

// NewCatalog enumerates the interactions of body.
func NewCatalog(body *ast.Node) *Catalog {
	return &Catalog{interactions: Enumerate(body)}
}

// All returns every interaction, including non-response-bearing ones.
func (c *Catalog) All() []Interaction {
	out := make([]Interaction, len(c.interactions))
	copy(out, c.interactions)
	return out
}

// ResponseBearing returns the interactions that gate submission.
func (c *Catalog) ResponseBearing() []Interaction {
	var out []Interaction
	for _, it := range c.interactions {
		if it.ResponseBearing {
			out = append(out, it)
		}
	}
	return out
}

// ResponseIdentifiers returns the distinct response identifiers of the
// response-bearing interactions, in document order.
func (c *Catalog) ResponseIdentifiers() []string {
	seen := make(map[string]bool)
	var out []string
	for _, it := range c.ResponseBearing() {
		if !seen[it.ResponseIdentifier] {
			seen[it.ResponseIdentifier] = true
			out = append(out, it.ResponseIdentifier)
		}
	}
	return out
}

// Progress reports how many response-bearing interactions hold a
// non-NULL, non-empty value.
func (c *Catalog) Progress(responses map[string]value.Value) Progress {
	var p Progress
	for _, it := range c.ResponseBearing() {
		p.Total++
		v := responses[it.ResponseIdentifier]
		if !v.IsNull() && !v.IsEmpty() {
			p.Answered++
		}
	}
	p.Unanswered = p.Total - p.Answered
	return p
}

// CanSubmit returns true when every response-bearing interaction has a
// non-NULL value and every media interaction reached its minimum play count.
// A missing media play count counts as zero plays.
func (c *Catalog) CanSubmit(responses map[string]value.Value) bool {
	for _, it := range c.ResponseBearing() {
		v := responses[it.ResponseIdentifier]
		if it.Type == TypeMedia {
			if playCount(v) < it.MinPlays {
				return false
			}
			continue
		}
		if v.IsNull() {
			return false
		}
	}
	return true
}

func playCount(v value.Value) int {
	s, ok := v.Scalar()
	if !ok || s.Type() != value.BaseTypeInteger {
		return 0
	}
	return int(s.Int())
}

// ValidationReport lists response problems per identifier.
type ValidationReport struct {
	Valid  bool                `json:"valid"`
	Errors map[string][]string `json:"errors,omitempty"`
}

func (r *ValidationReport) add(id, format string, args ...any) {
	if r.Errors == nil {
		r.Errors = make(map[string][]string)
	}
	r.Errors[id] = append(r.Errors[id], fmt.Sprintf(format, args...))
	r.Valid = false
}

// Identifiers returns the identifiers with errors, sorted.
func (r ValidationReport) Identifiers() []string {
	ids := make([]string, 0, len(r.Errors))
	for id := range r.Errors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Validate checks candidate responses against their declarations and the
// constraints of the interactions bound to them. Nothing is stored.
func (c *Catalog) Validate(responses map[string]any, decls *ast.Declarations) ValidationReport {
	report := ValidationReport{Valid: true}

	ids := make([]string, 0, len(responses))
	for id := range responses {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	byResponse := make(map[string][]Interaction)
	for _, it := range c.interactions {
		if it.ResponseIdentifier != "" {
			byResponse[it.ResponseIdentifier] = append(byResponse[it.ResponseIdentifier], it)
		}
	}

	for _, id := range ids {
		decl := decls.Get(id)
		if decl == nil || !decl.IsResponse() || decl.BuiltIn {
			report.add(id, "no response variable %q is declared", id)
			continue
		}
		v, err := value.FromHost(decl.Cardinality, decl.BaseType, responses[id])
		if err != nil {
			report.add(id, "%v", err)
			continue
		}
		for _, it := range byResponse[id] {
			for _, msg := range it.check(v) {
				report.add(id, "%s", msg)
			}
		}
	}
	return report
}

// check applies the interaction's own constraints to a conforming value.
// NULL is left to CanSubmit.
func (it Interaction) check(v value.Value) []string {
	if v.IsNull() {
		return nil
	}
	var msgs []string
	n := v.Len()

	switch it.Type {
	case TypeChoice, TypeHottext, TypeHotspot, TypeSelectPoint, TypePositionObject:
		if it.MaxChoices > 0 && n > it.MaxChoices {
			msgs = append(msgs, fmt.Sprintf("at most %d choices allowed, got %d", it.MaxChoices, n))
		}
		if it.MinChoices > 0 && n < it.MinChoices {
			msgs = append(msgs, fmt.Sprintf("at least %d choices required, got %d", it.MinChoices, n))
		}
	case TypeMatch, TypeAssociate, TypeGraphicAssociate:
		if it.MaxAssociations > 0 && n > it.MaxAssociations {
			msgs = append(msgs, fmt.Sprintf("at most %d associations allowed, got %d", it.MaxAssociations, n))
		}
		if it.MinAssociations > 0 && n < it.MinAssociations {
			msgs = append(msgs, fmt.Sprintf("at least %d associations required, got %d", it.MinAssociations, n))
		}
	case TypeExtendedText:
		strs := 0
		for _, s := range v.Items() {
			if strings.TrimSpace(s.Text()) != "" {
				strs++
			}
		}
		if it.MinStrings > 0 && strs < it.MinStrings {
			msgs = append(msgs, fmt.Sprintf("at least %d non-empty strings required, got %d", it.MinStrings, strs))
		}
		if it.MaxStrings > 0 && n > it.MaxStrings {
			msgs = append(msgs, fmt.Sprintf("at most %d strings allowed, got %d", it.MaxStrings, n))
		}
	case TypeSlider:
		if s, ok := v.Scalar(); ok && s.IsNumeric() {
			f := s.Float()
			if it.LowerBound != nil && f < *it.LowerBound {
				msgs = append(msgs, fmt.Sprintf("value %v is below the lower bound %v", f, *it.LowerBound))
			}
			if it.UpperBound != nil && f > *it.UpperBound {
				msgs = append(msgs, fmt.Sprintf("value %v is above the upper bound %v", f, *it.UpperBound))
			}
		}
	case TypeMedia:
		if it.MaxPlays > 0 && playCount(v) > it.MaxPlays {
			msgs = append(msgs, fmt.Sprintf("played %d times, at most %d allowed", playCount(v), it.MaxPlays))
		}
	}
	return msgs
}
