package interaction

import (
	"mercator-hq/itemengine/pkg/qti/ast"
)

// Type is the QTI element name of an interaction.
type Type string

const (
	TypeChoice           Type = "choiceInteraction"
	TypeExtendedText     Type = "extendedTextInteraction"
	TypeTextEntry        Type = "textEntryInteraction"
	TypeOrder            Type = "orderInteraction"
	TypeMatch            Type = "matchInteraction"
	TypeAssociate        Type = "associateInteraction"
	TypeGapMatch         Type = "gapMatchInteraction"
	TypeInlineChoice     Type = "inlineChoiceInteraction"
	TypeHotspot          Type = "hotspotInteraction"
	TypeGraphicGapMatch  Type = "graphicGapMatchInteraction"
	TypeSelectPoint      Type = "selectPointInteraction"
	TypeGraphicOrder     Type = "graphicOrderInteraction"
	TypeGraphicAssociate Type = "graphicAssociateInteraction"
	TypeSlider           Type = "sliderInteraction"
	TypePositionObject   Type = "positionObjectInteraction"
	TypeDrawing          Type = "drawingInteraction"
	TypeUpload           Type = "uploadInteraction"
	TypeCustom           Type = "customInteraction"
	TypeEndAttempt       Type = "endAttemptInteraction"
	TypeMedia            Type = "mediaInteraction"
	TypeHottext          Type = "hottextInteraction"
)

var knownTypes = map[Type]bool{
	TypeChoice: true, TypeExtendedText: true, TypeTextEntry: true, TypeOrder: true,
	TypeMatch: true, TypeAssociate: true, TypeGapMatch: true, TypeInlineChoice: true,
	TypeHotspot: true, TypeGraphicGapMatch: true, TypeSelectPoint: true,
	TypeGraphicOrder: true, TypeGraphicAssociate: true, TypeSlider: true,
	TypePositionObject: true, TypeDrawing: true, TypeUpload: true, TypeCustom: true,
	TypeEndAttempt: true, TypeMedia: true, TypeHottext: true,
	"portableCustomInteraction": true,
}

// IsInteraction returns true if name is a QTI interaction element.
func IsInteraction(name string) bool { return knownTypes[Type(name)] }

// choiceElements are the selectable children collected into Choices.
var choiceElements = map[string]bool{
	"simpleChoice": true, "simpleAssociableChoice": true, "inlineChoice": true,
	"gapText": true, "gapImg": true, "gap": true, "hottext": true,
	"hotspotChoice": true, "associableHotspot": true,
}

// Choice is a selectable option of an interaction.
type Choice struct {
	Identifier string `json:"identifier"`
	Kind       string `json:"kind"`
	Text       string `json:"text,omitempty"`
	Fixed      bool   `json:"fixed,omitempty"`
	MatchMax   int    `json:"matchMax,omitempty"`
	Shape      string `json:"shape,omitempty"`
	Coords     string `json:"coords,omitempty"`
}

// Interaction describes one interaction of an item body.
type Interaction struct {
	Type               Type   `json:"type"`
	ResponseIdentifier string `json:"responseIdentifier,omitempty"`

	// ResponseBearing is false for interactions whose value never gates
	// submission or counts towards progress (endAttemptInteraction).
	ResponseBearing bool `json:"responseBearing"`

	Shuffle         bool     `json:"shuffle,omitempty"`
	MaxChoices      int      `json:"maxChoices,omitempty"`
	MinChoices      int      `json:"minChoices,omitempty"`
	MaxAssociations int      `json:"maxAssociations,omitempty"`
	MinAssociations int      `json:"minAssociations,omitempty"`
	ExpectedLength  int      `json:"expectedLength,omitempty"`
	ExpectedLines   int      `json:"expectedLines,omitempty"`
	PatternMask     string   `json:"patternMask,omitempty"`
	MinStrings      int      `json:"minStrings,omitempty"`
	MaxStrings      int      `json:"maxStrings,omitempty"`
	MinPlays        int      `json:"minPlays,omitempty"`
	MaxPlays        int      `json:"maxPlays,omitempty"`
	LowerBound      *float64 `json:"lowerBound,omitempty"`
	UpperBound      *float64 `json:"upperBound,omitempty"`
	Step            *float64 `json:"step,omitempty"`
	Choices         []Choice `json:"choices,omitempty"`
	Prompt          string   `json:"prompt,omitempty"`

	// Attrs holds every attribute of the element as written.
	Attrs    map[string]string `json:"attrs,omitempty"`
	Location ast.Location      `json:"-"`
}
