// Package testitems provides QTI item documents shared by package tests.
package testitems

import (
	"embed"
	"fmt"
)

//go:embed testdata/*.xml
var files embed.FS

// Item names.
const (
	Choice       = "choice.xml"
	ChoiceMapped = "choice_mapped_qti3.xml"
	Adaptive     = "adaptive.xml"
	Template     = "template.xml"
	Interactions = "interactions.xml"
	Hostile      = "hostile.xml"
)

// Bytes returns the named item document. It panics on an unknown name.
func Bytes(name string) []byte {
	data, err := files.ReadFile("testdata/" + name)
	if err != nil {
		panic(fmt.Sprintf("testitems: %v", err))
	}
	return data
}
