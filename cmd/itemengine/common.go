package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"mercator-hq/itemengine/pkg/cli"
	"mercator-hq/itemengine/pkg/qti/session"
	"mercator-hq/itemengine/pkg/qti/value"
)

// readSource reads a file, or stdin when path is "-".
func readSource(path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, cli.NewInputError(path, err)
	}
	return data, nil
}

// sourceName is the document name used in error locations.
func sourceName(path string) string {
	if path == "-" {
		return "<stdin>"
	}
	return filepath.Base(path)
}

// loadResponses reads a YAML or JSON map of response identifiers to values.
func loadResponses(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	data, err := readSource(path)
	if err != nil {
		return nil, err
	}
	var responses map[string]any
	if err := yaml.Unmarshal(data, &responses); err != nil {
		return nil, cli.NewInputError(path, fmt.Errorf("invalid responses: %w", err))
	}
	return responses, nil
}

// loadSnapshot reads a session snapshot written as JSON or YAML.
func loadSnapshot(path string) (*session.Snapshot, error) {
	if path == "" {
		return nil, nil
	}
	data, err := readSource(path)
	if err != nil {
		return nil, err
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, cli.NewInputError(path, fmt.Errorf("invalid snapshot: %w", err))
		}
		if data, err = json.Marshal(doc); err != nil {
			return nil, cli.NewInputError(path, fmt.Errorf("invalid snapshot: %w", err))
		}
	}
	snap, err := session.DecodeSnapshot(data)
	if err != nil {
		return nil, cli.NewInputError(path, err)
	}
	return snap, nil
}

// saveSnapshot writes snap as JSON.
func saveSnapshot(path string, snap *session.Snapshot) error {
	data, err := session.EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return cli.NewInputError(path, err)
	}
	return nil
}

// variableRows lists values sorted by identifier.
func variableRows(vals map[string]value.Value) [][]any {
	ids := make([]string, 0, len(vals))
	for id := range vals {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([][]any, 0, len(ids))
	for _, id := range ids {
		v := vals[id]
		rows = append(rows, []any{id, string(v.Cardinality()), string(v.BaseType()), v.String()})
	}
	return rows
}

var variableHeaders = []string{"Identifier", "Cardinality", "BaseType", "Value"}

// hostValues converts values for JSON output.
func hostValues(vals map[string]value.Value) map[string]any {
	out := make(map[string]any, len(vals))
	for id, v := range vals {
		out[id] = v.Host()
	}
	return out
}
