// itemengine compiles, renders and scores QTI assessment items from the
// command line.
//
// It runs the same engine hosts embed through pkg/item:
//   - Item validation with source locations and suggestions
//   - Item body rendering with template values and sanitization
//   - Response processing and adaptive attempts with resumable snapshots
//   - Interaction listing, progress and response validation
//
// Usage:
//
//	# Validate a directory of items
//	itemengine validate items/*.xml
//
//	# Score candidate responses
//	itemengine score item.xml --responses responses.yaml
//
//	# Submit an attempt and keep the session for the next one
//	itemengine attempt item.xml --responses r.yaml --save-snapshot session.json
//	itemengine attempt item.xml --responses r2.yaml --snapshot session.json
//
//	# Export outcomes to a workbook
//	itemengine score item.xml --responses r.yaml --format xlsx -o outcomes.xlsx
package main

func main() {
	Execute()
}
