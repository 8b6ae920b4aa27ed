// Package item is the host-facing entry point of the item engine. It
// compiles QTI 2.x and 3.0 assessment item documents and runs candidate
// sessions over them.
//
// # Architecture
//
// A session is assembled from the pkg/qti layers:
//
//  1. Parser and validator - Build an immutable Definition from the document
//  2. Template processor - Initializes template variables once per session
//  3. Session controller - Runs response processing and guards completionStatus
//  4. Renderer and sanitizer - Produce item body and feedback markup
//  5. Interaction catalog - Reports progress and validates candidate responses
//
// # Basic Usage
//
//	def, err := item.Compile(source, item.WithSourceName("q1.xml"))
//	if err != nil {
//	    return err // *errors.ErrorList with every problem found
//	}
//
//	it, err := item.NewSession(def, item.WithSeed(42))
//	if err != nil {
//	    return err
//	}
//
//	_ = it.SetResponses(map[string]any{"RESPONSE": "ChoiceA"})
//	result, err := it.SubmitAttempt(ctx, true)
//
// # Concurrency
//
// A Definition may be shared by any number of sessions. An Item belongs to
// one caller at a time. Every session owns its random source, so WithSeed
// makes template values and choice shuffling reproducible.
//
// # Resuming
//
// SessionState returns a snapshot that shares no memory with the session.
// Passing it back through WithSnapshot resumes the session without running
// templateProcessing again.
package item
