// Package logging provides structured logging that never records candidate
// answers.
//
// The package wraps log/slog. A Handler adds the session_id, item_id and
// trace_id carried by the context and masks attributes whose keys name
// candidate responses ("response", "responses", "value", ...). Email
// addresses inside any string attribute are masked too.
//
//	logger, err := logging.New(logging.Config{
//	    Level:           "info",
//	    Format:          "json",
//	    RedactResponses: true,
//	})
//
//	ctx = logging.WithSessionID(ctx, id)
//	logger.InfoContext(ctx, "responses set", "responses", resp) // responses=[REDACTED]
//
// Engine packages accept a plain *slog.Logger; pass logger.Slog().
package logging
