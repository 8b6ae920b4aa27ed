package item

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/itemengine/pkg/qti/ast"
	qtiErrors "mercator-hq/itemengine/pkg/qti/errors"
	"mercator-hq/itemengine/pkg/qti/interaction"
	"mercator-hq/itemengine/pkg/qti/validator"
	"mercator-hq/itemengine/pkg/telemetry/tracing"
)

// Definition is a compiled, validated item. It is immutable and may be
// shared by any number of sessions.
type Definition struct {
	item    *ast.Item
	catalog *interaction.Catalog
	size    int
}

// Compile parses and validates an item document. Every structural and
// semantic problem is reported together as a *errors.ErrorList; nothing is
// returned for an invalid document.
func Compile(source []byte, opts ...Option) (*Definition, error) {
	return compile(context.Background(), source, newOptions(opts))
}

func compile(ctx context.Context, source []byte, o *options) (def *Definition, err error) {
	start := time.Now()
	_, span := o.tracer.Start(ctx, tracing.SpanCompile,
		trace.WithAttributes(attribute.Int(tracing.AttrDocumentBytes, len(source))),
	)
	defer func() { tracing.End(span, err) }()

	it, err := o.newParser().ParseBytes(source, o.sourceName)
	if err == nil {
		err = validator.NewValidator().Validate(it)
	}

	if err != nil {
		errType := errorType(err)
		o.metrics.RecordParse(errType, time.Since(start), len(source))
		tracing.SetErrorType(span, errType)
		o.logger.Warn("item compilation failed",
			"source", o.sourceName,
			"error_type", errType,
		)
		return nil, err
	}

	o.metrics.RecordParse("ok", time.Since(start), len(source))
	span.SetAttributes(tracing.ItemAttributes(it.Identifier, it.Adaptive)...)
	o.logger.Debug("item compiled",
		"item_id", it.Identifier,
		"source", o.sourceName,
		"declarations", it.Declarations.Len(),
	)

	return &Definition{
		item:    it,
		catalog: interaction.NewCatalog(it.Body),
		size:    len(source),
	}, nil
}

// errorType labels err for metrics and spans.
func errorType(err error) string {
	if t := qtiErrors.TypeOf(err); t != "" {
		return string(t)
	}
	return "internal"
}

// Identifier returns the item identifier.
func (d *Definition) Identifier() string { return d.item.Identifier }

// Title returns the item title.
func (d *Definition) Title() string { return d.item.Title }

// IsAdaptive reports whether the item is adaptive.
func (d *Definition) IsAdaptive() bool { return d.item.Adaptive }

// AST returns the parsed item. Callers must not modify it.
func (d *Definition) AST() *ast.Item { return d.item }

// Declarations returns the item's variable declarations.
func (d *Definition) Declarations() *ast.Declarations { return d.item.Declarations }

// Interactions returns every interaction of the item body in document order.
func (d *Definition) Interactions() []interaction.Interaction { return d.catalog.All() }

// ResponseInteractions returns the response-bearing interactions.
func (d *Definition) ResponseInteractions() []interaction.Interaction {
	return d.catalog.ResponseBearing()
}

// ResponseIdentifiers returns the distinct response identifiers bound to
// interactions, in document order.
func (d *Definition) ResponseIdentifiers() []string { return d.catalog.ResponseIdentifiers() }
