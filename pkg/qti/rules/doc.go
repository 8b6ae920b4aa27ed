// Package rules executes template and response processing blocks.
//
// Both processors walk the rule list in document order against a State and
// commit each assignment as soon as it is evaluated. A value that does not
// conform to its target declaration is rejected before it is written. The
// first failing rule aborts the call; writes made before it are kept.
//
//	tp := rules.NewTemplateProcessor(ev, 0, logger)
//	if _, err := tp.Run(ctx, item.TemplateProcessing, state, rng); err != nil {
//		return err
//	}
//
//	rp := rules.NewResponseProcessor(ev, logger)
//	result, err := rp.Run(ctx, item.ResponseProcessing, state)
package rules
