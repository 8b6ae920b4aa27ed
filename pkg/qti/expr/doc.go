// Package expr evaluates QTI expression trees.
//
// The evaluator is a tree walker over the closed ast.Operator set with a
// single dispatch switch. It follows the QTI null conventions: comparison
// and arithmetic operators yield NULL when an operand is NULL, divide by
// zero is NULL, and a NULL condition counts as false (see IsTrue). Errors
// are reserved for malformed literals, operand type mismatches and
// operators that cannot be dispatched; they are *errors.Error values of
// type evaluation, wrapped in an OperatorError naming the failing operator.
//
// Random operators draw from the *rand.Rand passed to Evaluate, so a seeded
// source makes template processing reproducible:
//
//	ev := expr.NewEvaluator(logger)
//	v, err := ev.Evaluate(rule.Expr, state, rand.New(rand.NewPCG(seed, 0)))
package expr
