package validator

import (
	"mercator-hq/itemengine/pkg/qti/ast"
	qtiErrors "mercator-hq/itemengine/pkg/qti/errors"
)

// Validator is the main validator that orchestrates all validation passes.
// It runs structural and semantic validation in sequence.
type Validator struct {
	structural *StructuralValidator
	semantic   *SemanticValidator
}

// NewValidator creates a new validator with all validation passes.
func NewValidator() *Validator {
	return &Validator{
		structural: NewStructuralValidator(),
		semantic:   NewSemanticValidator(),
	}
}

// Validate runs all validation passes on an item.
// It accumulates errors from all passes and returns them together.
func (v *Validator) Validate(item *ast.Item) error {
	errors := qtiErrors.NewErrorList()

	if err := v.structural.Validate(item); err != nil {
		if errList, ok := err.(*qtiErrors.ErrorList); ok {
			errors.Merge(errList)
		}
	}

	// Run semantic validation (only if structural validation passed)
	// This prevents cascading errors
	if !errors.HasErrorType(qtiErrors.ErrorTypeStructural) {
		if err := v.semantic.Validate(item); err != nil {
			if errList, ok := err.(*qtiErrors.ErrorList); ok {
				errors.Merge(errList)
			}
		}
	}

	return errors.ToError()
}

// ValidateStructural runs only structural validation.
func (v *Validator) ValidateStructural(item *ast.Item) error {
	return v.structural.Validate(item)
}

// ValidateSemantic runs only semantic validation.
func (v *Validator) ValidateSemantic(item *ast.Item) error {
	return v.semantic.Validate(item)
}
