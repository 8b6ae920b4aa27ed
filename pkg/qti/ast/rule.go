package ast

// RuleType identifies a processing rule.
type RuleType string

const (
	RuleSetOutcomeValue    RuleType = "setOutcomeValue"
	RuleLookupOutcomeValue RuleType = "lookupOutcomeValue"
	RuleSetTemplateValue   RuleType = "setTemplateValue"
	RuleSetCorrectResponse RuleType = "setCorrectResponse"
	RuleSetDefaultValue    RuleType = "setDefaultValue"
	RuleTemplateConstraint RuleType = "templateConstraint"
	RuleResponseCondition  RuleType = "responseCondition"
	RuleTemplateCondition  RuleType = "templateCondition"
	RuleExitResponse       RuleType = "exitResponse"
	RuleExitTemplate       RuleType = "exitTemplate"
	RuleProcessingFragment RuleType = "responseProcessingFragment"
)

// Rule is one statement of a template or response processing block.
// Setter rules carry Identifier and Expr; condition rules carry Branches and
// an optional Else; exit rules carry nothing.
type Rule struct {
	Type       RuleType
	Identifier string   // Target variable (setters, lookupOutcomeValue)
	Expr       *Expr    // Value expression, or the constraint for templateConstraint
	Branches   []Branch // if + else-if branches in document order
	Else       []*Rule  // Nil when there is no else branch
	HasElse    bool
	Rules      []*Rule // Nested rules of a responseProcessingFragment
	Location   Location
}

// Branch is a guarded list of rules inside a condition.
type Branch struct {
	Condition *Expr
	Rules     []*Rule
	Location  Location
}

// IsCondition returns true for responseCondition and templateCondition.
func (r *Rule) IsCondition() bool {
	return r.Type == RuleResponseCondition || r.Type == RuleTemplateCondition
}

// IsSetter returns true for rules that write a single variable.
func (r *Rule) IsSetter() bool {
	switch r.Type {
	case RuleSetOutcomeValue, RuleLookupOutcomeValue, RuleSetTemplateValue,
		RuleSetCorrectResponse, RuleSetDefaultValue:
		return true
	}
	return false
}

// IsExit returns true for rules that stop processing.
func (r *Rule) IsExit() bool {
	return r.Type == RuleExitResponse || r.Type == RuleExitTemplate
}
