package ast

// Visitor provides an interface for traversing the AST.
// Implement this interface to perform operations on AST nodes
// (validation, analysis, reference collection, etc.).
type Visitor interface {
	VisitDeclaration(*Declaration) error
	VisitRule(*Rule) error
	VisitExpr(*Expr) error
	VisitNode(*Node) error
}

// Walk traverses the item and calls the visitor for each node: declarations
// first, then template processing, response processing, the item body and
// modal feedback content. It returns the first error encountered.
func Walk(item *Item, visitor Visitor) error {
	if item.Declarations != nil {
		for _, decl := range item.Declarations.All() {
			if err := visitor.VisitDeclaration(decl); err != nil {
				return err
			}
		}
	}

	if err := WalkRules(item.TemplateProcessing, visitor); err != nil {
		return err
	}
	if err := WalkRules(item.ResponseProcessing, visitor); err != nil {
		return err
	}

	if item.Body != nil {
		if err := walkNode(item.Body, visitor); err != nil {
			return err
		}
	}
	for _, fb := range item.ModalFeedbacks {
		if fb.Content != nil {
			if err := walkNode(fb.Content, visitor); err != nil {
				return err
			}
		}
	}

	return nil
}

// WalkRules visits a rule list and every rule and expression nested in it.
func WalkRules(rules []*Rule, visitor Visitor) error {
	for _, rule := range rules {
		if err := visitor.VisitRule(rule); err != nil {
			return err
		}
		if rule.Expr != nil {
			if err := WalkExpr(rule.Expr, visitor); err != nil {
				return err
			}
		}
		for _, br := range rule.Branches {
			if br.Condition != nil {
				if err := WalkExpr(br.Condition, visitor); err != nil {
					return err
				}
			}
			if err := WalkRules(br.Rules, visitor); err != nil {
				return err
			}
		}
		if err := WalkRules(rule.Else, visitor); err != nil {
			return err
		}
		if err := WalkRules(rule.Rules, visitor); err != nil {
			return err
		}
	}
	return nil
}

// WalkExpr recursively walks an expression tree.
func WalkExpr(expr *Expr, visitor Visitor) error {
	if err := visitor.VisitExpr(expr); err != nil {
		return err
	}
	for _, child := range expr.Children {
		if err := WalkExpr(child, visitor); err != nil {
			return err
		}
	}
	return nil
}

func walkNode(n *Node, visitor Visitor) error {
	if err := visitor.VisitNode(n); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := walkNode(c, visitor); err != nil {
			return err
		}
	}
	return nil
}
