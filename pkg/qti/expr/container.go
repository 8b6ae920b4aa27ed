package expr

import (
	"mercator-hq/itemengine/pkg/qti/ast"
	"mercator-hq/itemengine/pkg/qti/value"
)

// container builds a multiple or ordered value from its operands. NULL
// operands are skipped; when nothing is left the result is NULL.
func (c *call) container(e *ast.Expr, args []value.Value) (value.Value, error) {
	card := value.CardinalityMultiple
	if e.Op == ast.OpOrdered {
		card = value.CardinalityOrdered
	}

	var bt value.BaseType
	var items []value.Scalar
	for _, a := range args {
		if a.IsNull() {
			continue
		}
		switch a.Kind() {
		case value.KindRecord:
			return value.Null(), c.fail(e, nil, "records cannot be collected")
		case value.KindMultiple, value.KindOrdered:
			if a.Cardinality() != card {
				return value.Null(), c.fail(e, nil, "cannot collect %s values into %s", a.Cardinality(), card)
			}
		}
		for _, s := range a.Items() {
			if bt == "" {
				bt = s.Type()
			} else if s.Type() != bt {
				return value.Null(), c.fail(e, nil, "mixed base types %s and %s", bt, s.Type())
			}
			items = append(items, s)
		}
		if bt == "" {
			bt = a.BaseType()
		}
	}

	if len(items) == 0 {
		return value.Null(), nil
	}
	return value.NewContainer(card, bt, items...), nil
}

// containerSize counts the items of a container; NULL has size 0.
func (c *call) containerSize(e *ast.Expr, a value.Value) (value.Value, error) {
	switch a.Kind() {
	case value.KindNull:
		return value.Integer(0), nil
	case value.KindMultiple, value.KindOrdered:
		return value.Integer(int64(a.Len())), nil
	}
	return value.Null(), c.fail(e, nil, "expected a container, got %s", a.Kind())
}

func (c *call) member(e *ast.Expr, a, b value.Value) (value.Value, error) {
	if a.IsNull() || b.IsNull() {
		return value.Null(), nil
	}
	s, err := c.single(e, a)
	if err != nil {
		return value.Null(), err
	}
	if b.Kind() == value.KindRecord {
		return value.Null(), c.fail(e, nil, "expected a container, got record")
	}
	return value.Boolean(b.Contains(s)), nil
}

// contains tests whether b occurs in a: as a sub-multiset for multiple
// containers and as a contiguous run for ordered ones.
func (c *call) contains(e *ast.Expr, a, b value.Value) (value.Value, error) {
	if a.IsNull() || b.IsNull() {
		return value.Null(), nil
	}
	if a.Kind() == value.KindRecord || b.Kind() == value.KindRecord {
		return value.Null(), c.fail(e, nil, "records cannot be searched")
	}
	hay, needle := a.Items(), b.Items()

	if a.Kind() == value.KindOrdered && b.Kind() != value.KindMultiple {
		for start := 0; start+len(needle) <= len(hay); start++ {
			found := true
			for i := range needle {
				if !hay[start+i].Equal(needle[i]) {
					found = false
					break
				}
			}
			if found {
				return value.Boolean(true), nil
			}
		}
		return value.Boolean(false), nil
	}

	used := make([]bool, len(hay))
	for _, n := range needle {
		found := false
		for i, h := range hay {
			if !used[i] && h.Equal(n) {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			return value.Boolean(false), nil
		}
	}
	return value.Boolean(true), nil
}

// delete removes every occurrence of a from the container b.
func (c *call) delete(e *ast.Expr, a, b value.Value) (value.Value, error) {
	if a.IsNull() || b.IsNull() {
		return value.Null(), nil
	}
	s, err := c.single(e, a)
	if err != nil {
		return value.Null(), err
	}
	if b.Kind() != value.KindMultiple && b.Kind() != value.KindOrdered {
		return value.Null(), c.fail(e, nil, "expected a container, got %s", b.Kind())
	}
	var kept []value.Scalar
	for _, it := range b.Items() {
		if !it.Equal(s) {
			kept = append(kept, it)
		}
	}
	return value.NewContainer(b.Cardinality(), b.BaseType(), kept...), nil
}

// index returns the n-th item (1-based) of an ordered container. An index
// out of range is NULL.
func (c *call) index(e *ast.Expr, a value.Value) (value.Value, error) {
	n, err := c.intAttr(e, "n", 0, true)
	if err != nil {
		return value.Null(), err
	}
	if a.IsNull() {
		return value.Null(), nil
	}
	if a.Kind() != value.KindOrdered {
		return value.Null(), c.fail(e, nil, "expected an ordered container, got %s", a.Kind())
	}
	items := a.Items()
	if n < 1 || n > int64(len(items)) {
		return value.Null(), nil
	}
	return value.NewSingle(items[n-1]), nil
}

func (c *call) fieldValue(e *ast.Expr, a value.Value) (value.Value, error) {
	if a.IsNull() {
		return value.Null(), nil
	}
	if a.Kind() != value.KindRecord {
		return value.Null(), c.fail(e, nil, "expected a record, got %s", a.Kind())
	}
	f, ok := a.Field(e.AttrOr("fieldIdentifier", ""))
	if !ok {
		return value.Null(), nil
	}
	return f, nil
}
