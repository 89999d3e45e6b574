package schema

import (
	"reflect"

	"github.com/telltale-dev/telltale/internal/statepath"
)

// Visible reports whether a control is currently applicable given state.
// A missing rule means always visible, and so does a malformed one (both
// or neither of equals/in set): a broken schema feature must never hide a
// control outright.
func Visible(c *Control, state statepath.Document) bool {
	rule := c.VisibleWhen
	if rule == nil {
		return true
	}
	hasEquals := rule.Equals != nil
	hasIn := rule.In != nil
	if hasEquals == hasIn {
		return true
	}

	value, _ := statepath.Get(state, rule.Path)
	if hasEquals {
		return valuesEqual(value, rule.Equals)
	}
	for _, candidate := range rule.In {
		if valuesEqual(value, candidate) {
			return true
		}
	}
	return false
}

// valuesEqual compares a state value against a rule candidate. Numbers
// compare by value across int/float representations; everything else
// compares structurally.
func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}
