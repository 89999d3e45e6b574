package session

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/telltale-dev/telltale/internal/schema"
)

// coerceValue turns raw edit input into the control's value type before it
// goes on the wire. This is deliberately looser than the server's
// normalization: no clamping, snapping, or membership checks happen here,
// the authority owns those.
func coerceValue(c *schema.Control, raw any) (any, error) {
	switch c.ValueType {
	case schema.TypeBool:
		return truthy(raw), nil
	case schema.TypeInt:
		n, err := parseFloat(raw)
		if err != nil {
			return nil, err
		}
		return int(n), nil
	case schema.TypeFloat:
		return parseFloat(raw)
	case schema.TypeString:
		if s, ok := raw.(string); ok {
			return s, nil
		}
		return fmt.Sprintf("%v", raw), nil
	}
	return raw, nil
}

// truthy interprets a value the way a toggle does: absent and the usual
// negative spellings are false, everything else is true.
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case int:
		return v != 0
	case float64:
		return v != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "false", "0", "off", "no":
			return false
		}
		return true
	}
	return true
}

func parseFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot interpret %q as a number", v)
		}
		return n, nil
	}
	return 0, fmt.Errorf("cannot interpret %T as a number", raw)
}
