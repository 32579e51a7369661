package contract

import (
	"encoding/json"

	"github.com/entctl/entctl/internal/system"
)

// Effective returns the directive set after applying every override whose
// selector matches the machine and variant in effect, in listed order.
// Later matches win over earlier ones for overlapping keys.
func (c EntitlementConfig) Effective(m *system.Machine, variant string) Directives {
	if len(c.Overrides) == 0 {
		return c.Directives
	}

	merged := toMap(c.Directives)
	for _, o := range c.Overrides {
		if !o.Selector.Matches(m, variant) {
			continue
		}
		for k, v := range o.Directives {
			merged[k] = v
		}
	}

	var out Directives
	fromMap(merged, &out)
	return out
}

func toMap(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{}
	}
	if m == nil {
		m = map[string]any{}
	}
	return m
}

func fromMap(m map[string]any, v any) {
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	_ = json.Unmarshal(data, v)
}
