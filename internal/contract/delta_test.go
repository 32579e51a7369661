package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDelta(t *testing.T) {
	tests := []struct {
		name  string
		orig  map[string]any
		delta map[string]any
		want  map[string]any
	}{
		{
			name:  "empty_delta_keeps_orig",
			orig:  map[string]any{"entitled": true},
			delta: map[string]any{},
			want:  map[string]any{"entitled": true},
		},
		{
			name:  "delta_value_wins",
			orig:  map[string]any{"entitled": true},
			delta: map[string]any{"entitled": false},
			want:  map[string]any{"entitled": false},
		},
		{
			name: "nested_maps_merge",
			orig: map[string]any{
				"obligations": map[string]any{"enableByDefault": false},
				"entitled":    true,
			},
			delta: map[string]any{
				"obligations": map[string]any{"enableByDefault": true},
			},
			want: map[string]any{
				"obligations": map[string]any{"enableByDefault": true},
				"entitled":    true,
			},
		},
		{
			name:  "dropped_removes_key",
			orig:  map[string]any{"entitled": true, "directives": map[string]any{"snapChannel": "stable"}},
			delta: map[string]any{"directives": Dropped},
			want:  map[string]any{"entitled": true},
		},
		{
			name:  "scalar_replaced_by_map",
			orig:  map[string]any{"affordances": "none"},
			delta: map[string]any{"affordances": map[string]any{"series": []any{"noble"}}},
			want:  map[string]any{"affordances": map[string]any{"series": []any{"noble"}}},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			origCopy := map[string]any{}
			for k, v := range tt.orig {
				origCopy[k] = v
			}
			got := ApplyDelta(tt.orig, tt.delta)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, origCopy, tt.orig, "ApplyDelta must not mutate orig")
		})
	}
}

func TestDiff(t *testing.T) {
	orig := map[string]any{
		"entitled": true,
		"obligations": map[string]any{
			"enableByDefault": false,
		},
		"directives": map[string]any{
			"snapChannel": "stable",
		},
	}
	next := map[string]any{
		"entitled": false,
		"obligations": map[string]any{
			"enableByDefault": true,
		},
		"affordances": map[string]any{
			"series": []any{"noble"},
		},
	}

	delta := Diff(orig, next)

	assert.Equal(t, false, delta["entitled"])
	assert.Equal(t, map[string]any{"enableByDefault": true}, delta["obligations"])
	assert.Equal(t, Dropped, delta["directives"])
	assert.Equal(t, map[string]any{"series": []any{"noble"}}, delta["affordances"])

	// Round trip: applying the diff reproduces next.
	assert.Equal(t, next, ApplyDelta(orig, delta))
}

func TestDiffNoChanges(t *testing.T) {
	doc := map[string]any{
		"entitled":   true,
		"directives": map[string]any{"aptSuites": []any{"infra-security"}},
	}
	assert.Empty(t, Diff(doc, doc))
}

func TestEntitlementMapRoundTrip(t *testing.T) {
	cfg := EntitlementConfig{
		Entitled:    true,
		Directives:  Directives{SnapChannel: "stable", AdditionalPackages: []string{"p1"}},
		Obligations: Obligations{EnableByDefault: true},
	}
	got := EntitlementFromMap(EntitlementToMap(cfg))
	assert.Equal(t, cfg, got)
}
