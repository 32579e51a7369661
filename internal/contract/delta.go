package contract

// dropped is the sentinel marking a key removed entirely in a delta, as
// opposed to changed to a zero value.
type dropped struct{}

// Dropped marks a key as removed in a delta map.
var Dropped any = dropped{}

// ApplyDelta deep-merges delta over orig. Delta values win; a Dropped
// marker removes the key entirely. Neither input is mutated.
func ApplyDelta(orig, delta map[string]any) map[string]any {
	merged := make(map[string]any, len(orig))
	for k, v := range orig {
		merged[k] = v
	}
	for k, v := range delta {
		if _, isDropped := v.(dropped); isDropped {
			delete(merged, k)
			continue
		}
		dv, dvOK := v.(map[string]any)
		ov, ovOK := merged[k].(map[string]any)
		if dvOK && ovOK {
			merged[k] = ApplyDelta(ov, dv)
			continue
		}
		merged[k] = v
	}
	return merged
}

// Diff computes the delta turning orig into next: changed and added keys
// carry next's value, keys absent from next carry the Dropped marker, and
// nested maps diff recursively. An empty result means no change.
func Diff(orig, next map[string]any) map[string]any {
	delta := make(map[string]any)
	for k, ov := range orig {
		nv, present := next[k]
		if !present {
			delta[k] = Dropped
			continue
		}
		om, omOK := ov.(map[string]any)
		nm, nmOK := nv.(map[string]any)
		if omOK && nmOK {
			if sub := Diff(om, nm); len(sub) > 0 {
				delta[k] = sub
			}
			continue
		}
		if !equalValue(ov, nv) {
			delta[k] = nv
		}
	}
	for k, nv := range next {
		if _, present := orig[k]; !present {
			delta[k] = nv
		}
	}
	return delta
}

func equalValue(a, b any) bool {
	am, aOK := a.(map[string]any)
	bm, bOK := b.(map[string]any)
	if aOK && bOK {
		return len(Diff(am, bm)) == 0
	}
	as, aOK := a.([]any)
	bs, bOK := b.([]any)
	if aOK && bOK {
		if len(as) != len(bs) {
			return false
		}
		for i := range as {
			if !equalValue(as[i], bs[i]) {
				return false
			}
		}
		return true
	}
	return a == b
}

// EntitlementToMap converts a config fragment to its map form for delta
// computation.
func EntitlementToMap(c EntitlementConfig) map[string]any {
	return toMap(c)
}

// EntitlementFromMap decodes a merged map back into a config fragment.
// Dropped markers must already have been resolved by ApplyDelta.
func EntitlementFromMap(m map[string]any) EntitlementConfig {
	var c EntitlementConfig
	fromMap(m, &c)
	return c
}
