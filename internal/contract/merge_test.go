package contract

import (
	"testing"

	"github.com/entctl/entctl/internal/system"
	"github.com/stretchr/testify/assert"
)

func TestEffectiveNoOverrides(t *testing.T) {
	cfg := EntitlementConfig{
		Directives: Directives{AdditionalPackages: []string{"infra-tools"}},
	}
	got := cfg.Effective(&system.Machine{Series: "noble"}, "")
	assert.Equal(t, []string{"infra-tools"}, got.AdditionalPackages)
}

func TestEffectiveLastMatchWins(t *testing.T) {
	cfg := EntitlementConfig{
		Directives: Directives{SnapChannel: "stable"},
		Overrides: []Override{
			{
				Selector:   Selector{Series: "noble"},
				Directives: map[string]any{"snapChannel": "candidate"},
			},
			{
				Selector:   Selector{Series: "noble"},
				Directives: map[string]any{"snapChannel": "edge"},
			},
		},
	}
	got := cfg.Effective(&system.Machine{Series: "noble"}, "")
	assert.Equal(t, "edge", got.SnapChannel, "later matching override must win")
}

func TestEffectiveSelectorFiltering(t *testing.T) {
	cfg := EntitlementConfig{
		Directives: Directives{SnapChannel: "stable"},
		Overrides: []Override{
			{
				Selector:   Selector{Series: "jammy"},
				Directives: map[string]any{"snapChannel": "jammy-only"},
			},
			{
				Selector:   Selector{Cloud: "aws"},
				Directives: map[string]any{"snapChannel": "aws-only"},
			},
			{
				Selector:   Selector{Variant: "intel-iotg"},
				Directives: map[string]any{"additionalPackages": []any{"kernel-intel-iotg"}},
			},
		},
	}

	m := &system.Machine{Series: "noble", Cloud: "gce"}

	got := cfg.Effective(m, "")
	assert.Equal(t, "stable", got.SnapChannel, "non-matching selectors must not apply")
	assert.Empty(t, got.AdditionalPackages)

	got = cfg.Effective(m, "intel-iotg")
	assert.Equal(t, []string{"kernel-intel-iotg"}, got.AdditionalPackages,
		"variant selector must apply when that variant is in effect")
}

func TestEffectiveOverridePatchesOnlyNamedKeys(t *testing.T) {
	cfg := EntitlementConfig{
		Directives: Directives{
			SnapChannel:        "stable",
			AdditionalPackages: []string{"base-pkg"},
		},
		Overrides: []Override{
			{
				Selector:   Selector{Cloud: "aws"},
				Directives: map[string]any{"snapChannel": "aws/stable"},
			},
		},
	}
	got := cfg.Effective(&system.Machine{Cloud: "aws"}, "")
	assert.Equal(t, "aws/stable", got.SnapChannel)
	assert.Equal(t, []string{"base-pkg"}, got.AdditionalPackages, "unmentioned keys keep base values")
}

func TestVariantNames(t *testing.T) {
	cfg := EntitlementConfig{
		Overrides: []Override{
			{Selector: Selector{Variant: "generic"}},
			{Selector: Selector{Cloud: "aws"}},
			{Selector: Selector{Variant: "intel-iotg"}},
			{Selector: Selector{Variant: "generic"}},
		},
	}
	assert.Equal(t, []string{"generic", "intel-iotg"}, cfg.VariantNames())
	assert.Empty(t, EntitlementConfig{}.VariantNames())
}
