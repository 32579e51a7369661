package status

import "testing"

func TestUserFacingPrecedence(t *testing.T) {
	tests := []struct {
		name          string
		applicability ApplicabilityStatus
		appDetail     string
		contract      ContractStatus
		application   ApplicationStatus
		liveDetail    string
		want          UserFacingStatus
		wantDetail    string
	}{
		{
			name:          "inapplicable_wins_over_everything",
			applicability: Inapplicable,
			appDetail:     "series xenial is not supported",
			contract:      Entitled,
			application:   Enabled,
			want:          StatusInapplicable,
			wantDetail:    "series xenial is not supported",
		},
		{
			name:          "inapplicable_wins_over_unentitled",
			applicability: Inapplicable,
			appDetail:     "arm64 is not supported",
			contract:      Unentitled,
			application:   Disabled,
			want:          StatusInapplicable,
			wantDetail:    "arm64 is not supported",
		},
		{
			name:          "unentitled_masks_enabled",
			applicability: Applicable,
			contract:      Unentitled,
			application:   Enabled,
			want:          StatusUnavailable,
			wantDetail:    "Test Service is not entitled",
		},
		{
			name:          "unentitled_masks_warning",
			applicability: Applicable,
			contract:      Unentitled,
			application:   Warning,
			liveDetail:    "package missing",
			want:          StatusUnavailable,
			wantDetail:    "Test Service is not entitled",
		},
		{
			name:          "warning_wins_over_enabled",
			applicability: Applicable,
			contract:      Entitled,
			application:   Warning,
			liveDetail:    "apt source configured but package missing",
			want:          StatusWarning,
			wantDetail:    "apt source configured but package missing",
		},
		{
			name:          "enabled_is_active",
			applicability: Applicable,
			contract:      Entitled,
			application:   Enabled,
			want:          StatusActive,
		},
		{
			name:          "disabled_is_inactive",
			applicability: Applicable,
			contract:      Entitled,
			application:   Disabled,
			want:          StatusInactive,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := UserFacing(
				tt.applicability, tt.appDetail,
				tt.contract,
				tt.application, tt.liveDetail,
				"Test Service",
			)
			if got.Status != tt.want {
				t.Errorf("UserFacing() status = %q, want %q", got.Status, tt.want)
			}
			if got.Detail != tt.wantDetail {
				t.Errorf("UserFacing() detail = %q, want %q", got.Detail, tt.wantDetail)
			}
		})
	}
}
