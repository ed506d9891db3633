package app

import (
	"strings"
	"testing"
	"time"
)

func TestTokenConfigRequiresBothSecrets(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		access  string
		refresh string
		wantErr string
	}{
		{name: "both missing", wantErr: "RIPPLE_ACCESS_TOKEN_SECRET"},
		{name: "refresh missing", access: "a-secret", wantErr: "RIPPLE_REFRESH_TOKEN_SECRET"},
		{name: "access missing", refresh: "r-secret", wantErr: "RIPPLE_ACCESS_TOKEN_SECRET"},
		{name: "both set", access: "a-secret", refresh: "r-secret"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Config{
				AccessTokenSecret:  tc.access,
				RefreshTokenSecret: tc.refresh,
				AccessTTL:          600 * time.Second,
			}

			got, err := cfg.TokenConfig()
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("TokenConfig() err=%v, want mention of %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("TokenConfig() unexpected err: %v", err)
			}
			if string(got.AccessSecret) != tc.access || string(got.RefreshSecret) != tc.refresh {
				t.Fatalf("TokenConfig() secrets not carried over: %+v", got)
			}
			if got.AccessTTL != 600*time.Second {
				t.Fatalf("TokenConfig() AccessTTL=%v", got.AccessTTL)
			}
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.HTTPAddr == "" {
		t.Fatal("HTTPAddr default missing")
	}
	if cfg.AccessTTL <= 0 {
		t.Fatalf("AccessTTL default = %v, want positive", cfg.AccessTTL)
	}
	if cfg.RefreshTTL < 0 {
		t.Fatalf("RefreshTTL default = %v, want >= 0", cfg.RefreshTTL)
	}
}

func TestEnvHelpersFallBackOnGarbage(t *testing.T) {
	t.Setenv("RIPPLE_TEST_INT", "-3")
	t.Setenv("RIPPLE_TEST_DUR", "soon")
	t.Setenv("RIPPLE_TEST_BOOL", "kinda")

	if got := EnvInt("RIPPLE_TEST_INT", 7); got != 7 {
		t.Fatalf("EnvInt=%d want 7", got)
	}
	if got := EnvDuration("RIPPLE_TEST_DUR", time.Minute); got != time.Minute {
		t.Fatalf("EnvDuration=%v want 1m", got)
	}
	if got := EnvBool("RIPPLE_TEST_BOOL", true); got != true {
		t.Fatalf("EnvBool=%v want true", got)
	}
}
