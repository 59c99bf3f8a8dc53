package logger

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLevels(t *testing.T) {
	cases := []struct {
		env, level string
		want       zerolog.Level
	}{
		{"production", "", zerolog.InfoLevel},
		{"development", "", zerolog.DebugLevel},
		{"production", "warn", zerolog.WarnLevel},
		{"development", "error", zerolog.ErrorLevel},
		{"production", "loud", zerolog.InfoLevel},
	}
	for _, tc := range cases {
		t.Setenv("ENV", tc.env)
		t.Setenv("LOG_LEVEL", tc.level)
		if got := New().GetLevel(); got != tc.want {
			t.Errorf("ENV=%s LOG_LEVEL=%q: level %s, want %s", tc.env, tc.level, got, tc.want)
		}
	}
	if zerolog.LevelFieldName != "severity" {
		t.Errorf("expected severity level field, got %s", zerolog.LevelFieldName)
	}
}
