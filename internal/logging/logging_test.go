package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		verbose bool
		want    zapcore.Level
	}{
		{"default", Config{}, false, zapcore.InfoLevel},
		{"warn", Config{Level: "warn", Format: "console"}, false, zapcore.WarnLevel},
		{"verbose wins", Config{Level: "error"}, true, zapcore.DebugLevel},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			logger, err := New(tc.cfg, tc.verbose)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if !logger.Core().Enabled(tc.want) {
				t.Fatalf("level %s not enabled", tc.want)
			}
			if tc.want > zapcore.DebugLevel && logger.Core().Enabled(tc.want-1) {
				t.Fatalf("level below %s enabled", tc.want)
			}
		})
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(Config{Format: "xml"}, false); err == nil {
		t.Fatalf("expected format error")
	}
	if _, err := New(Config{Level: "loud"}, false); err == nil {
		t.Fatalf("expected level error")
	}
}
