package logging

import (
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"", log.InfoLevel},
		{"nonsense", log.InfoLevel},
		{"debug", log.DebugLevel},
		{"TRACE", log.TraceLevel},
		{"warn", log.WarnLevel},
		{"error", log.ErrorLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
