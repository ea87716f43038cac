package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func reset() {
	SetVerbose(false)
	SetOutput(os.Stderr)
}

func TestSetVerbose(t *testing.T) {
	defer reset()

	SetVerbose(false)
	if IsVerbose() {
		t.Error("expected verbose to be false initially")
	}

	SetVerbose(true)
	if !IsVerbose() {
		t.Error("expected verbose to be true after SetVerbose(true)")
	}
}

func TestLevels_WhenVerbose(t *testing.T) {
	defer reset()

	tests := []struct {
		name string
		log  func(string, ...any)
		want string
	}{
		{"debug", Debug, "[DEBUG] chunk 3 of guide\n"},
		{"info", Info, "[INFO] chunk 3 of guide\n"},
		{"warn", Warn, "[WARN] chunk 3 of guide\n"},
		{"error", Error, "[ERROR] chunk 3 of guide\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			SetOutput(&buf)
			SetVerbose(true)

			tt.log("chunk %d of %s", 3, "guide")

			if buf.String() != tt.want {
				t.Errorf("unexpected output: %q", buf.String())
			}
		})
	}
}

func TestLevels_WhenNotVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Debug("hidden")
	Info("hidden")
	Warn("hidden")
	Section("hidden")

	if buf.Len() > 0 {
		t.Errorf("expected no output when verbose is disabled, got %q", buf.String())
	}
}

func TestError_AlwaysPrinted(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Error("follow-ups failed: %v", "timeout")

	if buf.String() != "[ERROR] follow-ups failed: timeout\n" {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestSection(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Section("Ask")

	if buf.String() != "\n=== Ask ===\n" {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestTimed(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Timed("embedding")()

	if !strings.HasPrefix(buf.String(), "[DEBUG] embedding took ") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}
