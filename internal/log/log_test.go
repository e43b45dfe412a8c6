package log

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
)

func capture(t *testing.T, level Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(LevelInfo)
	})
	return &buf
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		" WARN ":  LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"loud":    LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q): expected %s, got %s", in, want, got)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, LevelWarn)

	Debug("hidden debug")
	Info("hidden info")
	Warn("shown warn", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("expected debug/info to be filtered, got %q", out)
	}
	if !strings.Contains(out, "[WARN] shown warn key=value") {
		t.Errorf("expected warn line, got %q", out)
	}
}

func TestErrorIncludesErrAndQuotesSpaces(t *testing.T) {
	buf := capture(t, LevelDebug)

	Error("save failed", errors.New("disk full"), "path", "/tmp/x", "odd")

	out := buf.String()
	if !strings.Contains(out, `[ERROR] save failed err="disk full" path=/tmp/x`) {
		t.Errorf("unexpected error line %q", out)
	}
	if strings.Contains(out, "odd") {
		t.Errorf("expected dangling key to be dropped, got %q", out)
	}
}
