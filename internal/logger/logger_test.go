package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewWithWriterFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(WarnLevel, &buf)

	log.Infow("cup placed", "weight_g", 412.5)
	log.Warnw("sensor fault", "error", "not ready")
	log.Sync()

	out := buf.String()
	if strings.Contains(out, "cup placed") {
		t.Errorf("info line should be filtered at warn level:\n%s", out)
	}
	if !strings.Contains(out, "WARN") || !strings.Contains(out, "sensor fault") {
		t.Errorf("expected capitalised warn line:\n%s", out)
	}
	if !strings.Contains(out, `"error": "not ready"`) {
		t.Errorf("expected structured field:\n%s", out)
	}
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("verbose", &buf)
	log.Debug("hidden")
	log.Info("shown")
	log.Sync()

	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestValidLevel(t *testing.T) {
	for _, l := range []string{"debug", "info", "warn", "error"} {
		if !ValidLevel(l) {
			t.Errorf("%s should be valid", l)
		}
	}
	if ValidLevel("INFO") || ValidLevel("") {
		t.Error("unexpected valid level")
	}
}
