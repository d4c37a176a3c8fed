package servo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// fakeSysfs lays out pwmchip0 with an already exported channel 0.
func fakeSysfs(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	ch := filepath.Join(root, "pwmchip0", "pwm0")
	if err := os.MkdirAll(ch, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, f := range []string{
		filepath.Join(root, "pwmchip0", "export"),
		filepath.Join(root, "pwmchip0", "unexport"),
		filepath.Join(ch, "period"),
		filepath.Join(ch, "duty_cycle"),
		filepath.Join(ch, "enable"),
	} {
		if err := os.WriteFile(f, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func readSysfs(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return strings.TrimSpace(string(b))
}

func testPWMConfig(root string) PWMConfig {
	return PWMConfig{
		Root:     root,
		MinAngle: DefaultMinAngle,
		MaxAngle: DefaultMaxAngle,
		MinPulse: DefaultMinPulse,
		MaxPulse: DefaultMaxPulse,
	}
}

func TestPWMDriverSetsPeriod(t *testing.T) {
	root := fakeSysfs(t)
	if _, err := NewPWMDriver(testPWMConfig(root)); err != nil {
		t.Fatalf("NewPWMDriver: %v", err)
	}
	if got := readSysfs(t, filepath.Join(root, "pwmchip0", "pwm0", "period")); got != "20000000" {
		t.Errorf("period: got %q, want 20000000", got)
	}
}

func TestPWMDriverPulseMapping(t *testing.T) {
	d := &PWMDriver{cfg: testPWMConfig("")}

	tests := []struct {
		angle float64
		want  time.Duration
	}{
		{-90, 500 * time.Microsecond},
		{0, 1450 * time.Microsecond},
		{90, 2400 * time.Microsecond},
		{-180, 500 * time.Microsecond},
		{180, 2400 * time.Microsecond},
	}
	for _, tt := range tests {
		if got := d.PulseFor(tt.angle); got != tt.want {
			t.Errorf("PulseFor(%v): got %v, want %v", tt.angle, got, tt.want)
		}
	}
}

func TestPWMDriverSetAngleAndDetach(t *testing.T) {
	root := fakeSysfs(t)
	d, err := NewPWMDriver(testPWMConfig(root))
	if err != nil {
		t.Fatalf("NewPWMDriver: %v", err)
	}
	ch := filepath.Join(root, "pwmchip0", "pwm0")

	if err := d.SetAngle(90); err != nil {
		t.Fatalf("SetAngle: %v", err)
	}
	if got := readSysfs(t, filepath.Join(ch, "duty_cycle")); got != "2400000" {
		t.Errorf("duty_cycle: got %q, want 2400000", got)
	}
	if got := readSysfs(t, filepath.Join(ch, "enable")); got != "1" {
		t.Errorf("enable: got %q, want 1", got)
	}

	if err := d.Detach(); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	if got := readSysfs(t, filepath.Join(ch, "enable")); got != "0" {
		t.Errorf("enable after detach: got %q, want 0", got)
	}

	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := readSysfs(t, filepath.Join(root, "pwmchip0", "unexport")); got != "0" {
		t.Errorf("unexport: got %q, want 0", got)
	}
}

func TestPWMDriverRejectsBadPulseRange(t *testing.T) {
	cfg := testPWMConfig(t.TempDir())
	cfg.MaxPulse = cfg.MinPulse
	if _, err := NewPWMDriver(cfg); err == nil {
		t.Fatal("expected error for empty pulse range")
	}
}
