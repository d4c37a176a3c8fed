package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/hydration-cup/internal/config"
	"github.com/sweeney/hydration-cup/internal/mqtt"
	"github.com/sweeney/hydration-cup/internal/status"
)

// TestEnvVarNames verifies the env var constants match what pi-helper writes
// to /run/pi-helper.env. If pi-helper changes its var names, this test fails
// and we update the constants.
func TestEnvVarNames(t *testing.T) {
	want := map[string]string{
		"NETWORK_TYPE":        envNetworkType,
		"NETWORK_IP":          envNetworkIP,
		"NETWORK_STATUS":      envNetworkStatus,
		"NETWORK_GATEWAY":     envNetworkGateway,
		"NETWORK_WIFI_STATUS": envNetworkWifiStatus,
		"NETWORK_WIFI_SSID":   envNetworkWifiSSID,
	}
	for canonical, got := range want {
		if got != canonical {
			t.Errorf("env var constant: got %q, want %q", got, canonical)
		}
	}
}

func TestReadNetworkInfoAllSet(t *testing.T) {
	t.Setenv(envNetworkType, "wifi")
	t.Setenv(envNetworkIP, "192.168.1.100")
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkGateway, "192.168.1.1")
	t.Setenv(envNetworkWifiStatus, "connected")
	t.Setenv(envNetworkWifiSSID, "MyNetwork")

	info := readNetworkInfo()
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo")
	}
	want := status.NetworkInfo{
		Type:       "wifi",
		IP:         "192.168.1.100",
		Status:     "connected",
		Gateway:    "192.168.1.1",
		WifiStatus: "connected",
		SSID:       "MyNetwork",
	}
	if *info != want {
		t.Errorf("got %+v, want %+v", *info, want)
	}
}

func TestReadNetworkInfoNoneSet(t *testing.T) {
	t.Setenv(envNetworkStatus, "")
	if info := readNetworkInfo(); info != nil {
		t.Errorf("expected nil when NETWORK_STATUS is unset, got %+v", info)
	}
}

func TestReadNetworkInfoPartial(t *testing.T) {
	t.Setenv(envNetworkStatus, "disconnected")
	t.Setenv(envNetworkType, "")
	t.Setenv(envNetworkIP, "")

	info := readNetworkInfo()
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo when NETWORK_STATUS is set")
	}
	if info.Status != "disconnected" || info.Type != "" || info.IP != "" {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestApplyOverridesOnlyExplicitFlags(t *testing.T) {
	cfg := config.Default()
	cfg.MQTT.Broker = "tcp://from-file:1883"

	fs, _ := newFlagSet()
	if err := fs.Parse([]string{"-http", ":9090", "-monitoring-duration", "10m", "-log-level", "debug"}); err != nil {
		t.Fatal(err)
	}
	if err := applyOverrides(&cfg, fs); err != nil {
		t.Fatalf("applyOverrides: %v", err)
	}

	if cfg.HTTP.Addr != ":9090" {
		t.Errorf("http addr: got %q", cfg.HTTP.Addr)
	}
	if cfg.Monitoring.MonitoringDurationS != 600 {
		t.Errorf("monitoring duration: got %d, want 600", cfg.Monitoring.MonitoringDurationS)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level: got %q", cfg.Log.Level)
	}
	if cfg.MQTT.Broker != "tcp://from-file:1883" {
		t.Errorf("broker should keep the file value, got %q", cfg.MQTT.Broker)
	}
	if cfg.Monitoring.AlertDurationS != config.Default().Monitoring.AlertDurationS {
		t.Errorf("alert duration changed without a flag: %d", cfg.Monitoring.AlertDurationS)
	}
}

func TestApplyOverridesEmptyBrokerDisablesMQTT(t *testing.T) {
	cfg := config.Default()
	cfg.MQTT.Broker = "tcp://from-file:1883"

	fs, _ := newFlagSet()
	if err := fs.Parse([]string{"-broker", ""}); err != nil {
		t.Fatal(err)
	}
	if err := applyOverrides(&cfg, fs); err != nil {
		t.Fatalf("applyOverrides: %v", err)
	}
	if cfg.MQTT.Broker != "" {
		t.Errorf("broker: got %q, want empty", cfg.MQTT.Broker)
	}
}

func TestApplyOverridesValidates(t *testing.T) {
	for _, args := range [][]string{
		{"-alert-duration", "0s"},
		{"-log-level", "loud"},
	} {
		cfg := config.Default()
		fs, _ := newFlagSet()
		if err := fs.Parse(args); err != nil {
			t.Fatal(err)
		}
		if err := applyOverrides(&cfg, fs); err == nil {
			t.Errorf("%v: expected validation error", args)
		}
	}
}

func TestSignalName(t *testing.T) {
	tests := []struct {
		sig  os.Signal
		want string
	}{
		{syscall.SIGINT, "SIGINT"},
		{syscall.SIGTERM, "SIGTERM"},
		{syscall.SIGHUP, "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := signalName(tt.sig); got != tt.want {
			t.Errorf("signalName(%v): got %q, want %q", tt.sig, got, tt.want)
		}
	}
}

// blockingRunner runs until its context is cancelled.
type blockingRunner struct {
	started chan struct{}
	err     error
}

func (r *blockingRunner) Run(ctx context.Context) error {
	close(r.started)
	<-ctx.Done()
	return r.err
}

// failingRunner returns immediately.
type failingRunner struct{ err error }

func (r failingRunner) Run(context.Context) error { return r.err }

func newTestTracker() *status.Tracker {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	return status.NewTracker(start, status.Config{}, func() time.Time { return start.Add(time.Minute) })
}

func systemEventNames(pub *mqtt.FakePublisher) []string {
	var names []string
	for _, ev := range pub.SystemEvents {
		names = append(names, ev.Event)
	}
	return names
}

func TestSuperviseShutdownOnSignal(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	pub.Connected = true
	tracker := newTestTracker()
	loop := &blockingRunner{started: make(chan struct{})}
	sig := make(chan os.Signal)

	errCh := make(chan error, 1)
	go func() {
		errCh <- supervise(loop, pub, pub, tracker, nil, nil, sig, zap.NewNop().Sugar())
	}()
	<-loop.started
	sig <- syscall.SIGTERM

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("supervise: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("supervise did not return after signal")
	}

	if len(pub.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %v", systemEventNames(pub))
	}
	ev := pub.SystemEvents[0]
	if ev.Event != "SHUTDOWN" || ev.Reason != "SIGTERM" || !ev.Retained {
		t.Errorf("unexpected shutdown event: %+v", ev)
	}

	var payload status.StatusJSON
	if err := json.Unmarshal(pub.SystemPayloads[0], &payload); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if payload.Status.Event != "SHUTDOWN" || payload.Status.Reason != "SIGTERM" {
		t.Errorf("payload event/reason: %+v", payload.Status)
	}
	if !payload.Status.MQTT.Connected {
		t.Error("payload should report the broker as connected")
	}
}

func TestSuperviseHeartbeat(t *testing.T) {
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkIP, "10.0.0.7")

	pub := mqtt.NewFakePublisher()
	tracker := newTestTracker()
	loop := &blockingRunner{started: make(chan struct{})}
	heartbeat := make(chan time.Time)
	sig := make(chan os.Signal)

	errCh := make(chan error, 1)
	go func() {
		errCh <- supervise(loop, pub, pub, tracker, heartbeat, nil, sig, zap.NewNop().Sugar())
	}()
	<-loop.started
	heartbeat <- time.Now()
	sig <- syscall.SIGINT
	if err := <-errCh; err != nil {
		t.Fatalf("supervise: %v", err)
	}

	names := systemEventNames(pub)
	if len(names) != 2 || names[0] != "HEARTBEAT" || names[1] != "SHUTDOWN" {
		t.Fatalf("system events: got %v, want [HEARTBEAT SHUTDOWN]", names)
	}
	if pub.SystemEvents[0].Retained {
		t.Error("heartbeat should not be retained")
	}
	snap := tracker.Snapshot()
	if snap.Network == nil || snap.Network.IP != "10.0.0.7" {
		t.Errorf("heartbeat should refresh network info, got %+v", snap.Network)
	}
}

func TestSuperviseRefreshTracksConnection(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	tracker := newTestTracker()
	loop := &blockingRunner{started: make(chan struct{})}
	refresh := make(chan time.Time)
	sig := make(chan os.Signal)

	errCh := make(chan error, 1)
	go func() {
		errCh <- supervise(loop, mqtt.NopPublisher{}, pub, tracker, nil, refresh, sig, zap.NewNop().Sugar())
	}()
	<-loop.started

	pub.Connected = true
	refresh <- time.Now()
	// A second send only completes once the first refresh has been handled.
	refresh <- time.Now()
	if !tracker.Snapshot().MQTTConnected {
		t.Error("expected tracker to report MQTT connected")
	}

	sig <- syscall.SIGINT
	<-errCh
}

func TestSuperviseLoopExit(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	boom := errors.New("servo gone")

	err := supervise(failingRunner{err: boom}, pub, pub, newTestTracker(), nil, nil, nil, zap.NewNop().Sugar())
	if !errors.Is(err, boom) {
		t.Fatalf("expected loop error, got %v", err)
	}
	last, ok := pub.LastSystem()
	if !ok || last.Event != "SHUTDOWN" || last.Reason != "LOOP_EXIT" {
		t.Errorf("expected LOOP_EXIT shutdown, got %+v", pub.SystemEvents)
	}
}

func TestSuperviseLoopExitWithoutError(t *testing.T) {
	err := supervise(failingRunner{}, mqtt.NopPublisher{}, mqtt.NopPublisher{}, newTestTracker(), nil, nil, nil, zap.NewNop().Sugar())
	if err == nil {
		t.Fatal("an unexpected loop exit should be reported as an error")
	}
}

func TestPublishSystemFailureIsNotFatal(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	pub.PublishSystemError = errors.New("broker down")

	publishSystem(pub, pub, newTestTracker(), "STARTUP", "", true, zap.NewNop().Sugar())
	if len(pub.SystemEvents) != 0 {
		t.Errorf("nothing should be recorded on failure, got %+v", pub.SystemEvents)
	}
}
