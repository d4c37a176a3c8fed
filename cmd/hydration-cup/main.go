// Command hydration-cup watches the weight of a cup and tilts it with a servo
// when nothing has been drunk for too long.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/sweeney/hydration-cup/internal/clock"
	"github.com/sweeney/hydration-cup/internal/config"
	"github.com/sweeney/hydration-cup/internal/eventlog"
	"github.com/sweeney/hydration-cup/internal/logger"
	"github.com/sweeney/hydration-cup/internal/logic"
	"github.com/sweeney/hydration-cup/internal/metrics"
	"github.com/sweeney/hydration-cup/internal/monitor"
	"github.com/sweeney/hydration-cup/internal/mqtt"
	"github.com/sweeney/hydration-cup/internal/sensor"
	"github.com/sweeney/hydration-cup/internal/servo"
	"github.com/sweeney/hydration-cup/internal/status"
	"github.com/sweeney/hydration-cup/internal/web"
)

// statusRefresh is how often the MQTT connection state is copied into the tracker.
const statusRefresh = 5 * time.Second

type options struct {
	configPath  string
	printWeight bool
}

// newFlagSet declares the command-line flags. Flags other than -config and
// -print-weight override the file only when given explicitly.
func newFlagSet() (*flag.FlagSet, *options) {
	opts := &options{}
	fs := flag.NewFlagSet("hydration-cup", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "YAML config file (built-in defaults when empty)")
	fs.BoolVar(&opts.printWeight, "print-weight", false, "Print the current weight and exit")
	fs.String("broker", "", "MQTT broker address (empty disables MQTT)")
	fs.String("http", "", "HTTP status address (empty disables)")
	fs.String("log-level", "", "Log level: debug, info, warn, error")
	fs.Duration("monitoring-duration", 0, "Time without a drink before alerting")
	fs.Duration("alert-duration", 0, "Duration of the alert sweep")
	return fs, opts
}

// applyOverrides copies explicitly set flags onto cfg and validates the result.
func applyOverrides(cfg *config.Config, fs *flag.FlagSet) error {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "broker":
			cfg.MQTT.Broker = f.Value.String()
		case "http":
			cfg.HTTP.Addr = f.Value.String()
		case "log-level":
			cfg.Log.Level = f.Value.String()
		case "monitoring-duration":
			cfg.Monitoring.MonitoringDurationS = int(f.Value.(flag.Getter).Get().(time.Duration) / time.Second)
		case "alert-duration":
			cfg.Monitoring.AlertDurationS = int(f.Value.(flag.Getter).Get().(time.Duration) / time.Second)
		}
	})
	return cfg.Validate()
}

func main() {
	fs, opts := newFlagSet()
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: load config: %v\n", err)
		os.Exit(1)
	}
	if err := applyOverrides(cfg, fs); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level)
	if err := run(cfg, opts.printWeight, log); err != nil {
		log.Errorw("fatal", "error", err)
		log.Sync()
		os.Exit(1)
	}
	log.Sync()
}

func run(cfg *config.Config, printWeight bool, log *zap.SugaredLogger) error {
	// Initialize load cell. NewScale closes the device if taring fails.
	dev, err := sensor.NewHX711(cfg.GPIO.Chip, cfg.GPIO.SensorDataPin, cfg.GPIO.SensorClockPin)
	if err != nil {
		return fmt.Errorf("init hx711: %w", err)
	}
	scale, err := sensor.NewScale(dev, cfg.Sensor.ReferenceUnit)
	if err != nil {
		return fmt.Errorf("init scale: %w", err)
	}
	defer scale.Close()

	if printWeight {
		w, err := scale.Weight(cfg.Sensor.ReadTimes)
		if err != nil {
			return fmt.Errorf("read weight: %w", err)
		}
		fmt.Printf("weight: %.2f g\n", w)
		return nil
	}

	// Initialize servo
	drv, err := servo.NewPWMDriver(servo.PWMConfig{
		Chip:     cfg.Servo.PWMChip,
		Channel:  cfg.Servo.PWMChannel,
		MinAngle: cfg.Servo.MinAngle,
		MaxAngle: cfg.Servo.MaxAngle,
		MinPulse: time.Duration(cfg.Servo.MinPulseUS) * time.Microsecond,
		MaxPulse: time.Duration(cfg.Servo.MaxPulseUS) * time.Microsecond,
	})
	if err != nil {
		return fmt.Errorf("init servo: %w", err)
	}
	actuator, err := servo.NewController(drv, clock.Real{}, cfg.Servo.MinAngle, cfg.Servo.MaxAngle)
	if err != nil {
		drv.Close()
		return fmt.Errorf("init servo: %w", err)
	}
	defer actuator.Close()

	weightLog, created, err := eventlog.Open(cfg.Log.Path)
	if err != nil {
		return fmt.Errorf("open weight log: %w", err)
	}
	if created {
		log.Infow("created weight log", "path", weightLog.Path())
	}

	// MQTT is optional; the cup works without a broker.
	var (
		publisher mqtt.Publisher        = mqtt.NopPublisher{}
		conn      mqtt.ConnectionStatus = mqtt.NopPublisher{}
	)
	if cfg.MQTT.Broker != "" {
		p, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, log)
		if err != nil {
			log.Warnw("mqtt disabled", "broker", cfg.MQTT.Broker, "error", err)
		} else {
			publisher, conn = p, p
		}
	}
	defer publisher.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		ThresholdG:  cfg.Monitoring.WeightThresholdG,
		MonitoringS: int64(cfg.Monitoring.MonitoringDurationS),
		AlertS:      int64(cfg.Monitoring.AlertDurationS),
		PollMs:      int64(cfg.Monitoring.PollIntervalMS),
		SettleMs:    int64(cfg.Monitoring.SettleDelayMS),
		HeartbeatS:  int64(cfg.MQTT.HeartbeatS),
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP.Addr,
		LogPath:     cfg.Log.Path,
	}, nil)
	if info := readNetworkInfo(); info != nil {
		tracker.SetNetwork(info)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	publishSystem(publisher, conn, tracker, "STARTUP", "", true, log)

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, web.Options{
			Gatherer: reg,
			Intakes: eventlog.IntakeReader{
				Path:   cfg.Log.Path,
				Params: logic.ClassifyParams{CupWeightG: cfg.Monitoring.CupWeightG, GramToML: cfg.Monitoring.GramToML},
			},
		})
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorw("http server error", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Infow("http status server listening", "addr", cfg.HTTP.Addr)
	}

	loop, err := monitor.New(monitor.Config{
		WeightThresholdG:   cfg.Monitoring.WeightThresholdG,
		ReadTimes:          cfg.Sensor.ReadTimes,
		PollInterval:       cfg.Monitoring.PollInterval(),
		SettleDelay:        cfg.Monitoring.SettleDelay(),
		MonitoringDuration: cfg.Monitoring.MonitoringDuration(),
		AlertDuration:      cfg.Monitoring.AlertDuration(),
	}, monitor.Deps{
		Sensor:    scale,
		Actuator:  actuator,
		Log:       weightLog,
		Publisher: publisher,
		Tracker:   tracker,
		Metrics:   m,
		Clock:     clock.Real{},
		Logger:    log,
	})
	if err != nil {
		return fmt.Errorf("init monitor: %w", err)
	}

	log.Infow("started",
		"servo_pin", cfg.GPIO.ServoPin,
		"sensor_pins", []int{cfg.GPIO.SensorDataPin, cfg.GPIO.SensorClockPin},
		"broker", cfg.MQTT.Broker,
		"heartbeat", cfg.MQTT.Heartbeat(),
		"log", cfg.Log.Path)

	var heartbeat <-chan time.Time
	if hb := cfg.MQTT.Heartbeat(); hb > 0 {
		t := time.NewTicker(hb)
		defer t.Stop()
		heartbeat = t.C
	}
	refresh := time.NewTicker(statusRefresh)
	defer refresh.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return supervise(loop, publisher, conn, tracker, heartbeat, refresh.C, sigCh, log)
}

type runner interface {
	Run(ctx context.Context) error
}

// supervise runs the loop in its own goroutine and handles signals,
// heartbeats and status refreshes until the loop stops.
func supervise(loop runner, publisher mqtt.Publisher, conn mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat, refresh <-chan time.Time, sig <-chan os.Signal, log *zap.SugaredLogger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	for {
		select {
		case s := <-sig:
			name := signalName(s)
			log.Infow("received signal, shutting down", "signal", name)
			cancel()
			err := <-done
			publishSystem(publisher, conn, tracker, "SHUTDOWN", name, true, log)
			return err

		case err := <-done:
			publishSystem(publisher, conn, tracker, "SHUTDOWN", "LOOP_EXIT", true, log)
			if err == nil {
				err = errors.New("monitoring loop exited")
			}
			return err

		case <-heartbeat:
			if info := readNetworkInfo(); info != nil {
				tracker.SetNetwork(info)
			}
			snap := tracker.Snapshot()
			log.Infow("heartbeat", "state", snap.State, "uptime", snap.Uptime().Truncate(time.Second), "intakes", snap.Counts.Intakes)
			publishSystem(publisher, conn, tracker, "HEARTBEAT", "", false, log)

		case <-refresh:
			tracker.SetMQTTConnected(conn.IsConnected())
		}
	}
}

// publishSystem sends a status snapshot on the system topic.
func publishSystem(publisher mqtt.Publisher, conn mqtt.ConnectionStatus, tracker *status.Tracker, event, reason string, retained bool, log *zap.SugaredLogger) {
	tracker.SetMQTTConnected(conn.IsConnected())
	snap := tracker.Snapshot()
	ev := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := publisher.PublishSystem(ev); err != nil {
		log.Warnw("failed to publish system event", "event", event, "error", err)
		return
	}
	log.Debugw("published system event", "event", event)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
