// gpiohub - message-driven GPIO device hub
//
// gpiohub subscribes to a single command topic on an MQTT broker (or a NATS
// subject), drives actuators on a Raspberry Pi's GPIO header, and runs
// time-bounded sensor monitors that publish readings back to the same topic.
// A simulated hardware backend stands in for the board during development.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gpiohub/internal/connection"
	"github.com/nerrad567/gpiohub/internal/hardware"
	"github.com/nerrad567/gpiohub/internal/hub"
	"github.com/nerrad567/gpiohub/internal/infrastructure/config"
	"github.com/nerrad567/gpiohub/internal/infrastructure/logging"
	"github.com/nerrad567/gpiohub/internal/infrastructure/mqtt"
	"github.com/nerrad567/gpiohub/internal/infrastructure/nats"
	"github.com/nerrad567/gpiohub/internal/monitor"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// messagingClient is what the hub needs from a broker client.
type messagingClient interface {
	connection.Transport
	Publish(topic string, payload []byte) error
	SetOnDisconnect(callback func(err error))
	IsConnected() bool
	Close() error
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the hub together and blocks until ctx is cancelled.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting gpiohub",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	hw, err := hardware.Open(cfg.Hardware, log.Component("hardware"))
	if err != nil {
		return fmt.Errorf("opening hardware: %w", err)
	}
	log.Info("hardware ready", "backend", cfg.Hardware.Backend)

	client := newMessagingClient(cfg, log)
	topic := cfg.Topic()

	// Own events come back on the shared topic; the filter lets the router
	// drop them.
	echo := hub.NewEchoFilter(client, 0)

	monitors := monitor.NewManager(log.Component("monitor"))
	timings := monitorTimings(cfg.Monitor)
	sensors := monitor.NewSensors(hw, echo, topic, timings, log.Component("sensors"))

	devices := hub.NewDevices(hw, monitors, sensors, hub.DeviceOptions{
		DefaultInterval: secondsOf(cfg.Monitor.DefaultInterval),
		DefaultDuration: secondsOf(cfg.Monitor.DefaultDuration),
		KeypadRows:      cfg.Hardware.Keypad.Rows,
		KeypadColumns:   cfg.Hardware.Keypad.Columns,
		Timings:         timings,
		Logger:          log.Component("devices"),
	})
	registry, err := hub.DefaultRegistry(devices)
	if err != nil {
		return fmt.Errorf("registering handlers: %w", err)
	}
	router := hub.NewRouter(registry, echo, log.Component("router"))
	log.Info("handlers registered", "components", registry.Components())

	supervisor := connection.NewSupervisor(client, connection.Config{
		Topic: topic,
		Handler: func(topic string, payload []byte) {
			router.HandleMessage(ctx, topic, payload)
		},
		Delay: cfg.GetReconnectDelay(),
	}, log.Component("connection"))
	client.SetOnDisconnect(supervisor.NotifyDisconnected)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return supervisor.Run(gctx)
	})

	log.Info("initialisation complete, waiting for shutdown signal",
		"transport", cfg.Transport.Kind,
		"topic", topic,
	)

	runErr := g.Wait()
	log.Info("shutdown signal received, cleaning up")

	shutdown(cfg, monitors, hw, client, log)

	log.Info("gpiohub stopped")
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

// shutdown stops every monitor, then releases the hardware, then leaves
// the broker. The order keeps loops from touching a released board.
func shutdown(cfg *config.Config, monitors *monitor.Manager, hw hardware.Hardware, client messagingClient, log *logging.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
	defer cancel()

	log.Info("stopping monitors", "active", monitors.Len())
	if err := monitors.Close(ctx); err != nil {
		log.Error("error stopping monitors", "error", err)
	}

	log.Info("releasing hardware")
	if err := hw.Close(); err != nil {
		log.Error("error releasing hardware", "error", err)
	}

	log.Info("disconnecting from broker")
	if err := client.Close(); err != nil {
		log.Error("error closing broker connection", "error", err)
	}
}

// newMessagingClient builds the configured transport client. It does not
// connect; the supervisor does.
func newMessagingClient(cfg *config.Config, log *logging.Logger) messagingClient {
	if cfg.Transport.Kind == config.TransportNATS {
		c := nats.New(cfg.NATS)
		c.SetLogger(log.Component("nats"))
		log.Info("using NATS transport", "url", cfg.NATS.URL, "subject", cfg.NATS.Subject)
		return c
	}

	c := mqtt.New(cfg.MQTT)
	c.SetLogger(log.Component("mqtt"))
	c.SetOnConnect(func() {
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	})
	return c
}

// monitorTimings converts the monitor section into loop pacing.
func monitorTimings(m config.MonitorConfig) monitor.Timings {
	t := monitor.DefaultTimings()
	if m.ButtonPollMS > 0 {
		t.ButtonPoll = millisOf(m.ButtonPollMS)
	}
	if m.ButtonSettleMS > 0 {
		t.ButtonSettle = millisOf(m.ButtonSettleMS)
	}
	if m.KeypadPollMS > 0 {
		t.KeypadPoll = millisOf(m.KeypadPollMS)
	}
	if m.KeypadSettleMS > 0 {
		t.KeypadSettle = millisOf(m.KeypadSettleMS)
	}
	if m.LDRPeriodMS > 0 {
		t.LDRPeriod = millisOf(m.LDRPeriodMS)
	}
	return t
}

// getConfigPath returns the configuration file path.
// Uses GPIOHUB_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GPIOHUB_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

func secondsOf(n int) time.Duration { return time.Duration(n) * time.Second }

func millisOf(n int) time.Duration { return time.Duration(n) * time.Millisecond }
