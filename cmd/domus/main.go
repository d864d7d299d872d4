// Domus Core - Smart Home Simulator
//
// This is the main entry point for the Domus Core simulator. It starts an
// optional embedded MQTT broker, the fleet coordinator, and the configured
// device fleet, all communicating exclusively over MQTT: everything the
// coordinator knows about a device arrives via the broker, never shared
// memory. Sensor devices sample on a timer and publish only significant
// changes.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/domuslab/domus-core/internal/coordinator"
	"github.com/domuslab/domus-core/internal/device"
	"github.com/domuslab/domus-core/internal/infrastructure/broker"
	"github.com/domuslab/domus-core/internal/infrastructure/config"
	"github.com/domuslab/domus-core/internal/infrastructure/influxdb"
	"github.com/domuslab/domus-core/internal/infrastructure/logging"
	"github.com/domuslab/domus-core/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Domus Core",
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

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Embedded broker, for self-contained runs without external infrastructure
	if cfg.Broker.Enabled {
		srv, brokerErr := broker.Start(log.Logger, fmt.Sprintf(":%d", cfg.Broker.Port))
		if brokerErr != nil {
			return fmt.Errorf("starting embedded broker: %w", brokerErr)
		}
		defer func() {
			log.Info("stopping embedded broker")
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error stopping embedded broker", "error", closeErr)
			}
		}()
		log.Info("embedded broker listening", "port", cfg.Broker.Port)
	}

	// Optional telemetry sink
	var sink coordinator.Sink
	influxClient, err := influxdb.Connect(cfg.InfluxDB)
	switch {
	case err == nil:
		defer influxClient.Close()
		sink = influxClient
		log.Info("influxdb connected", "url", cfg.InfluxDB.URL)
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("influxdb disabled, telemetry will not be stored")
	default:
		return fmt.Errorf("connecting to influxdb: %w", err)
	}

	// Coordinator
	coordSession := mqtt.NewClient(cfg.MQTT, clientID(&cfg.MQTT, "coordinator"), nil)
	coordSession.SetLogger(log)
	coord := coordinator.New(cfg.Coordinator.Name, coordSession)
	coord.SetLogger(log)
	if sink != nil {
		coord.SetSink(sink)
	}
	if err := coord.Start(ctx); err != nil {
		return fmt.Errorf("starting coordinator: %w", err)
	}
	log.Info("coordinator started", "name", cfg.Coordinator.Name)

	// Device fleet
	fleet, err := startFleet(ctx, cfg, log)
	if err != nil {
		shutdownFleet(fleet, coord, log)
		return err
	}
	log.Info("fleet running", "devices", len(fleet))

	// Sensor samplers
	samplerCtx, stopSamplers := context.WithCancel(ctx)
	defer stopSamplers()
	for _, a := range fleet {
		if a.Type().IsSensor() {
			go runSampler(samplerCtx, a, cfg.Fleet.GetSamplePeriod(), log)
		}
	}

	<-ctx.Done()
	log.Info("shutdown signal received")

	stopSamplers()
	shutdownFleet(fleet, coord, log)
	return nil
}

// startFleet constructs, connects, and registers every configured device.
// Devices already started are returned even on error so the caller can
// shut them down.
func startFleet(ctx context.Context, cfg *config.Config, log *logging.Logger) ([]*device.Associable, error) {
	fleet := make([]*device.Associable, 0, len(cfg.Fleet.Devices))

	for _, fd := range cfg.Fleet.Devices {
		d, err := device.New(fd.Type, fd.ID, fd.Room)
		if err != nil {
			return fleet, fmt.Errorf("building device %s: %w", fd.ID, err)
		}

		// The broker announces unclean drops with the device's own
		// departure notice.
		notice, err := d.DisconnectNotice()
		if err != nil {
			return fleet, fmt.Errorf("building will for %s: %w", fd.ID, err)
		}
		will := &mqtt.Will{Topic: mqtt.TopicRegistration, Payload: notice}

		session := mqtt.NewClient(cfg.MQTT, clientID(&cfg.MQTT, fd.ID), will)
		session.SetLogger(log)

		a := device.NewAssociable(d, session)
		a.SetLogger(log)

		if err := a.Connect(ctx); err != nil {
			return fleet, fmt.Errorf("connecting device %s: %w", fd.ID, err)
		}
		fleet = append(fleet, a)

		if err := a.Subscribe(); err != nil {
			return fleet, fmt.Errorf("subscribing device %s: %w", fd.ID, err)
		}

		regCtx, cancel := context.WithTimeout(ctx, cfg.MQTT.GetRegisterTimeout())
		err = a.Register(regCtx)
		cancel()
		if err != nil {
			return fleet, fmt.Errorf("registering device %s: %w", fd.ID, err)
		}
	}
	return fleet, nil
}

// shutdownFleet disconnects every device, then stops the coordinator. The
// coordinator goes last so it observes each departure notice.
func shutdownFleet(fleet []*device.Associable, coord *coordinator.Coordinator, log *logging.Logger) {
	for _, a := range fleet {
		if err := a.Disconnect(); err != nil {
			log.Error("error disconnecting device", "device", a.ID(), "error", err)
		}
	}
	if err := coord.Shutdown(); err != nil {
		log.Error("error stopping coordinator", "error", err)
	}
}

// runSampler feeds a sensor device with simulated raw samples until ctx is
// cancelled. The debouncer inside the device decides what publishes.
func runSampler(ctx context.Context, a *device.Associable, period time.Duration, log *logging.Logger) {
	def, ok := a.Type().SensorDefault()
	if !ok {
		return
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	if a.Type().SensorIsBoolean() {
		state := def != 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// Occasional motion events
				if rand.Float64() < 0.1 {
					state = !state
				}
				if _, err := a.ReportMotion(state); err != nil {
					log.Warn("sensor report failed", "device", a.ID(), "error", err)
				}
			}
		}
	}

	// Random walk around the type's default reading
	step := 0.02 * def
	if step < 0.1 {
		step = 0.1
	}
	value := def
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			value += (rand.Float64()*2 - 1) * step
			if _, err := a.ReportReading(value); err != nil {
				log.Warn("sensor report failed", "device", a.ID(), "error", err)
			}
		}
	}
}

// clientID builds a unique MQTT client id so parallel runs never collide.
func clientID(cfg *config.MQTTConfig, name string) string {
	return fmt.Sprintf("%s-%s-%s", cfg.Broker.ClientPrefix, name, uuid.NewString()[:8])
}

// getConfigPath returns the configuration file path.
// Uses DOMUS_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("DOMUS_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
