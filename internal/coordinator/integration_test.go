//go:build integration

package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/domuslab/domus-core/internal/device"
	"github.com/domuslab/domus-core/internal/infrastructure/broker"
	"github.com/domuslab/domus-core/internal/infrastructure/config"
	"github.com/domuslab/domus-core/internal/infrastructure/logging"
	"github.com/domuslab/domus-core/internal/infrastructure/mqtt"
	"github.com/domuslab/domus-core/internal/protocol"
)

// End-to-end flow over an in-process mochi-mqtt broker: a device and the
// coordinator share nothing but the broker.
//
// Run with:
//   go test -tags=integration -v ./internal/coordinator/...

const integrationAddr = "127.0.0.1:18851"

func integrationConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:         "127.0.0.1",
			Port:         18851,
			FallbackHost: "127.0.0.1",
			FallbackPort: 18851,
			ClientPrefix: "domus-test",
		},
		QoS:             1,
		PaceMS:          0,
		RegisterTimeout: 5,
	}
}

func TestIntegration_RegisterCommandDisconnect(t *testing.T) {
	srv, err := broker.Start(logging.Default().Logger, integrationAddr)
	if err != nil {
		t.Fatalf("starting embedded broker: %v", err)
	}
	t.Cleanup(func() { srv.Close() })

	cfg := integrationConfig()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	coord := New("integration", mqtt.NewClient(cfg, "domus-int-coord", nil))
	if err := coord.Start(ctx); err != nil {
		t.Fatalf("coordinator start: %v", err)
	}
	defer coord.Shutdown()

	d, err := device.New("light", "light-int", "kitchen")
	if err != nil {
		t.Fatalf("building device: %v", err)
	}
	notice, err := d.DisconnectNotice()
	if err != nil {
		t.Fatalf("building will: %v", err)
	}
	will := &mqtt.Will{Topic: mqtt.TopicRegistration, Payload: notice}

	a := device.NewAssociable(d, mqtt.NewClient(cfg, "domus-int-dev", will))
	if err := a.Connect(ctx); err != nil {
		t.Fatalf("device connect: %v", err)
	}
	if err := a.Subscribe(); err != nil {
		t.Fatalf("device subscribe: %v", err)
	}

	regCtx, regCancel := context.WithTimeout(ctx, 5*time.Second)
	defer regCancel()
	if err := a.Register(regCtx); err != nil {
		t.Fatalf("device register: %v", err)
	}
	if !coord.Registry().Contains("light-int") {
		t.Fatal("coordinator should hold the registered device")
	}

	// Command the device on and wait for the state to flip.
	sender := d.Sender()
	if err := coord.SendCommand(sender, protocol.NewCommand(1, protocol.CmdOn)); err != nil {
		t.Fatalf("sending on: %v", err)
	}
	waitFor(t, 5*time.Second, a.IsOn, "device never turned on")

	if err := coord.SendCommand(sender, protocol.NewCommandValue(2, "setIntensity", "80")); err != nil {
		t.Fatalf("sending setIntensity: %v", err)
	}
	waitFor(t, 5*time.Second, func() bool { return a.Level() == 80 }, "intensity never applied")

	// Clean departure removes the device from the fleet.
	if err := a.Disconnect(); err != nil {
		t.Fatalf("device disconnect: %v", err)
	}
	waitFor(t, 5*time.Second, func() bool {
		return !coord.Registry().Contains("light-int")
	}, "coordinator never forgot the departed device")
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal(msg)
}
