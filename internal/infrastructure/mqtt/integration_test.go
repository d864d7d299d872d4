//go:build integration

package mqtt

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/domuslab/domus-core/internal/infrastructure/broker"
	"github.com/domuslab/domus-core/internal/infrastructure/config"
	"github.com/domuslab/domus-core/internal/infrastructure/logging"
)

// Integration tests against an in-process mochi-mqtt broker.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

const integrationAddr = "127.0.0.1:18831"

func integrationConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:         "127.0.0.1",
			Port:         18831,
			FallbackHost: "127.0.0.1",
			FallbackPort: 18831,
			ClientPrefix: "domus-test",
		},
		QoS:             1,
		PaceMS:          0,
		RegisterTimeout: 5,
	}
}

func startBroker(t *testing.T) *broker.Server {
	t.Helper()
	srv, err := broker.Start(logging.Default().Logger, integrationAddr)
	if err != nil {
		t.Fatalf("starting embedded broker: %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv
}

func TestIntegration_PublishSubscribe(t *testing.T) {
	startBroker(t)
	cfg := integrationConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sub := NewClient(cfg, "domus-int-sub", nil)
	if err := sub.Connect(ctx); err != nil {
		t.Fatalf("subscriber connect: %v", err)
	}
	defer sub.Disconnect()

	var received atomic.Int32
	done := make(chan string, 1)
	err := sub.Subscribe(Topics{}.DeviceData("kitchen", "light", "light-1"),
		func(topic string, payload []byte) error {
			received.Add(1)
			done <- string(payload)
			return nil
		})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	pub := NewClient(cfg, "domus-int-pub", nil)
	if err := pub.Connect(ctx); err != nil {
		t.Fatalf("publisher connect: %v", err)
	}
	defer pub.Disconnect()

	topic := Topics{}.DeviceData("kitchen", "light", "light-1")
	if err := pub.Publish(topic, []byte("0_on"), false); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case payload := <-done:
		if payload != "0_on" {
			t.Errorf("payload = %q, want %q", payload, "0_on")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestIntegration_ConnectFailureSurfaces(t *testing.T) {
	// No broker running on either address.
	cfg := integrationConfig()
	cfg.Broker.Port = 18999
	cfg.Broker.FallbackPort = 18998

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := NewClient(cfg, "domus-int-nobroker", nil)
	if err := c.Connect(ctx); err == nil {
		t.Fatal("Connect should fail with no broker on primary or fallback")
	}
}

func TestIntegration_SubscriptionTracking(t *testing.T) {
	startBroker(t)
	cfg := integrationConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c := NewClient(cfg, "domus-int-track", nil)
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Disconnect()

	noop := func(string, []byte) error { return nil }
	if err := c.Subscribe(Topics{}.Broadcast(), noop); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if !c.HasSubscription(Topics{}.Broadcast()) {
		t.Error("subscription not tracked")
	}
	if c.SubscriptionCount() != 1 {
		t.Errorf("SubscriptionCount = %d, want 1", c.SubscriptionCount())
	}

	if err := c.Unsubscribe(Topics{}.Broadcast()); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if c.HasSubscription(Topics{}.Broadcast()) {
		t.Error("subscription still tracked after unsubscribe")
	}
}
