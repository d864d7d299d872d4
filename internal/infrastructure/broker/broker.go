// Package broker runs an in-process MQTT broker so the simulator is
// self-contained: devices and the coordinator connect to it over TCP exactly
// as they would to an external Mosquitto instance.
package broker

import (
	"fmt"
	"log/slog"

	mqttbroker "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
)

// Server wraps the embedded mochi-mqtt broker.
type Server struct {
	srv *mqttbroker.Server
}

// Start creates the broker, attaches a TCP listener on addr and begins
// serving. All clients are allowed; credential checks stay the external
// broker's concern.
func Start(logger *slog.Logger, addr string) (*Server, error) {
	srv := mqttbroker.New(&mqttbroker.Options{
		Logger: logger,
	})

	if err := srv.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, fmt.Errorf("adding auth hook: %w", err)
	}

	tcp := listeners.NewTCP(listeners.Config{ID: "tcp", Address: addr})
	if err := srv.AddListener(tcp); err != nil {
		return nil, fmt.Errorf("adding tcp listener: %w", err)
	}

	if err := srv.Serve(); err != nil {
		return nil, fmt.Errorf("starting broker: %w", err)
	}

	return &Server{srv: srv}, nil
}

// Close shuts the broker down, dropping all client sessions.
func (s *Server) Close() error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Close()
}
