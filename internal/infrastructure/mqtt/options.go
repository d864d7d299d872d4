package mqtt

import (
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/domuslab/domus-core/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait per connection attempt.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is the maximum time to wait for publish acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 60 * time.Second

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2
)

// Will describes a last-will message the broker delivers on the client's
// behalf if the session drops uncleanly.
type Will struct {
	Topic   string
	Payload []byte
}

// brokerURL renders a tcp:// address for the paho client.
func brokerURL(host string, port int) string {
	return fmt.Sprintf("tcp://%s:%d", host, port)
}

// buildClientOptions creates paho MQTT options from Domus config.
//
// This configures:
//   - Primary broker address, plus the fallback address when one is set;
//     paho attempts them in order, which gives the documented
//     primary-then-fallback connect behaviour
//   - Client ID for identification
//   - Authentication credentials (if provided)
//   - Last will (if provided), delivered on unclean disconnect
//   - Auto-reconnect with bounded backoff for established sessions
func buildClientOptions(cfg config.MQTTConfig, clientID string, will *Will) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	opts.AddBroker(brokerURL(cfg.Broker.Host, cfg.Broker.Port))
	if cfg.Broker.FallbackHost != "" {
		opts.AddBroker(brokerURL(cfg.Broker.FallbackHost, cfg.Broker.FallbackPort))
	}

	opts.SetClientID(clientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	if will != nil {
		opts.SetBinaryWill(will.Topic, will.Payload, byte(cfg.QoS), false)
	}

	// Clean session - each simulated actor starts fresh on connect
	opts.SetCleanSession(true)

	// Reconnect only applies to an already-established session; the initial
	// connect is bounded so a missing broker surfaces as an error.
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	// Handlers may run concurrently; per-device ordering is enforced by the
	// device's own mutex, not by the transport.
	opts.SetOrderMatters(false)

	return opts
}
