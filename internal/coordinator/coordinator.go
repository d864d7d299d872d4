package coordinator

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/domuslab/domus-core/internal/infrastructure/mqtt"
	"github.com/domuslab/domus-core/internal/protocol"
)

// Session is the broker session the coordinator drives. Implemented by
// mqtt.Client; tests use an in-memory fake.
type Session interface {
	Connect(ctx context.Context) error
	Subscribe(topic string, handler func(topic string, payload []byte) error) error
	Publish(topic string, payload []byte, retained bool) error
	Disconnect() error
	IsConnected() bool
}

// Logger defines the logging interface used by the coordinator.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Sink receives fleet telemetry for long-term storage. Implemented by the
// influxdb client; nil disables forwarding.
type Sink interface {
	WriteSensorReading(room, deviceType, deviceID string, value float64)
	WriteConsumption(room, deviceType, deviceID string, watts float64, on bool)
}

// Coordinator admits devices into the fleet and observes their traffic.
//
// Thread Safety:
//   - Inbound handling is serialised (dispatchMu); the registry has its own
//     locking for concurrent readers.
type Coordinator struct {
	name     string
	session  Session
	registry *Registry
	topics   mqtt.Topics
	logger   Logger
	sink     Sink

	dispatchMu sync.Mutex
}

// New creates a coordinator over an unconnected session.
func New(name string, session Session) *Coordinator {
	return &Coordinator{
		name:     name,
		session:  session,
		registry: NewRegistry(),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the coordinator.
func (c *Coordinator) SetLogger(logger Logger) {
	c.logger = logger
}

// SetSink wires a telemetry sink for accepted sensor readings.
func (c *Coordinator) SetSink(sink Sink) {
	c.sink = sink
}

// Registry exposes the admitted fleet for read access.
func (c *Coordinator) Registry() *Registry {
	return c.registry
}

// Sender returns the envelope sender descriptor for this coordinator.
func (c *Coordinator) Sender() protocol.Sender {
	return protocol.CoordinatorSender(c.name)
}

// Start connects the session and subscribes to every system topic. The
// coordinator is passive until devices start publishing.
func (c *Coordinator) Start(ctx context.Context) error {
	if err := c.session.Connect(ctx); err != nil {
		return fmt.Errorf("coordinator %s: %w", c.name, err)
	}

	for _, topic := range []string{
		c.topics.Registration(),
		c.topics.Update(),
		c.topics.Log(),
		c.topics.SensorUpdate(),
	} {
		if err := c.session.Subscribe(topic, c.HandleMessage); err != nil {
			return fmt.Errorf("coordinator %s: %w", c.name, err)
		}
	}

	c.logger.Info("coordinator started", "name", c.name)
	return nil
}

// HandleMessage is the single entry point for inbound messages on the
// system topics.
func (c *Coordinator) HandleMessage(topic string, payload []byte) error {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	env, err := protocol.DecodeEnvelope(payload)
	if err != nil {
		return err
	}

	switch topic {
	case c.topics.Registration():
		return c.handleRegistration(env)
	case c.topics.Update():
		return c.handleUpdate(env)
	case c.topics.Log():
		c.logger.Info("device log", "device", env.Sender.ID, "entry", env.Message)
		return nil
	case c.topics.SensorUpdate():
		return c.handleSensorUpdate(env)
	default:
		return fmt.Errorf("%w: %q on coordinator", protocol.ErrUnexpectedTopic, topic)
	}
}

// handleRegistration admits joining devices and forgets departing ones.
func (c *Coordinator) handleRegistration(env protocol.Envelope) error {
	msg, err := protocol.Decode(env.Message)
	if err != nil {
		return err
	}

	switch msg.Command {
	case protocol.CmdRegister:
		if env.Sender.Kind != protocol.SenderDevice {
			return fmt.Errorf("%w: register from non-device sender", protocol.ErrUnexpectedMessage)
		}
		added := c.registry.Add(env.Sender)
		if added {
			c.logger.Info("device registered",
				"device", env.Sender.ID, "type", env.Sender.DeviceType,
				"room", env.Sender.Room, "fleet", c.registry.Size())
		} else {
			// At-least-once delivery can duplicate the register; the
			// device still needs an acknowledgement.
			c.logger.Debug("duplicate registration", "device", env.Sender.ID)
		}
		return c.acknowledge(env.Sender)

	case protocol.CmdDisconnected:
		if c.registry.Remove(env.Sender.ID) {
			c.logger.Info("device left",
				"device", env.Sender.ID, "fleet", c.registry.Size())
		}
		return nil

	default:
		return fmt.Errorf("%w: %q on registration", protocol.ErrUnexpectedMessage, msg.Command)
	}
}

// acknowledge replies regSuccess on the device's own command topic.
func (c *Coordinator) acknowledge(sender protocol.Sender) error {
	topic := c.topics.DeviceCommand(sender.Room, sender.DeviceType, sender.ID)
	msg := protocol.NewCommand(protocol.NoCorrelation, protocol.CmdRegSuccess)
	return c.publish(topic, msg.Encode(), false)
}

// handleUpdate observes command echoes. Power transitions feed the sink as
// consumption points: the echoed sender carries the nominal draw.
func (c *Coordinator) handleUpdate(env protocol.Envelope) error {
	msg, err := protocol.Decode(env.Message)
	if err != nil {
		return err
	}

	c.logger.Info("device update", "device", env.Sender.ID, "message", env.Message)

	if c.sink != nil && (msg.Command == protocol.CmdOn || msg.Command == protocol.CmdOff) {
		on := msg.Command == protocol.CmdOn
		watts := 0.0
		if on {
			watts = float64(env.Sender.Consumption)
		}
		c.sink.WriteConsumption(env.Sender.Room, env.Sender.DeviceType, env.Sender.ID, watts, on)
	}
	return nil
}

// handleSensorUpdate records an accepted reading and forwards it to the
// sink when one is wired.
func (c *Coordinator) handleSensorUpdate(env protocol.Envelope) error {
	msg, err := protocol.Decode(env.Message)
	if err != nil {
		return err
	}
	if msg.Command != protocol.CmdSensorUpdate || !msg.HasValue {
		return fmt.Errorf("%w: %q on sensorUpdate", protocol.ErrUnexpectedMessage, msg.Command)
	}

	value, err := parseReading(msg.Value)
	if err != nil {
		return fmt.Errorf("%w: reading %q from %s",
			protocol.ErrMalformedMessage, msg.Value, env.Sender.ID)
	}

	c.logger.Info("sensor reading",
		"device", env.Sender.ID, "type", env.Sender.DeviceType, "value", msg.Value)

	if c.sink != nil {
		c.sink.WriteSensorReading(env.Sender.Room, env.Sender.DeviceType, env.Sender.ID, value)
	}
	return nil
}

// parseReading converts a wire reading to float64; booleans map to 0 and 1.
func parseReading(raw string) (float64, error) {
	if b, err := strconv.ParseBool(raw); err == nil {
		if b {
			return 1, nil
		}
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}

// SendCommand publishes a command message to one device's command topic.
func (c *Coordinator) SendCommand(sender protocol.Sender, msg protocol.CommandMessage) error {
	topic := c.topics.DeviceCommand(sender.Room, sender.DeviceType, sender.ID)
	return c.publish(topic, msg.Encode(), false)
}

// Shutdown announces departure on the broadcast topic, then closes the
// session. Every device powers off and drops its registration on hearing
// the announcement.
func (c *Coordinator) Shutdown() error {
	msg := protocol.NewCommand(protocol.NoCorrelation, protocol.CmdDisconnected)
	if err := c.publish(c.topics.Broadcast(), msg.Encode(), false); err != nil {
		c.logger.Warn("departure broadcast failed", "error", err)
	}

	err := c.session.Disconnect()
	c.logger.Info("coordinator stopped", "name", c.name, "fleet", c.registry.Size())
	return err
}

// publish wraps a message with the coordinator's identity and sends it.
func (c *Coordinator) publish(topic, message string, retained bool) error {
	env := protocol.Envelope{Message: message, Sender: c.Sender()}
	payload, err := env.Encode()
	if err != nil {
		return err
	}
	if err := c.session.Publish(topic, payload, retained); err != nil {
		return fmt.Errorf("coordinator %s: %w", c.name, err)
	}
	return nil
}
