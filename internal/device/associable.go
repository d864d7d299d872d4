package device

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/domuslab/domus-core/internal/infrastructure/mqtt"
	"github.com/domuslab/domus-core/internal/protocol"
)

// logTimeLayout formats the timestamp appended to log topic entries.
const logTimeLayout = "2006-01-02 15:04:05"

// Session is the broker session an Associable drives. Implemented by
// mqtt.Client; tests use an in-memory fake.
type Session interface {
	Connect(ctx context.Context) error
	Subscribe(topic string, handler func(topic string, payload []byte) error) error
	Publish(topic string, payload []byte, retained bool) error
	Disconnect() error
	IsConnected() bool
}

// Logger defines the logging interface used by the Associable.
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

// DisconnectNotice builds the enveloped disconnected message announcing this
// device's departure. It doubles as the session's last-will payload.
func (d *Device) DisconnectNotice() ([]byte, error) {
	msg := protocol.NewCommand(protocol.NoCorrelation, protocol.CmdDisconnected)
	env := protocol.Envelope{Message: msg.Encode(), Sender: d.Sender()}
	return env.Encode()
}

// Associable is a Device augmented with transport-facing state.
//
// Lifecycle: constructed → Connect → Subscribe → Register (async, completes
// when the coordinator acknowledges) → operates → Disconnect. Disconnect is
// reachable from any state.
//
// Thread Safety:
//   - Inbound message handling is serialised per device (dispatchMu).
//   - Connection flags are guarded independently (mu), so Register can wait
//     without blocking dispatch.
type Associable struct {
	*Device

	session Session
	logger  Logger
	topics  mqtt.Topics

	dataTopic    string
	commandTopic string

	// dispatchMu serialises HandleMessage invocations; the transport
	// delivers messages on independent goroutines.
	dispatchMu sync.Mutex

	mu          sync.Mutex
	connected   bool
	registered  bool
	regDone     chan struct{}
	regResolved bool

	// debouncer is set only for sensor variants.
	debouncer *Debouncer
}

// NewAssociable wraps a device with a broker session.
//
// The session must carry this device's DisconnectNotice as its last will on
// the registration topic, so the broker announces an unclean drop.
func NewAssociable(d *Device, session Session) *Associable {
	a := &Associable{
		Device:       d,
		session:      session,
		logger:       noopLogger{},
		dataTopic:    mqtt.Topics{}.DeviceData(string(d.room), string(d.typ), d.id),
		commandTopic: mqtt.Topics{}.DeviceCommand(string(d.room), string(d.typ), d.id),
	}
	if spec := capabilities[d.typ].Sensor; spec != nil {
		a.debouncer = newSensorDebouncer(spec)
	}
	return a
}

// SetLogger sets the logger for the associable device.
func (a *Associable) SetLogger(logger Logger) {
	a.logger = logger
}

// DataTopic returns the topic this device publishes its own data on.
func (a *Associable) DataTopic() string { return a.dataTopic }

// CommandTopic returns the topic this device receives commands on.
func (a *Associable) CommandTopic() string { return a.commandTopic }

// IsConnected reports whether the broker session is live.
func (a *Associable) IsConnected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connected
}

// IsRegistered reports whether the coordinator has acknowledged this device.
func (a *Associable) IsRegistered() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.registered
}

// Connect establishes the broker session.
func (a *Associable) Connect(ctx context.Context) error {
	if err := a.session.Connect(ctx); err != nil {
		return fmt.Errorf("device %s: %w", a.id, err)
	}

	a.mu.Lock()
	a.connected = true
	a.mu.Unlock()

	a.logger.Info("device connected", "id", a.id, "type", a.typ, "room", a.room)
	return nil
}

// Subscribe subscribes to this device's own command topic and the system
// broadcast topic. Valid only after Connect succeeds.
func (a *Associable) Subscribe() error {
	if !a.IsConnected() {
		return fmt.Errorf("%w: subscribe before connect on %s", ErrNotConnected, a.id)
	}

	if err := a.session.Subscribe(a.commandTopic, a.HandleMessage); err != nil {
		return fmt.Errorf("device %s: %w", a.id, err)
	}
	if err := a.session.Subscribe(a.topics.Broadcast(), a.HandleMessage); err != nil {
		return fmt.Errorf("device %s: %w", a.id, err)
	}
	return nil
}

// Register publishes a register message and waits for the coordinator's
// regSuccess on this device's command topic.
//
// The wait is bounded only by ctx; cancellation abandons the attempt. A
// regSuccess arriving after abandonment still marks the device registered,
// which is harmless under at-least-once delivery.
func (a *Associable) Register(ctx context.Context) error {
	a.mu.Lock()
	if a.registered {
		a.mu.Unlock()
		return nil
	}
	if !a.connected {
		a.mu.Unlock()
		return fmt.Errorf("%w: register before connect on %s", ErrNotConnected, a.id)
	}
	if a.regDone == nil {
		a.regDone = make(chan struct{})
		a.regResolved = false
	}
	done := a.regDone
	a.mu.Unlock()

	msg := protocol.NewCommand(protocol.NoCorrelation, protocol.CmdRegister)
	if err := a.publishEnvelope(a.topics.Registration(), msg.Encode(), false); err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("device %s: registration abandoned: %w", a.id, ctx.Err())
	}
}

// HandleMessage is the single entry point for inbound messages. Wire it as
// the handler for both subscribed topics; anything else is a protocol
// violation that fails this message only.
func (a *Associable) HandleMessage(topic string, payload []byte) error {
	a.dispatchMu.Lock()
	defer a.dispatchMu.Unlock()

	switch topic {
	case a.commandTopic:
		return a.handleCommand(payload)
	case a.topics.Broadcast():
		return a.handleBroadcast(payload)
	default:
		return fmt.Errorf("%w: %q on device %s", protocol.ErrUnexpectedTopic, topic, a.id)
	}
}

// handleCommand dispatches one message from the device's own command topic.
func (a *Associable) handleCommand(payload []byte) error {
	env, err := protocol.DecodeEnvelope(payload)
	if err != nil {
		return err
	}
	msg, err := protocol.Decode(env.Message)
	if err != nil {
		return err
	}

	switch msg.Command {
	case protocol.CmdRegSuccess:
		a.completeRegistration()
		a.logger.Info("device registered", "id", a.id)
		return nil

	case protocol.CmdDisconnect:
		return a.Disconnect()

	case protocol.CmdOn, protocol.CmdOff:
		a.Device.SetPower(msg.Command == protocol.CmdOn)
		if err := a.publishEnvelope(a.topics.Update(), env.Message, false); err != nil {
			return err
		}
		if err := a.publishLogEntry(msg.Command); err != nil {
			return err
		}
		return a.publishEnvelope(a.dataTopic, env.Message, true)

	default:
		if err := a.Device.Apply(msg); err != nil {
			return err
		}
		if err := a.publishEnvelope(a.topics.Update(), env.Message, false); err != nil {
			return err
		}
		return a.publishEnvelope(a.dataTopic, env.Message, true)
	}
}

// handleBroadcast dispatches one message from the broadcast topic.
func (a *Associable) handleBroadcast(payload []byte) error {
	env, err := protocol.DecodeEnvelope(payload)
	if err != nil {
		return err
	}
	msg, err := protocol.Decode(env.Message)
	if err != nil {
		return err
	}

	if msg.Command != protocol.CmdDisconnected {
		return fmt.Errorf("%w: %q on broadcast", protocol.ErrUnexpectedMessage, msg.Command)
	}

	// The coordinator announced it is leaving: force power off and drop
	// the registration, but keep the session.
	a.Device.SetPower(false)
	a.mu.Lock()
	a.registered = false
	a.regDone = nil
	a.mu.Unlock()

	a.logger.Info("coordinator left, powering off", "id", a.id)
	return nil
}

// completeRegistration resolves the pending registration exactly once.
func (a *Associable) completeRegistration() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.registered = true
	if a.regDone != nil && !a.regResolved {
		close(a.regDone)
		a.regResolved = true
	}
}

// Disconnect terminates the session from any state.
//
// A powered-on device turns off (with a log entry) first. The departure
// notice is published explicitly because a clean MQTT disconnect suppresses
// the last will; the will covers only unclean drops.
func (a *Associable) Disconnect() error {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	if a.Device.SetPower(false) {
		if err := a.publishLogEntry(protocol.CmdOff); err != nil {
			a.logger.Warn("log entry on disconnect failed", "id", a.id, "error", err)
		}
	}

	if notice, err := a.Device.DisconnectNotice(); err == nil {
		if err := a.session.Publish(a.topics.Registration(), notice, false); err != nil {
			a.logger.Warn("disconnect notice failed", "id", a.id, "error", err)
		}
	}

	err := a.session.Disconnect()

	a.mu.Lock()
	a.connected = false
	if err == nil {
		a.registered = false
		a.regDone = nil
		a.regResolved = false
	}
	a.mu.Unlock()

	a.logger.Info("device disconnected", "id", a.id)
	return err
}

// ReportReading pushes one raw sensor sample through the debouncer,
// publishing it when significant. It reports whether a publish happened.
func (a *Associable) ReportReading(sample float64) (bool, error) {
	if a.debouncer == nil {
		return false, fmt.Errorf("%w: %s", ErrNotSensor, a.typ)
	}
	if !a.IsConnected() {
		return false, fmt.Errorf("%w: reading on %s", ErrNotConnected, a.id)
	}

	a.dispatchMu.Lock()
	publish := a.debouncer.Offer(sample)
	a.dispatchMu.Unlock()

	if !publish {
		return false, nil
	}

	msg := protocol.NewCommandValue(protocol.NoCorrelation, protocol.CmdSensorUpdate, a.formatReading(sample))
	if err := a.publishEnvelope(a.topics.SensorUpdate(), msg.Encode(), false); err != nil {
		return false, err
	}
	// Retained copy on the device's own data topic, so late subscribers
	// see the current reading.
	if err := a.publishEnvelope(a.dataTopic, msg.Encode(), true); err != nil {
		return false, err
	}
	return true, nil
}

// ReportMotion is the boolean-sensor form of ReportReading.
func (a *Associable) ReportMotion(detected bool) (bool, error) {
	sample := 0.0
	if detected {
		sample = 1.0
	}
	return a.ReportReading(sample)
}

// formatReading renders a sample for the wire, per sensor kind.
func (a *Associable) formatReading(sample float64) string {
	if spec := capabilities[a.typ].Sensor; spec != nil && spec.Kind == sensorBoolean {
		return strconv.FormatBool(sample != 0)
	}
	return strconv.FormatFloat(sample, 'f', -1, 64)
}

// publishEnvelope wraps a message string with this device's identity and
// publishes it.
func (a *Associable) publishEnvelope(topic, message string, retained bool) error {
	env := protocol.Envelope{Message: message, Sender: a.Device.Sender()}
	payload, err := env.Encode()
	if err != nil {
		return err
	}
	if err := a.session.Publish(topic, payload, retained); err != nil {
		return fmt.Errorf("device %s: %w", a.id, err)
	}
	return nil
}

// publishLogEntry publishes a token_timestamp entry on the log topic.
func (a *Associable) publishLogEntry(token string) error {
	entry := token + protocol.Separator + time.Now().Format(logTimeLayout)
	return a.publishEnvelope(a.topics.Log(), entry, false)
}
