package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/domuslab/domus-core/internal/infrastructure/mqtt"
	"github.com/domuslab/domus-core/internal/protocol"
)

// fakeSession records published messages, standing in for a live broker.
type fakeSession struct {
	mu          sync.Mutex
	connected   bool
	connectErr  error
	handlers    map[string]func(topic string, payload []byte) error
	published   []fakeMessage
	disconnects int
}

type fakeMessage struct {
	topic    string
	payload  []byte
	retained bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{handlers: make(map[string]func(string, []byte) error)}
}

func (f *fakeSession) Connect(ctx context.Context) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.mu.Lock()
	f.connected = true
	f.mu.Unlock()
	return nil
}

func (f *fakeSession) Subscribe(topic string, handler func(string, []byte) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = handler
	return nil
}

func (f *fakeSession) Publish(topic string, payload []byte, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, fakeMessage{topic, payload, retained})
	return nil
}

func (f *fakeSession) Disconnect() error {
	f.mu.Lock()
	f.connected = false
	f.disconnects++
	f.mu.Unlock()
	return nil
}

func (f *fakeSession) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeSession) messagesOn(topic string) []fakeMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []fakeMessage
	for _, m := range f.published {
		if m.topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// recordingSink captures forwarded sensor readings.
type recordingSink struct {
	mu          sync.Mutex
	readings    []sinkReading
	consumption []sinkConsumption
}

type sinkReading struct {
	room, deviceType, deviceID string
	value                      float64
}

func (s *recordingSink) WriteSensorReading(room, deviceType, deviceID string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings = append(s.readings, sinkReading{room, deviceType, deviceID, value})
}

type sinkConsumption struct {
	deviceID string
	watts    float64
	on       bool
}

func (s *recordingSink) WriteConsumption(room, deviceType, deviceID string, watts float64, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consumption = append(s.consumption, sinkConsumption{deviceID, watts, on})
}

func devicePayload(t *testing.T, sender protocol.Sender, message string) []byte {
	t.Helper()
	payload, err := protocol.Envelope{Message: message, Sender: sender}.Encode()
	if err != nil {
		t.Fatalf("encoding envelope: %v", err)
	}
	return payload
}

func startedCoordinator(t *testing.T) (*Coordinator, *fakeSession) {
	t.Helper()
	session := newFakeSession()
	c := New("unit", session)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return c, session
}

func TestStartSubscribesSystemTopics(t *testing.T) {
	_, session := startedCoordinator(t)

	for _, topic := range []string{
		mqtt.TopicRegistration, mqtt.TopicUpdate, mqtt.TopicLog, mqtt.TopicSensorUpdate,
	} {
		session.mu.Lock()
		_, ok := session.handlers[topic]
		session.mu.Unlock()
		if !ok {
			t.Errorf("missing subscription for %q", topic)
		}
	}
}

func TestRegistrationAdmitsAndAcknowledges(t *testing.T) {
	c, session := startedCoordinator(t)

	light := protocol.DeviceSender("l1", "kitchen", "light", 10)
	if err := c.HandleMessage(mqtt.TopicRegistration, devicePayload(t, light, "0_register")); err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}

	if !c.Registry().Contains("l1") {
		t.Error("device should be admitted")
	}

	acks := session.messagesOn("kitchen/light/l1/To")
	if len(acks) != 1 {
		t.Fatalf("got %d acknowledgements, want 1", len(acks))
	}
	env, err := protocol.DecodeEnvelope(acks[0].payload)
	if err != nil {
		t.Fatalf("ack payload not an envelope: %v", err)
	}
	if env.Message != "0_regSuccess" {
		t.Errorf("ack message = %q, want 0_regSuccess", env.Message)
	}
	if env.Sender.Kind != protocol.SenderCoordinator || env.Sender.Name != "unit" {
		t.Errorf("ack sender = %+v, want this coordinator", env.Sender)
	}
}

func TestDuplicateRegistrationReacknowledges(t *testing.T) {
	c, session := startedCoordinator(t)

	light := protocol.DeviceSender("l1", "kitchen", "light", 10)
	payload := devicePayload(t, light, "0_register")

	for i := 0; i < 2; i++ {
		if err := c.HandleMessage(mqtt.TopicRegistration, payload); err != nil {
			t.Fatalf("HandleMessage %d failed: %v", i, err)
		}
	}

	if got := c.Registry().Size(); got != 1 {
		t.Errorf("fleet size = %d, want 1", got)
	}
	if got := len(session.messagesOn("kitchen/light/l1/To")); got != 2 {
		t.Errorf("got %d acknowledgements, want 2", got)
	}
}

func TestDisconnectedRemovesDevice(t *testing.T) {
	c, _ := startedCoordinator(t)

	light := protocol.DeviceSender("l1", "kitchen", "light", 10)
	if err := c.HandleMessage(mqtt.TopicRegistration, devicePayload(t, light, "0_register")); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := c.HandleMessage(mqtt.TopicRegistration, devicePayload(t, light, "0_disconnected")); err != nil {
		t.Fatalf("disconnected failed: %v", err)
	}

	if c.Registry().Contains("l1") {
		t.Error("departed device should be forgotten")
	}

	// A notice for an unknown device is harmless.
	ghost := protocol.DeviceSender("ghost", "garage", "oven", 2000)
	if err := c.HandleMessage(mqtt.TopicRegistration, devicePayload(t, ghost, "0_disconnected")); err != nil {
		t.Errorf("unknown departure errored: %v", err)
	}
}

func TestRegistrationRejectsUnexpected(t *testing.T) {
	c, _ := startedCoordinator(t)

	light := protocol.DeviceSender("l1", "kitchen", "light", 10)
	err := c.HandleMessage(mqtt.TopicRegistration, devicePayload(t, light, "1_on"))
	if !errors.Is(err, protocol.ErrUnexpectedMessage) {
		t.Fatalf("unexpected command error = %v, want ErrUnexpectedMessage", err)
	}

	// A coordinator cannot register itself as a device.
	err = c.HandleMessage(mqtt.TopicRegistration,
		devicePayload(t, protocol.CoordinatorSender("other"), "0_register"))
	if !errors.Is(err, protocol.ErrUnexpectedMessage) {
		t.Fatalf("non-device register error = %v, want ErrUnexpectedMessage", err)
	}
}

func TestMalformedPayloadRejected(t *testing.T) {
	c, _ := startedCoordinator(t)

	if err := c.HandleMessage(mqtt.TopicRegistration, []byte("not json")); !errors.Is(err, protocol.ErrMalformedEnvelope) {
		t.Fatalf("malformed payload error = %v, want ErrMalformedEnvelope", err)
	}

	light := protocol.DeviceSender("l1", "kitchen", "light", 10)
	err := c.HandleMessage(mqtt.TopicRegistration, devicePayload(t, light, "garbage"))
	if !errors.Is(err, protocol.ErrMalformedMessage) {
		t.Fatalf("malformed message error = %v, want ErrMalformedMessage", err)
	}
}

func TestSensorUpdateForwardsToSink(t *testing.T) {
	c, _ := startedCoordinator(t)
	sink := &recordingSink{}
	c.SetSink(sink)

	thermo := protocol.DeviceSender("th1", "bedroom", "thermometer", 0)
	if err := c.HandleMessage(mqtt.TopicSensorUpdate, devicePayload(t, thermo, "0_sensorUpdate_25.5")); err != nil {
		t.Fatalf("numeric reading failed: %v", err)
	}

	motion := protocol.DeviceSender("m1", "corridor", "motionSensor", 0)
	if err := c.HandleMessage(mqtt.TopicSensorUpdate, devicePayload(t, motion, "0_sensorUpdate_true")); err != nil {
		t.Fatalf("boolean reading failed: %v", err)
	}

	if len(sink.readings) != 2 {
		t.Fatalf("sink got %d readings, want 2", len(sink.readings))
	}
	if r := sink.readings[0]; r.deviceID != "th1" || r.room != "bedroom" || r.value != 25.5 {
		t.Errorf("numeric reading = %+v", r)
	}
	if r := sink.readings[1]; r.deviceID != "m1" || r.value != 1 {
		t.Errorf("boolean reading = %+v", r)
	}
}

func TestSensorUpdateValidation(t *testing.T) {
	c, _ := startedCoordinator(t)

	thermo := protocol.DeviceSender("th1", "bedroom", "thermometer", 0)

	err := c.HandleMessage(mqtt.TopicSensorUpdate, devicePayload(t, thermo, "0_sensorUpdate"))
	if !errors.Is(err, protocol.ErrUnexpectedMessage) {
		t.Fatalf("valueless reading error = %v, want ErrUnexpectedMessage", err)
	}

	err = c.HandleMessage(mqtt.TopicSensorUpdate, devicePayload(t, thermo, "0_sensorUpdate_warm"))
	if !errors.Is(err, protocol.ErrMalformedMessage) {
		t.Fatalf("non-numeric reading error = %v, want ErrMalformedMessage", err)
	}
}

func TestSensorUpdateWithoutSink(t *testing.T) {
	c, _ := startedCoordinator(t)

	thermo := protocol.DeviceSender("th1", "bedroom", "thermometer", 0)
	if err := c.HandleMessage(mqtt.TopicSensorUpdate, devicePayload(t, thermo, "0_sensorUpdate_21.0")); err != nil {
		t.Fatalf("reading without sink failed: %v", err)
	}
}

func TestUpdateAndLogAreObserved(t *testing.T) {
	c, _ := startedCoordinator(t)

	light := protocol.DeviceSender("l1", "kitchen", "light", 10)
	if err := c.HandleMessage(mqtt.TopicUpdate, devicePayload(t, light, "3_on")); err != nil {
		t.Errorf("update handling failed: %v", err)
	}
	if err := c.HandleMessage(mqtt.TopicLog, devicePayload(t, light, "on_2026-08-30 10:00:00")); err != nil {
		t.Errorf("log handling failed: %v", err)
	}
}

func TestPowerUpdatesFeedConsumption(t *testing.T) {
	c, _ := startedCoordinator(t)
	sink := &recordingSink{}
	c.SetSink(sink)

	oven := protocol.DeviceSender("ov1", "kitchen", "oven", 2000)
	if err := c.HandleMessage(mqtt.TopicUpdate, devicePayload(t, oven, "1_on")); err != nil {
		t.Fatalf("on update failed: %v", err)
	}
	if err := c.HandleMessage(mqtt.TopicUpdate, devicePayload(t, oven, "2_setTemperature_200")); err != nil {
		t.Fatalf("domain update failed: %v", err)
	}
	if err := c.HandleMessage(mqtt.TopicUpdate, devicePayload(t, oven, "3_off")); err != nil {
		t.Fatalf("off update failed: %v", err)
	}

	// Only power transitions produce consumption points.
	if len(sink.consumption) != 2 {
		t.Fatalf("sink got %d consumption points, want 2", len(sink.consumption))
	}
	if p := sink.consumption[0]; !p.on || p.watts != 2000 {
		t.Errorf("on point = %+v, want on at 2000W", p)
	}
	if p := sink.consumption[1]; p.on || p.watts != 0 {
		t.Errorf("off point = %+v, want off at 0W", p)
	}
}

func TestSendCommand(t *testing.T) {
	c, session := startedCoordinator(t)

	light := protocol.DeviceSender("l1", "kitchen", "light", 10)
	msg := protocol.NewCommandValue(7, "setIntensity", "80")
	if err := c.SendCommand(light, msg); err != nil {
		t.Fatalf("SendCommand failed: %v", err)
	}

	sent := session.messagesOn("kitchen/light/l1/To")
	if len(sent) != 1 {
		t.Fatalf("got %d commands, want 1", len(sent))
	}
	env, err := protocol.DecodeEnvelope(sent[0].payload)
	if err != nil {
		t.Fatalf("command payload not an envelope: %v", err)
	}
	if env.Message != "7_setIntensity_80" {
		t.Errorf("command = %q, want 7_setIntensity_80", env.Message)
	}
}

func TestShutdownBroadcasts(t *testing.T) {
	c, session := startedCoordinator(t)

	if err := c.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	bcasts := session.messagesOn(mqtt.TopicBroadcast)
	if len(bcasts) != 1 {
		t.Fatalf("got %d broadcasts, want 1", len(bcasts))
	}
	env, err := protocol.DecodeEnvelope(bcasts[0].payload)
	if err != nil {
		t.Fatalf("broadcast payload not an envelope: %v", err)
	}
	if env.Message != "0_disconnected" {
		t.Errorf("broadcast = %q, want 0_disconnected", env.Message)
	}
	if session.disconnects != 1 {
		t.Errorf("session disconnects = %d, want 1", session.disconnects)
	}
}
