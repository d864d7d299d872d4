package device

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/domuslab/domus-core/internal/protocol"
)

// Device is one simulated smart-home device.
//
// Identity is id/room/type; behaviour comes from the capability table for
// the type. Equality is defined by id alone.
//
// Thread Safety:
//   - All state accessors and Apply are safe for concurrent use.
type Device struct {
	id          string
	room        Room
	typ         Type
	consumption int

	mu     sync.Mutex
	on     bool
	level  int
	modes  map[string]string
	extras map[string]struct{}
	open   bool
}

// New constructs a device from a type name, id and room.
//
// Fails with ErrUnknownDeviceType when the name matches no variant and with
// ErrInvalidRoom when the room is not in the allowed set. No partial device
// is ever created.
func New(typeName, id, room string) (*Device, error) {
	t, err := TypeOf(typeName)
	if err != nil {
		return nil, err
	}

	r := Room(room)
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRoom, room)
	}

	caps := capabilities[t]

	d := &Device{
		id:          id,
		room:        r,
		typ:         t,
		consumption: caps.Consumption,
		modes:       make(map[string]string, len(caps.Modes)),
		extras:      make(map[string]struct{}),
	}
	if caps.Level != nil {
		d.level = caps.Level.Initial
	}
	for _, m := range caps.Modes {
		d.modes[m.Command] = m.Initial
	}
	return d, nil
}

// ID returns the device identity.
func (d *Device) ID() string { return d.id }

// Room returns the device's room.
func (d *Device) Room() Room { return d.room }

// Type returns the device's variant.
func (d *Device) Type() Type { return d.typ }

// Consumption returns the nominal power draw in watts.
func (d *Device) Consumption() int { return d.consumption }

// Equal reports identity equality; devices are equal when their ids match.
func (d *Device) Equal(other *Device) bool {
	return other != nil && d.id == other.id
}

// Sender returns the envelope sender descriptor for this device.
func (d *Device) Sender() protocol.Sender {
	return protocol.DeviceSender(d.id, string(d.room), string(d.typ), d.consumption)
}

// IsOn returns the power state.
func (d *Device) IsOn() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.on
}

// SetPower sets the power state and reports whether it changed.
func (d *Device) SetPower(on bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.on == on {
		return false
	}
	d.on = on
	return true
}

// Level returns the current level for leveled types, 0 otherwise.
func (d *Device) Level() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.level
}

// Mode returns the current value of an enumerated setting, keyed by its
// setter command (e.g. "setProgram"). Empty when the type has no such
// setting.
func (d *Device) Mode(command string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.modes[command]
}

// ActiveExtras returns the currently active extras, sorted.
func (d *Device) ActiveExtras() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.extras))
	for e := range d.extras {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// IsOpen returns the shutter position for shutter devices.
func (d *Device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// Apply runs the type-specific handler for one command message.
//
// It returns nil when the command was applied and ErrUnexpectedMessage (from
// the protocol package) when the command is not recognised for this type or
// carries an invalid value. Rejected commands change no state. On/off and
// lifecycle tokens are not handled here.
func (d *Device) Apply(msg protocol.CommandMessage) error {
	caps := capabilities[d.typ]

	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case caps.Level != nil && msg.Command == caps.Level.Command:
		return d.applyLevel(caps.Level, msg)

	case caps.CanMute && msg.Command == CmdMute:
		d.level = caps.Level.Min
		return nil

	case caps.OpenClose && msg.Command == CmdOpen:
		d.open = true
		return nil

	case caps.OpenClose && msg.Command == CmdClose:
		d.open = false
		return nil

	case len(caps.Extras) > 0 && (msg.Command == CmdAddExtra || msg.Command == CmdRemoveExtra):
		return d.applyExtra(caps.Extras, msg)

	default:
		for _, m := range caps.Modes {
			if m.Command == msg.Command {
				return d.applyMode(m, msg)
			}
		}
		return fmt.Errorf("%w: command %q not recognised by %s",
			protocol.ErrUnexpectedMessage, msg.Command, d.typ)
	}
}

// applyLevel parses and clamps a level-setter value. Caller holds d.mu.
func (d *Device) applyLevel(spec *levelSpec, msg protocol.CommandMessage) error {
	if !msg.HasValue {
		return fmt.Errorf("%w: %s requires a value", protocol.ErrUnexpectedMessage, msg.Command)
	}
	v, err := strconv.Atoi(msg.Value)
	if err != nil {
		return fmt.Errorf("%w: non-numeric value %q for %s",
			protocol.ErrUnexpectedMessage, msg.Value, msg.Command)
	}

	if v < spec.Min {
		v = spec.Min
	}
	if v > spec.Max {
		v = spec.Max
	}
	d.level = v
	return nil
}

// applyMode validates an enumerated setting value. Caller holds d.mu.
func (d *Device) applyMode(spec modeSpec, msg protocol.CommandMessage) error {
	if !msg.HasValue {
		return fmt.Errorf("%w: %s requires a value", protocol.ErrUnexpectedMessage, msg.Command)
	}
	for _, allowed := range spec.Allowed {
		if msg.Value == allowed {
			d.modes[spec.Command] = msg.Value
			return nil
		}
	}
	return fmt.Errorf("%w: value %q not allowed for %s",
		protocol.ErrUnexpectedMessage, msg.Value, msg.Command)
}

// applyExtra validates and toggles an extra. Caller holds d.mu.
// Add and remove are idempotent; at-least-once delivery may repeat them.
func (d *Device) applyExtra(allowed []string, msg protocol.CommandMessage) error {
	if !msg.HasValue {
		return fmt.Errorf("%w: %s requires a value", protocol.ErrUnexpectedMessage, msg.Command)
	}

	found := false
	for _, e := range allowed {
		if msg.Value == e {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: extra %q not supported by %s",
			protocol.ErrUnexpectedMessage, msg.Value, d.typ)
	}

	if msg.Command == CmdAddExtra {
		d.extras[msg.Value] = struct{}{}
	} else {
		delete(d.extras, msg.Value)
	}
	return nil
}
