package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Separator joins the fields of a wire command. Command and value strings
// must not contain it; the format is not escaped.
const Separator = "_"

// NoCorrelation is the id used when a message carries no correlation id.
const NoCorrelation = 0

// Lifecycle tokens understood by both devices and the coordinator.
// Device-specific command tokens (setIntensity, setVolume, ...) live with
// the device capability tables.
const (
	CmdRegister     = "register"
	CmdRegSuccess   = "regSuccess"
	CmdDisconnect   = "disconnect"
	CmdDisconnected = "disconnected"
	CmdOn           = "on"
	CmdOff          = "off"
	CmdSensorUpdate = "sensorUpdate"
)

// CommandMessage is a single wire-level command.
//
// The encoded form is "<id>_<command>" or "<id>_<command>_<value>".
// HasValue distinguishes an absent value from an empty one.
type CommandMessage struct {
	ID      int
	Command string
	Value   string
	HasValue bool
}

// NewCommand creates a value-less command message.
func NewCommand(id int, command string) CommandMessage {
	return CommandMessage{ID: id, Command: command}
}

// NewCommandValue creates a command message carrying a value.
func NewCommandValue(id int, command, value string) CommandMessage {
	return CommandMessage{ID: id, Command: command, Value: value, HasValue: true}
}

// Encode renders the message in wire form.
//
// The round trip Decode(m.Encode()) == m holds as long as neither Command
// nor Value contains the separator character.
func (m CommandMessage) Encode() string {
	if m.HasValue {
		return fmt.Sprintf("%d%s%s%s%s", m.ID, Separator, m.Command, Separator, m.Value)
	}
	return fmt.Sprintf("%d%s%s", m.ID, Separator, m.Command)
}

// Decode parses a wire command.
//
// Exactly two fields mean no value, exactly three mean a value is present.
// Any other field count, or a non-integer id, is ErrMalformedMessage.
func Decode(raw string) (CommandMessage, error) {
	fields := strings.Split(raw, Separator)

	const (
		fieldsNoValue   = 2
		fieldsWithValue = 3
	)

	if len(fields) != fieldsNoValue && len(fields) != fieldsWithValue {
		return CommandMessage{}, fmt.Errorf("%w: %q has %d fields", ErrMalformedMessage, raw, len(fields))
	}

	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return CommandMessage{}, fmt.Errorf("%w: non-numeric id in %q", ErrMalformedMessage, raw)
	}

	if fields[1] == "" {
		return CommandMessage{}, fmt.Errorf("%w: empty command in %q", ErrMalformedMessage, raw)
	}

	msg := CommandMessage{ID: id, Command: fields[1]}
	if len(fields) == fieldsWithValue {
		msg.Value = fields[2]
		msg.HasValue = true
	}
	return msg, nil
}
