package device

import "fmt"

// Kind partitions the closed type set into actuators and sensors.
type Kind int

// Device kinds.
const (
	KindActuator Kind = iota
	KindSensor
)

// Type identifies one variant of the closed device type set.
type Type string

// Actuator types.
const (
	TypeLight          Type = "light"
	TypeAirConditioner Type = "airConditioner"
	TypeDehumidifier   Type = "dehumidifier"
	TypeShutter        Type = "shutter"
	TypeBoiler         Type = "boiler"
	TypeTV             Type = "tv"
	TypeWashingMachine Type = "washingMachine"
	TypeDishwasher     Type = "dishwasher"
	TypeOven           Type = "oven"
	TypeStereo         Type = "stereo"
)

// Sensor types.
const (
	TypeThermometer  Type = "thermometer"
	TypeHygrometer   Type = "hygrometer"
	TypeMotionSensor Type = "motionSensor"
	TypePhotometer   Type = "photometer"
)

// Room is a location in the simulated home.
type Room string

// The allowed room set. Construction fails for any other room.
const (
	RoomHome        Room = "home"
	RoomKitchen     Room = "kitchen"
	RoomLivingRoom  Room = "livingRoom"
	RoomBedroom     Room = "bedroom"
	RoomBathroom    Room = "bathroom"
	RoomCorridor    Room = "corridor"
	RoomGarage      Room = "garage"
	RoomGarden      Room = "garden"
	RoomLaundryRoom Room = "laundryRoom"
)

var allowedRooms = map[Room]struct{}{
	RoomHome:        {},
	RoomKitchen:     {},
	RoomLivingRoom:  {},
	RoomBedroom:     {},
	RoomBathroom:    {},
	RoomCorridor:    {},
	RoomGarage:      {},
	RoomGarden:      {},
	RoomLaundryRoom: {},
}

// Valid reports whether the room is in the allowed set.
func (r Room) Valid() bool {
	_, ok := allowedRooms[r]
	return ok
}

// Type-specific command tokens. Lifecycle tokens (on, off, register, ...)
// live in the protocol package.
const (
	CmdSetIntensity   = "setIntensity"
	CmdSetTemperature = "setTemperature"
	CmdSetHumidity    = "setHumidity"
	CmdSetVolume      = "setVolume"
	CmdMute           = "mute"
	CmdOpen           = "open"
	CmdClose          = "close"
	CmdSetWashingType = "setWashingType"
	CmdSetSpinSpeed   = "setSpinSpeed"
	CmdSetProgram     = "setProgram"
	CmdSetMode        = "setMode"
	CmdAddExtra       = "addExtra"
	CmdRemoveExtra    = "removeExtra"
)

// levelSpec bounds an integer level controlled by a single setter command.
// Values outside [Min,Max] are clamped, never rejected.
type levelSpec struct {
	Command string
	Min     int
	Max     int
	Initial int
}

// modeSpec is an enumerated setting controlled by a single setter command.
type modeSpec struct {
	Command string
	Allowed []string
	Initial string
}

// sensorKind selects the debounce comparison strategy.
type sensorKind int

const (
	sensorNumeric sensorKind = iota
	sensorBoolean
)

// sensorSpec describes a sensor variant's reading.
type sensorSpec struct {
	Kind    sensorKind
	Default float64
}

// capability is the design-constant description of one device type.
// The registry hardcodes these; they are not discoverable at runtime.
type capability struct {
	Kind        Kind
	Consumption int

	Level     *levelSpec
	Modes     []modeSpec
	Extras    []string
	CanMute   bool
	OpenClose bool

	Sensor *sensorSpec
}

// capabilities is the closed variant set with its attached capability table.
// The actuator and sensor subsets are disjoint by construction (one Kind per
// entry).
var capabilities = map[Type]capability{
	TypeLight: {
		Kind:        KindActuator,
		Consumption: 10,
		Level:       &levelSpec{Command: CmdSetIntensity, Min: 1, Max: 100, Initial: 50},
	},
	TypeAirConditioner: {
		Kind:        KindActuator,
		Consumption: 1500,
		Level:       &levelSpec{Command: CmdSetTemperature, Min: 10, Max: 35, Initial: 22},
	},
	TypeDehumidifier: {
		Kind:        KindActuator,
		Consumption: 250,
		Level:       &levelSpec{Command: CmdSetHumidity, Min: 20, Max: 80, Initial: 50},
	},
	TypeShutter: {
		Kind:        KindActuator,
		Consumption: 150,
		OpenClose:   true,
	},
	TypeBoiler: {
		Kind:        KindActuator,
		Consumption: 1200,
		Level:       &levelSpec{Command: CmdSetTemperature, Min: 20, Max: 60, Initial: 40},
	},
	TypeTV: {
		Kind:        KindActuator,
		Consumption: 100,
		Level:       &levelSpec{Command: CmdSetVolume, Min: 0, Max: 100, Initial: 50},
		CanMute:     true,
		Extras:      []string{"4k", "hdr", "dolby"},
	},
	TypeWashingMachine: {
		Kind:        KindActuator,
		Consumption: 500,
		Modes: []modeSpec{
			{Command: CmdSetWashingType, Allowed: []string{"mix", "wool", "rapid"}, Initial: "mix"},
			{Command: CmdSetSpinSpeed, Allowed: []string{"slow", "medium", "fast"}, Initial: "medium"},
		},
		Extras: []string{"superDry", "superDirty", "steam"},
	},
	TypeDishwasher: {
		Kind:        KindActuator,
		Consumption: 450,
		Modes: []modeSpec{
			{Command: CmdSetProgram, Allowed: []string{"intensive", "normal", "eco"}, Initial: "normal"},
		},
		Extras: []string{"superSteam", "superDirty", "superHygiene"},
	},
	TypeOven: {
		Kind:        KindActuator,
		Consumption: 2000,
		Level:       &levelSpec{Command: CmdSetTemperature, Min: 0, Max: 250, Initial: 180},
		Modes: []modeSpec{
			{Command: CmdSetMode, Allowed: []string{"conventional", "grill", "fan", "defrost"}, Initial: "conventional"},
		},
	},
	TypeStereo: {
		Kind:        KindActuator,
		Consumption: 60,
		Level:       &levelSpec{Command: CmdSetVolume, Min: 0, Max: 100, Initial: 50},
		CanMute:     true,
	},

	TypeThermometer: {
		Kind:        KindSensor,
		Consumption: 1,
		Sensor:      &sensorSpec{Kind: sensorNumeric, Default: 18.0},
	},
	TypeHygrometer: {
		Kind:        KindSensor,
		Consumption: 1,
		Sensor:      &sensorSpec{Kind: sensorNumeric, Default: 40.0},
	},
	TypeMotionSensor: {
		Kind:        KindSensor,
		Consumption: 1,
		Sensor:      &sensorSpec{Kind: sensorBoolean, Default: 0},
	},
	TypePhotometer: {
		Kind:        KindSensor,
		Consumption: 1,
		Sensor:      &sensorSpec{Kind: sensorNumeric, Default: 200.0},
	},
}

// TypeOf resolves a type name against the closed variant set.
func TypeOf(name string) (Type, error) {
	t := Type(name)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownDeviceType, name)
	}
	return t, nil
}

// Valid reports whether the type is in the closed variant set.
func (t Type) Valid() bool {
	_, ok := capabilities[t]
	return ok
}

// IsSensor reports whether the type is a sensor variant.
// Returns false for actuator variants and for unknown names.
func (t Type) IsSensor() bool {
	return capabilities[t].Kind == KindSensor && t.Valid()
}

// DefaultConsumption returns the type's nominal power draw in watts.
func (t Type) DefaultConsumption() int {
	return capabilities[t].Consumption
}

// SensorDefault returns the initial reading for sensor variants and false
// for everything else. Boolean sensors carry their reading as 0 or 1.
func (t Type) SensorDefault() (float64, bool) {
	if spec := capabilities[t].Sensor; spec != nil {
		return spec.Default, true
	}
	return 0, false
}

// SensorIsBoolean reports whether the type is a boolean sensor.
func (t Type) SensorIsBoolean() bool {
	spec := capabilities[t].Sensor
	return spec != nil && spec.Kind == sensorBoolean
}

// AllTypes returns every variant in the closed set.
func AllTypes() []Type {
	types := make([]Type, 0, len(capabilities))
	for t := range capabilities {
		types = append(types, t)
	}
	return types
}
