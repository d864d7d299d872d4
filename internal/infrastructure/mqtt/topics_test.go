package mqtt

import "testing"

func TestSystemTopics(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{name: "registration", got: topics.Registration(), want: "registration"},
		{name: "update", got: topics.Update(), want: "update"},
		{name: "log", got: topics.Log(), want: "log"},
		{name: "sensorUpdate", got: topics.SensorUpdate(), want: "sensorUpdate"},
		{name: "broadcast", got: topics.Broadcast(), want: "broadcast"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestDeviceTopics(t *testing.T) {
	topics := Topics{}

	if got := topics.DeviceData("kitchen", "light", "light-1"); got != "kitchen/light/light-1/From" {
		t.Errorf("DeviceData = %q", got)
	}
	if got := topics.DeviceCommand("bedroom", "thermometer", "t-1"); got != "bedroom/thermometer/t-1/To" {
		t.Errorf("DeviceCommand = %q", got)
	}
}

func TestWildcardPatterns(t *testing.T) {
	topics := Topics{}

	if got := topics.AllDeviceData(); got != "+/+/+/From" {
		t.Errorf("AllDeviceData = %q", got)
	}
	if got := topics.AllDeviceCommands(); got != "+/+/+/To" {
		t.Errorf("AllDeviceCommands = %q", got)
	}
}
