package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSensorReading records one accepted (debounced) sensor reading.
//
// The write is non-blocking; data is batched and sent asynchronously.
// Tags keep cardinality low: room, device type and device id only.
//
// Example:
//
//	client.WriteSensorReading("bedroom", "thermometer", "thermo-1", 21.5)
func (c *Client) WriteSensorReading(room, deviceType, deviceID string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"sensor_reading",
		map[string]string{
			"room":        room,
			"device_type": deviceType,
			"device_id":   deviceID,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteConsumption records the nominal power draw of a device, keyed by its
// power state. Written when the coordinator observes an on/off echo.
func (c *Client) WriteConsumption(room, deviceType, deviceID string, watts float64, on bool) {
	if !c.IsConnected() {
		return
	}

	draw := 0.0
	if on {
		draw = watts
	}

	point := write.NewPoint(
		"consumption",
		map[string]string{
			"room":        room,
			"device_type": deviceType,
			"device_id":   deviceID,
		},
		map[string]interface{}{
			"power_watts": draw,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
