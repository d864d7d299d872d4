// Package influxdb provides the optional telemetry sink for Domus Core.
//
// It wraps the official influxdb-client-go v2 library for connection
// management and non-blocking, batched writes.
//
// # Purpose
//
// The coordinator records accepted sensor readings and observed power
// draw here so a simulation run leaves an inspectable time series behind.
// The sink is strictly write-only and optional; the protocol itself never
// depends on it.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without a sink
//	}
//	defer client.Close()
//
//	client.WriteSensorReading("bedroom", "thermometer", "thermo-1", 21.5)
package influxdb
