// Package mqtt provides MQTT client connectivity for Domus Core.
//
// This package manages:
//   - One broker session per simulated actor (device or coordinator)
//   - Connection with a primary and a fallback broker address
//   - Message publishing with at-least-once delivery and pacing
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//
// # Architecture
//
// MQTT is the only channel between simulated devices and the coordinator;
// there is no shared memory. Every actor holds its own Client so each has
// its own session, credentials and last will:
//
//	Device  ↔ MQTT Broker ↔ Coordinator
//
// # Topic scheme
//
// Five fixed system topics (registration, update, log, sensorUpdate,
// broadcast) plus two per-device topics derived from identity:
// {room}/{deviceType}/{id}/From for outgoing data and .../To for incoming
// commands. The Topics builder type is the single source of these strings.
//
// # Usage
//
//	client := mqtt.NewClient(cfg.MQTT, "domus-light-1", &mqtt.Will{
//	    Topic:   mqtt.Topics{}.Registration(),
//	    Payload: willPayload,
//	})
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Disconnect()
//
//	err := client.Subscribe(mqtt.Topics{}.Broadcast(),
//	    func(topic string, payload []byte) error {
//	        return handle(topic, payload)
//	    })
package mqtt
