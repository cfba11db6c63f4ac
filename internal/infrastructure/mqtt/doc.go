// Package mqtt provides MQTT client connectivity for Smart Lock Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect after the first session
//   - Message publishing with QoS validation
//   - Topic subscriptions, restored on reconnect
//   - Last Will and Testament (LWT) on smartlock/status
//   - A late-bound Bus so callers can run before the broker is reachable
//
// # Architecture
//
// Every device of an access point (camera node, door actuator, admin
// console, intercom) talks only through the broker. There is no direct
// device-to-device channel other than intercom audio.
//
//	Recognition ─ access ─▶ Broker ─▶ Coordinator ─ events/admin_action ─▶ Broker
//	Admin console ─ control ─▶ Broker ─▶ Coordinator ─▶ Actuators
//
// # Delivery
//
// Delivery is at-least-once at best. Publishers are not authenticated and
// duplicates are expected; de-duplication belongs to the receiver.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.Events(), mqtt.QoSExactlyOnce,
//	    func(topic string, payload []byte) error {
//	        log.Printf("%s: %s", topic, payload)
//	        return nil
//	    })
package mqtt
