// Package mqtt wraps paho.mqtt.golang for the daemon's broker connection.
//
// The client reconnects automatically, restores its subscriptions after a
// reconnect and maintains a retained online/offline status message, with a
// Last Will so the broker marks the daemon offline if it dies.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AutoCommand(), 1,
//	    func(topic string, payload []byte) error {
//	        return handleToggle(payload)
//	    })
//
// Handlers run on paho's goroutines; a panicking handler is recovered and
// logged.
package mqtt
