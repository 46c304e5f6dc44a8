// Package mqtt provides MQTT client connectivity for Hearth Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Hearth uses MQTT as the transport for push integrations: firmware nodes
// publish their state to node topics and the mqttbridge integration feeds
// those messages into its coordinator. The broker decouples Core from the
// devices.
//
//	Device nodes ↔ MQTT Broker ↔ Hearth Core (mqttbridge integration)
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to one node's state updates
//	err = client.Subscribe(mqtt.Topics{}.NodeState("attic-sensor"), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish a command
//	topic := mqtt.Topics{}.NodeCommand("attic-sensor")
//	client.Publish(topic, []byte(`{"siren":true}`), 1, false)
package mqtt
