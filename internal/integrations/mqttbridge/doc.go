// Package mqttbridge integrates MQTT firmware nodes into Hearth Core.
//
// Nodes publish retained JSON state to hearth/node/{id}/state and an
// online/offline LWT to hearth/node/{id}/status. This is a push
// integration: the coordinator runs without a polling timer, and every
// incoming state message becomes a new snapshot. An offline status marks
// all of the node's entities unavailable while keeping their last-known
// values for when it returns.
//
// Setup blocks until the node's retained state arrives; a node that has
// never published (or a broker without its retained message) surfaces as
// not-ready so the manager retries later.
//
// Entry data:
//   - node_id: the node's topic identifier, e.g. "attic-sensor"
package mqttbridge
