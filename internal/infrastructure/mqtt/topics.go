package mqtt

import "fmt"

// Topic prefixes for the Hearth MQTT scheme.
//
// Node topics follow: hearth/node/{node_id}/{category}
// where node_id is the device identifier configured on the firmware side.
const (
	// TopicPrefixNode is the base for all device node topics.
	TopicPrefixNode = "hearth/node"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "hearth/system"
)

// Topics provides builders for Hearth MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.NodeState("attic-sensor")
//	// Returns: "hearth/node/attic-sensor/state"
type Topics struct{}

// NodeState returns the topic a node publishes its state on.
//
// Example: hearth/node/attic-sensor/state
func (Topics) NodeState(nodeID string) string {
	return fmt.Sprintf("%s/%s/state", TopicPrefixNode, nodeID)
}

// NodeStatus returns the availability topic for a node. Nodes publish
// "online" retained here and register "offline" as their LWT.
//
// Example: hearth/node/attic-sensor/status
func (Topics) NodeStatus(nodeID string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefixNode, nodeID)
}

// NodeCommand returns the topic commands to a node are published on.
//
// Example: hearth/node/attic-sensor/command
func (Topics) NodeCommand(nodeID string) string {
	return fmt.Sprintf("%s/%s/command", TopicPrefixNode, nodeID)
}

// SystemStatus returns the hub's own status topic, used for the LWT and
// the online/offline announcements.
//
// Example: hearth/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// AllNodeStates returns a wildcard pattern matching every node's state
// topic.
//
// Pattern: hearth/node/+/state
func (Topics) AllNodeStates() string {
	return TopicPrefixNode + "/+/state"
}

// AllNodeStatuses returns a wildcard pattern matching every node's
// availability topic.
//
// Pattern: hearth/node/+/status
func (Topics) AllNodeStatuses() string {
	return TopicPrefixNode + "/+/status"
}

// Everything returns a wildcard matching all Hearth topics.
//
// Pattern: hearth/#
func (Topics) Everything() string {
	return "hearth/#"
}
