package mqttbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hearth-home/hearth-core/internal/client"
	"github.com/hearth-home/hearth-core/internal/infrastructure/mqtt"
)

// Bus is the broker surface the integration needs. *mqtt.Client
// satisfies it; tests substitute an in-memory fake.
type Bus interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// State is one node's reported state. All fields are optional; nodes
// publish only the sensors they carry.
type State struct {
	TemperatureC *float64 `json:"temperature_c"`
	HumidityPct  *float64 `json:"humidity_pct"`
	BatteryPct   *float64 `json:"battery_pct"`
	Motion       *bool    `json:"motion"`
	Siren        *bool    `json:"siren"`
}

// nodeClient adapts one node's MQTT topics to the coordinator's client
// interface. Incoming state is buffered so Fetch can serve the
// coordinator without blocking once the first message has landed.
type nodeClient struct {
	bus    Bus
	nodeID string
	topics mqtt.Topics

	mu        sync.Mutex
	latest    *State
	waiters   []chan State
	onState   func(State)
	onOffline func(error)
}

func newNodeClient(bus Bus, nodeID string) *nodeClient {
	return &nodeClient{bus: bus, nodeID: nodeID}
}

// subscribe attaches the state and status handlers. Retained messages are
// delivered immediately on subscribe, which is what makes a blocking
// first Fetch work for nodes that published before we started.
func (n *nodeClient) subscribe() error {
	if err := n.bus.Subscribe(n.topics.NodeState(n.nodeID), 1, n.handleState); err != nil {
		return fmt.Errorf("subscribing to node state: %w", err)
	}
	if err := n.bus.Subscribe(n.topics.NodeStatus(n.nodeID), 1, n.handleStatus); err != nil {
		return fmt.Errorf("subscribing to node status: %w", err)
	}
	return nil
}

func (n *nodeClient) handleState(topic string, payload []byte) error {
	var s State
	if err := json.Unmarshal(payload, &s); err != nil {
		return fmt.Errorf("undecodable state from node %s: %w", n.nodeID, err)
	}

	n.mu.Lock()
	n.latest = &s
	for _, w := range n.waiters {
		w <- s
	}
	n.waiters = nil
	onState := n.onState
	n.mu.Unlock()

	if onState != nil {
		onState(s)
	}
	return nil
}

func (n *nodeClient) handleStatus(topic string, payload []byte) error {
	if string(payload) != "offline" {
		return nil
	}

	n.mu.Lock()
	onOffline := n.onOffline
	n.mu.Unlock()

	if onOffline != nil {
		onOffline(client.Transientf("node %s reported offline", n.nodeID))
	}
	return nil
}

// setCallbacks routes subsequent messages straight into the coordinator.
// Called once setup's first refresh has succeeded.
func (n *nodeClient) setCallbacks(onState func(State), onOffline func(error)) {
	n.mu.Lock()
	n.onState = onState
	n.onOffline = onOffline
	n.mu.Unlock()
}

// Fetch returns the node's latest state, waiting for the first message
// when none has arrived yet. A node that stays silent until ctx expires
// is reported as transient so setup schedules a retry.
func (n *nodeClient) Fetch(ctx context.Context) (State, error) {
	n.mu.Lock()
	if n.latest != nil {
		s := *n.latest
		n.mu.Unlock()
		return s, nil
	}
	w := make(chan State, 1)
	n.waiters = append(n.waiters, w)
	n.mu.Unlock()

	select {
	case s := <-w:
		return s, nil
	case <-ctx.Done():
		return State{}, client.Transient(fmt.Errorf("no state from node %s: %w", n.nodeID, ctx.Err()))
	}
}

// SendCommand publishes a command payload to the node.
func (n *nodeClient) SendCommand(cmd map[string]any) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encoding node command: %w", err)
	}
	if err := n.bus.Publish(n.topics.NodeCommand(n.nodeID), payload, 1, false); err != nil {
		return client.Transient(fmt.Errorf("publishing node command: %w", err))
	}
	return nil
}

// Close drops the node's subscriptions. The shared bus stays open.
func (n *nodeClient) Close() error {
	n.setCallbacks(nil, nil)
	if err := n.bus.Unsubscribe(n.topics.NodeState(n.nodeID)); err != nil {
		return err
	}
	return n.bus.Unsubscribe(n.topics.NodeStatus(n.nodeID))
}
