package mqttbridge

import (
	"context"
	"fmt"
	"time"

	"github.com/hearth-home/hearth-core/internal/coordinator"
	"github.com/hearth-home/hearth-core/internal/entity"
	"github.com/hearth-home/hearth-core/internal/entry"
)

// Domain is the integration's registered domain.
const Domain = "mqttbridge"

// firstStateTimeout bounds how long setup waits for the node's retained
// state before reporting not-ready.
const firstStateTimeout = 5 * time.Second

// Integration sets mqttbridge config entries up over a shared broker
// connection.
type Integration struct {
	bus Bus
}

// New creates the integration over an established broker connection.
func New(bus Bus) *Integration { return &Integration{bus: bus} }

// Domain returns "mqttbridge".
func (*Integration) Domain() string { return Domain }

// Setup subscribes to the node's topics and blocks until its retained
// state arrives, then routes further messages into the coordinator as
// pushed snapshots.
func (i *Integration) Setup(ctx context.Context, e *entry.ConfigEntry, env entry.Env) (*entry.Instance, error) {
	nodeID, ok := e.DataString("node_id")
	if !ok {
		return nil, fmt.Errorf("mqttbridge: entry %s has no node_id", e.ID)
	}

	n := newNodeClient(i.bus, nodeID)
	if err := n.subscribe(); err != nil {
		return nil, err
	}

	coord := coordinator.New(coordinator.Config[State]{
		Name:         Domain + ":" + nodeID,
		Client:       n,
		Interval:     0, // push mode
		FetchTimeout: firstStateTimeout,
		Logger:       env.Logger,
	})

	if err := coord.FirstRefresh(ctx); err != nil {
		n.Close()
		return nil, err
	}

	n.setCallbacks(coord.SetData, coord.SetUnavailable)
	coord.Start(ctx)

	return &entry.Instance{
		Entities:       entity.Build(e.ID, descriptions, coord, n),
		RequestRefresh: coord.RequestRefresh,
		Close: func() error {
			coord.Shutdown()
			return n.Close()
		},
	}, nil
}
