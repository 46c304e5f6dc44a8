package thermostat

import (
	"context"
	"fmt"
	"time"

	"github.com/hearth-home/hearth-core/internal/coordinator"
	"github.com/hearth-home/hearth-core/internal/entity"
	"github.com/hearth-home/hearth-core/internal/entry"
)

// Domain is the integration's registered domain.
const Domain = "thermostat"

const defaultScanInterval = 60 * time.Second

// Integration sets thermostat config entries up.
type Integration struct{}

// New creates the integration.
func New() *Integration { return &Integration{} }

// Domain returns "thermostat".
func (Integration) Domain() string { return Domain }

// Setup builds the client and coordinator for one thermostat, performs
// the blocking first refresh, and starts polling.
func (Integration) Setup(ctx context.Context, e *entry.ConfigEntry, env entry.Env) (*entry.Instance, error) {
	host, ok := e.DataString("host")
	if !ok {
		return nil, fmt.Errorf("thermostat: entry %s has no host", e.ID)
	}
	pin, _ := e.DataString("pin")

	c := NewClient(host, pin)
	coord := coordinator.New(coordinator.Config[Info]{
		Name:          Domain + ":" + host,
		Client:        c,
		Interval:      e.OptionDuration("scan_interval", defaultScanInterval),
		Logger:        env.Logger,
		OnAuthFailure: env.OnAuthFailure,
	})

	if err := coord.FirstRefresh(ctx); err != nil {
		c.Close()
		return nil, err
	}
	coord.Start(ctx)

	return &entry.Instance{
		Entities:       entity.Build(e.ID, descriptions, coord, c),
		RequestRefresh: coord.RequestRefresh,
		Close: func() error {
			coord.Shutdown()
			return c.Close()
		},
	}, nil
}
