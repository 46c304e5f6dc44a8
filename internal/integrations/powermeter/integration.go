package powermeter

import (
	"context"
	"fmt"
	"time"

	"github.com/hearth-home/hearth-core/internal/coordinator"
	"github.com/hearth-home/hearth-core/internal/entity"
	"github.com/hearth-home/hearth-core/internal/entry"
)

// Domain is the integration's registered domain.
const Domain = "powermeter"

// defaultScanInterval is used when the entry sets no scan_interval option.
const defaultScanInterval = 30 * time.Second

// Integration sets powermeter config entries up.
type Integration struct{}

// New creates the integration.
func New() *Integration { return &Integration{} }

// Domain returns "powermeter".
func (Integration) Domain() string { return Domain }

// Setup builds the client and coordinator for one meter, performs the
// blocking first refresh, and starts polling. An unreachable meter
// surfaces as coordinator.ErrNotReady so the manager schedules a retry.
func (Integration) Setup(ctx context.Context, e *entry.ConfigEntry, env entry.Env) (*entry.Instance, error) {
	host, ok := e.DataString("host")
	if !ok {
		return nil, fmt.Errorf("powermeter: entry %s has no host", e.ID)
	}
	apiKey, _ := e.DataString("api_key")

	c := NewClient(host, apiKey)
	coord := coordinator.New(coordinator.Config[Reading]{
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
		Entities:       entity.Build(e.ID, sensors, coord, c),
		RequestRefresh: coord.RequestRefresh,
		Close: func() error {
			coord.Shutdown()
			return c.Close()
		},
	}, nil
}
