package thermostat

import (
	"context"
	"fmt"
	"slices"

	"github.com/hearth-home/hearth-core/internal/entity"
)

// descriptions is the entity table for one thermostat. The target
// temperature and mode validate locally before touching the device, so an
// out-of-range value never produces a firmware round trip.
var descriptions = []entity.Description[Info, *Client]{
	{
		Key:  "temperature",
		Name: "Temperature",
		Kind: entity.KindSensor,
		Unit: "°C",
		Read: func(i Info) (entity.Value, bool) {
			return entity.FloatValue(i.CurrentTempC), true
		},
	},
	{
		Key:  "humidity",
		Name: "Humidity",
		Kind: entity.KindSensor,
		Unit: "%",
		Read: func(i Info) (entity.Value, bool) {
			if i.HumidityPct == nil {
				return entity.None(), false
			}
			return entity.FloatValue(*i.HumidityPct), true
		},
	},
	{
		Key:  "heating",
		Name: "Heating",
		Kind: entity.KindBinarySensor,
		Read: func(i Info) (entity.Value, bool) {
			return entity.BoolValue(i.Heating), true
		},
	},
	{
		Key:  "target_temperature",
		Name: "Target Temperature",
		Kind: entity.KindNumber,
		Unit: "°C",
		Read: func(i Info) (entity.Value, bool) {
			return entity.FloatValue(i.TargetTempC), true
		},
		Write: func(ctx context.Context, c *Client, v entity.Value) error {
			tempC, ok := v.AsFloat()
			if !ok {
				return fmt.Errorf("%w: target temperature wants a number, got %s", entity.ErrInvalidValue, v)
			}
			if tempC < MinTargetC || tempC > MaxTargetC {
				return fmt.Errorf("%w: %.1f outside %.0f-%.0f°C", entity.ErrInvalidValue, tempC, MinTargetC, MaxTargetC)
			}
			return c.SetTarget(ctx, tempC)
		},
	},
	{
		Key:     "mode",
		Name:    "Mode",
		Kind:    entity.KindSelect,
		Options: Modes,
		Read: func(i Info) (entity.Value, bool) {
			if i.Mode == "" {
				return entity.None(), false
			}
			return entity.StringValue(i.Mode), true
		},
		Write: func(ctx context.Context, c *Client, v entity.Value) error {
			mode, ok := v.AsString()
			if !ok || !slices.Contains(Modes, mode) {
				return fmt.Errorf("%w: unknown mode %s", entity.ErrInvalidValue, v)
			}
			return c.SetMode(ctx, mode)
		},
		Optimistic: true,
	},
}
