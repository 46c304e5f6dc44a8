package mqttbridge

import (
	"context"
	"fmt"

	"github.com/hearth-home/hearth-core/internal/entity"
)

// descriptions projects entities from a node State. Every field is
// optional, so each entity's availability follows its own field. The
// siren is optimistic: the node echoes the new state on its next
// publish, which can be seconds away.
var descriptions = []entity.Description[State, *nodeClient]{
	{
		Key:  "temperature",
		Name: "Temperature",
		Kind: entity.KindSensor,
		Unit: "°C",
		Read: optFloat(func(s State) *float64 { return s.TemperatureC }),
	},
	{
		Key:  "humidity",
		Name: "Humidity",
		Kind: entity.KindSensor,
		Unit: "%",
		Read: optFloat(func(s State) *float64 { return s.HumidityPct }),
	},
	{
		Key:  "battery",
		Name: "Battery",
		Kind: entity.KindSensor,
		Unit: "%",
		Read: optFloat(func(s State) *float64 { return s.BatteryPct }),
	},
	{
		Key:  "motion",
		Name: "Motion",
		Kind: entity.KindBinarySensor,
		Read: func(s State) (entity.Value, bool) {
			if s.Motion == nil {
				return entity.None(), false
			}
			return entity.BoolValue(*s.Motion), true
		},
	},
	{
		Key:  "siren",
		Name: "Siren",
		Kind: entity.KindSwitch,
		Read: func(s State) (entity.Value, bool) {
			if s.Siren == nil {
				return entity.None(), false
			}
			return entity.BoolValue(*s.Siren), true
		},
		Write: func(ctx context.Context, n *nodeClient, v entity.Value) error {
			on, ok := v.AsBool()
			if !ok {
				return fmt.Errorf("%w: siren wants a bool, got %s", entity.ErrInvalidValue, v)
			}
			return n.SendCommand(map[string]any{"siren": on})
		},
		Optimistic: true,
	},
}

func optFloat(pick func(State) *float64) func(State) (entity.Value, bool) {
	return func(s State) (entity.Value, bool) {
		p := pick(s)
		if p == nil {
			return entity.None(), false
		}
		return entity.FloatValue(*p), true
	}
}
