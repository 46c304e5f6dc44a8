package powermeter

import "github.com/hearth-home/hearth-core/internal/entity"

// sensors is the read-only description table projected from a Reading.
// The phase sensors read through optional payload sections, so they go
// unavailable on single-phase meters while the main sensors keep working.
var sensors = []entity.Description[Reading, *Client]{
	{
		Key:  "power",
		Name: "Power",
		Kind: entity.KindSensor,
		Unit: "W",
		Read: func(r Reading) (entity.Value, bool) {
			return entity.FloatValue(r.PowerW), true
		},
	},
	{
		Key:  "energy",
		Name: "Energy",
		Kind: entity.KindSensor,
		Unit: "kWh",
		Read: func(r Reading) (entity.Value, bool) {
			return entity.FloatValue(r.EnergyKWh), true
		},
	},
	{
		Key:  "voltage",
		Name: "Voltage",
		Kind: entity.KindSensor,
		Unit: "V",
		Read: func(r Reading) (entity.Value, bool) {
			if r.VoltageV == nil {
				return entity.None(), false
			}
			return entity.FloatValue(*r.VoltageV), true
		},
	},
	{
		Key:  "power_l1",
		Name: "Power L1",
		Kind: entity.KindSensor,
		Unit: "W",
		Read: phasePower(func(p Phases) float64 { return p.L1W }),
	},
	{
		Key:  "power_l2",
		Name: "Power L2",
		Kind: entity.KindSensor,
		Unit: "W",
		Read: phasePower(func(p Phases) float64 { return p.L2W }),
	},
	{
		Key:  "power_l3",
		Name: "Power L3",
		Kind: entity.KindSensor,
		Unit: "W",
		Read: phasePower(func(p Phases) float64 { return p.L3W }),
	},
}

func phasePower(pick func(Phases) float64) func(Reading) (entity.Value, bool) {
	return func(r Reading) (entity.Value, bool) {
		if r.Phases == nil {
			return entity.None(), false
		}
		return entity.FloatValue(pick(*r.Phases)), true
	}
}
