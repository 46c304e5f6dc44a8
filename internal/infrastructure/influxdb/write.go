package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteEntityState records an entity's numeric state for long-term
// history. Non-blocking; points are batched and sent asynchronously.
func (c *Client) WriteEntityState(entryID, entityID string, value float64) {
	c.WriteEntityStateAt(entryID, entityID, value, time.Now())
}

// WriteEntityStateAt records an entity's numeric state with an explicit
// timestamp. Used when replaying buffered data.
func (c *Client) WriteEntityStateAt(entryID, entityID string, value float64, at time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"entity_state",
		map[string]string{
			"entry_id":  entryID,
			"entity_id": entityID,
		},
		map[string]interface{}{
			"value": value,
		},
		at,
	)

	c.writeAPI.WritePoint(point)
}

// WriteEntityAvailability records an availability transition for an entity.
//
// Availability is stored as a separate measurement so that gaps in the
// entity_state series can be distinguished from genuine missing data.
func (c *Client) WriteEntityAvailability(entryID, entityID string, available bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"entity_availability",
		map[string]string{
			"entry_id":  entryID,
			"entity_id": entityID,
		},
		map[string]interface{}{
			"available": available,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the entity helpers.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
