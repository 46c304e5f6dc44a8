// Package influxdb provides InfluxDB connectivity for Hearth Core.
//
// It wraps the official influxdb-client-go v2 library with Hearth-specific
// patterns for connection management, metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series data storage for:
//   - Long-term entity state history
//   - Entity availability transitions
//   - Energy and sensor telemetry
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "hearth",
//	    Bucket: "history",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Record an entity state
//	client.WriteEntityState("a1b2", "a1b2.power", 1450.0)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via a
// callback. Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size,
// flush_interval). This reduces network overhead for high-frequency
// telemetry data.
package influxdb
