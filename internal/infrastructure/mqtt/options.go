package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/hearth-home/hearth-core/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout bounds the initial connection attempt.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout bounds waiting for a publish acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the disconnect grace period in
	// milliseconds, letting pending publishes drain.
	defaultDisconnectQuiesce = 1000

	// defaultKeepAlive is the connection keepalive interval.
	defaultKeepAlive = 60 * time.Second

	// maxQoS is the highest valid QoS level.
	maxQoS = 2

	tlsMinVersion = tls.VersionTLS12
)

// Hub availability values published on the system status topic.
const (
	statusOnline  = "online"
	statusOffline = "offline"

	reasonGraceful = "graceful_shutdown"
	reasonCrash    = "unexpected_disconnect"
)

// statusMessage is the retained announcement on the system status topic.
// Dashboards and bridge firmware watch it to tell a hub restart from a
// broker outage.
type statusMessage struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

// statusPayload renders one availability announcement. An empty reason is
// omitted from the JSON.
func statusPayload(status, clientID, reason string) string {
	b, _ := json.Marshal(statusMessage{
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return string(b)
}

// buildClientOptions translates Hearth's MQTT config into paho options:
// broker URL and client ID, optional credentials and TLS, clean sessions,
// and auto-reconnect with backoff between the configured delays.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port))
	opts.SetClientID(cfg.Broker.ClientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})
	}

	return opts
}

// configureLWT registers the crash announcement the broker publishes on
// the hub's behalf if the connection dies without a graceful Close.
// Retained at QoS 1 so every watcher sees it.
func configureLWT(opts *pahomqtt.ClientOptions, clientID string) {
	opts.SetWill(
		Topics{}.SystemStatus(),
		statusPayload(statusOffline, clientID, reasonCrash),
		1,
		true,
	)
}
