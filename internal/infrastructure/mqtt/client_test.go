package mqtt

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hearth-home/hearth-core/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "localhost",
			Port:     1883,
			ClientID: "hearth-test",
		},
		Auth: config.MQTTAuthConfig{
			Username: "test",
			Password: "test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     10,
		},
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 {
		t.Fatalf("len(Servers) = %d, want 1", len(opts.Servers))
	}
	if got := opts.Servers[0].String(); got != "tcp://localhost:1883" {
		t.Errorf("broker URL = %q, want tcp://localhost:1883", got)
	}
	if opts.ClientID != "hearth-test" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "test" {
		t.Errorf("Username = %q", opts.Username)
	}
	if !opts.AutoReconnect {
		t.Error("AutoReconnect should be enabled")
	}
}

func TestBuildClientOptionsTLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	opts := buildClientOptions(cfg)

	if got := opts.Servers[0].Scheme; got != "ssl" {
		t.Errorf("scheme = %q, want ssl", got)
	}
	if opts.TLSConfig == nil {
		t.Error("TLSConfig should be set when TLS is enabled")
	}
}

func TestConfigureLWT(t *testing.T) {
	cfg := testConfig()
	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)

	if opts.WillTopic != "hearth/system/status" {
		t.Errorf("WillTopic = %q", opts.WillTopic)
	}
	if !opts.WillRetained {
		t.Error("LWT should be retained")
	}
	payload := string(opts.WillPayload)
	if !strings.Contains(payload, `"status":"offline"`) {
		t.Errorf("WillPayload = %q, missing offline status", payload)
	}
	if !strings.Contains(payload, "hearth-test") {
		t.Errorf("WillPayload = %q, missing client id", payload)
	}
}

func TestTopicBuilders(t *testing.T) {
	tests := []struct {
		name     string
		build    func() string
		expected string
	}{
		{"NodeState", func() string { return Topics{}.NodeState("attic-sensor") },
			"hearth/node/attic-sensor/state"},
		{"NodeStatus", func() string { return Topics{}.NodeStatus("attic-sensor") },
			"hearth/node/attic-sensor/status"},
		{"NodeCommand", func() string { return Topics{}.NodeCommand("attic-sensor") },
			"hearth/node/attic-sensor/command"},
		{"SystemStatus", func() string { return Topics{}.SystemStatus() },
			"hearth/system/status"},
		{"AllNodeStates", func() string { return Topics{}.AllNodeStates() },
			"hearth/node/+/state"},
		{"AllNodeStatuses", func() string { return Topics{}.AllNodeStatuses() },
			"hearth/node/+/status"},
		{"Everything", func() string { return Topics{}.Everything() },
			"hearth/#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.build(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestStatusPayload(t *testing.T) {
	online := statusPayload(statusOnline, "hearth-test", "")
	if !strings.Contains(online, `"status":"online"`) {
		t.Errorf("online payload = %q, missing status", online)
	}
	if strings.Contains(online, "reason") {
		t.Errorf("online payload = %q, reason should be omitted", online)
	}

	offline := statusPayload(statusOffline, "hearth-test", reasonGraceful)
	if !strings.Contains(offline, `"reason":"graceful_shutdown"`) {
		t.Errorf("offline payload = %q, missing reason", offline)
	}
}

func TestHealthCheckDisconnected(t *testing.T) {
	c := &Client{cfg: testConfig()}

	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() = %v, want ErrNotConnected", err)
	}
}

func TestPublishValidation(t *testing.T) {
	c := &Client{cfg: testConfig()}

	if err := c.Publish("", []byte("x"), 1, false); err != ErrInvalidTopic {
		t.Errorf("empty topic: err = %v, want ErrInvalidTopic", err)
	}
	if err := c.Publish("hearth/test", []byte("x"), 3, false); err != ErrInvalidQoS {
		t.Errorf("bad qos: err = %v, want ErrInvalidQoS", err)
	}
}

func TestSubscribeValidation(t *testing.T) {
	c := &Client{cfg: testConfig(), subscriptions: make(map[string]subscription)}

	if err := c.Subscribe("", 1, func(string, []byte) error { return nil }); err != ErrInvalidTopic {
		t.Errorf("empty topic: err = %v, want ErrInvalidTopic", err)
	}
	if err := c.Subscribe("hearth/test", 3, func(string, []byte) error { return nil }); err != ErrInvalidQoS {
		t.Errorf("bad qos: err = %v, want ErrInvalidQoS", err)
	}
	if c.SubscriptionCount() != 0 {
		t.Errorf("failed subscribes must not be tracked, count = %d", c.SubscriptionCount())
	}
}
