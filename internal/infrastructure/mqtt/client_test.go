package mqtt

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tazlauanubianca/Crowdsensing/internal/infrastructure/config"
)

// testConfig returns an MQTT configuration for a local broker.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "crowdsensing-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// connectOrSkip connects to the local broker or skips the test.
func connectOrSkip(t *testing.T) *Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping broker test in short mode")
	}
	client, err := Connect(testConfig())
	if err != nil {
		t.Skipf("MQTT broker not available: %v", err)
	}
	t.Cleanup(func() {
		client.Close() //nolint:errcheck // Test cleanup
	})
	return client
}

func TestConnect(t *testing.T) {
	client := connectOrSkip(t)

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestPublish(t *testing.T) {
	client := connectOrSkip(t)

	topic := Topics{}.RoundCompleted("run-test", 1)
	if err := client.Publish(topic, []byte(`{"round":1}`), 1, false); err != nil {
		t.Errorf("Publish() error = %v", err)
	}
	if err := client.PublishJSON(Topics{}.RunStatus("run-test"), map[string]string{"status": "done"}, true); err != nil {
		t.Errorf("PublishJSON() error = %v", err)
	}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on unconnected client error = %v, want nil", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true for unconnected client")
	}
}

func TestHealthCheckDisconnected(t *testing.T) {
	client := &Client{}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want %v", err, ErrNotConnected)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() with cancelled context error = %v", err)
	}
}

func TestPublishValidation(t *testing.T) {
	client := &Client{}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		want    error
	}{
		{name: "empty topic", topic: "", want: ErrInvalidTopic},
		{name: "invalid qos", topic: "a", qos: 3, want: ErrInvalidQoS},
		{name: "oversized payload", topic: "a", payload: make([]byte, maxPayloadSize+1), want: ErrPublishFailed},
		{name: "not connected", topic: "a", payload: []byte("{}"), want: ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.want) {
				t.Errorf("Publish() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPublishJSON_MarshalError(t *testing.T) {
	client := &Client{}
	err := client.PublishJSON("a", make(chan int), false)
	if !errors.Is(err, ErrPublishFailed) {
		t.Errorf("PublishJSON() error = %v, want %v", err, ErrPublishFailed)
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "sim"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)
	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want tcp://127.0.0.1:1883", opts.Servers)
	}
	if opts.ClientID != "crowdsensing-test" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "sim" || opts.Password != "secret" {
		t.Error("credentials not applied")
	}
	if opts.TLSConfig != nil {
		t.Error("TLS configured for a plain broker")
	}

	cfg.Broker.TLS = true
	opts = buildClientOptions(cfg)
	if opts.Servers[0].Scheme != "ssl" {
		t.Errorf("scheme = %q, want ssl", opts.Servers[0].Scheme)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Error("TLS minimum version not applied")
	}
}

func TestStatusPayloads(t *testing.T) {
	online := buildOnlinePayload("sim")
	offline := buildOfflinePayload("sim")

	if !strings.Contains(online, `"status":"online"`) || !strings.Contains(online, `"client_id":"sim"`) {
		t.Errorf("online payload = %s", online)
	}
	if !strings.Contains(offline, `"reason":"graceful_shutdown"`) {
		t.Errorf("offline payload = %s", offline)
	}
}

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"SystemStatus", topics.SystemStatus(), "crowdsensing/system/status"},
		{"RunStatus", topics.RunStatus("run-1"), "crowdsensing/runs/run-1/status"},
		{"RoundCompleted", topics.RoundCompleted("run-1", 4), "crowdsensing/runs/run-1/rounds/4"},
		{"DeviceReadings", topics.DeviceReadings("run-1", 7), "crowdsensing/runs/run-1/devices/7/readings"},
		{"AllRuns", topics.AllRuns(), "crowdsensing/runs/#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
			}
		})
	}
}
