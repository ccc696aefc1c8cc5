package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"rover-console/internal/logging"
	"rover-console/internal/telemetry"
)

const (
	mqttQoS            = 1
	mqttPublishTimeout = 5 * time.Second
)

var errNotConnected = errors.New("mqtt client not connected")

// mqttConnectWait bounds how long NewMQTTRecorder waits for the first
// connection before leaving it to the client's retry loop.
var mqttConnectWait = 2 * time.Second

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

// MQTTRecorder publishes records to rovers/<rover_id>/telemetry.
type MQTTRecorder struct {
	client  publisher
	roverID string
	timeout time.Duration
}

// TelemetryTopic returns the topic records for roverID are published on.
func TelemetryTopic(roverID string) string {
	return fmt.Sprintf("rovers/%s/telemetry", roverID)
}

// NewMQTTRecorder connects to broker. It waits briefly for the first
// connection; an unreachable broker is retried in the background and records
// fail with errNotConnected until it answers. broker may omit the scheme, in
// which case tcp is used.
func NewMQTTRecorder(ctx context.Context, broker, clientID, roverID string) (*MQTTRecorder, error) {
	log := logging.FromContext(ctx)
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		log.Info("mqtt connected", "broker", broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn("mqtt connection lost", "err", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	waitCtx, cancel := context.WithTimeout(ctx, mqttConnectWait)
	defer cancel()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			client.Disconnect(0)
			return nil, fmt.Errorf("mqtt connect: %w", err)
		}
	case <-waitCtx.Done():
		if err := ctx.Err(); err != nil {
			client.Disconnect(0)
			return nil, fmt.Errorf("mqtt connect: %w", err)
		}
		log.Warn("mqtt broker not reachable yet, retrying in background", "broker", broker)
	}
	return &MQTTRecorder{client: client, roverID: roverID, timeout: mqttPublishTimeout}, nil
}

// Record publishes rec as JSON with QoS 1.
func (m *MQTTRecorder) Record(ctx context.Context, rec telemetry.Record) error {
	if !m.client.IsConnected() {
		return errNotConnected
	}
	if rec.RoverID == "" {
		rec.RoverID = m.roverID
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	topic := TelemetryTopic(m.roverID)
	token := m.client.Publish(topic, mqttQoS, false, data)
	if !token.WaitTimeout(m.timeout) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish telemetry: %w", err)
	}
	logging.FromContext(ctx).Debug("published telemetry", "topic", topic, "seq", rec.Seq)
	return nil
}

// Close disconnects from the broker.
func (m *MQTTRecorder) Close() error {
	m.client.Disconnect(250)
	return nil
}
