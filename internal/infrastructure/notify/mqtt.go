package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	alertapp "github.com/qcdash/backend/internal/application/alert"
	"github.com/qcdash/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// mqttClient is the part of mqtt.Client the publisher uses
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes alerts as JSON to a broker topic.
// Messages go to <topic>/<severity>.
type MQTTPublisher struct {
	client mqttClient
	topic  string
	qos    byte
	logger *zap.Logger
}

// alertMessage is the MQTT payload
type alertMessage struct {
	alertapp.AlertResponse
	Recipients []string `json:"recipients"`
}

// NewMQTTPublisher connects to the configured broker
func NewMQTTPublisher(cfg config.MQTTConfig, logger *zap.Logger) (*MQTTPublisher, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt broker is required")
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", zap.Error(err))
	})
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("MQTT connected", zap.String("broker", cfg.Broker))
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return newMQTTPublisher(client, cfg, logger), nil
}

func newMQTTPublisher(client mqttClient, cfg config.MQTTConfig, logger *zap.Logger) *MQTTPublisher {
	topic := cfg.Topic
	if topic == "" {
		topic = "quality-control/alerts"
	}
	qos := byte(0)
	if cfg.QoS > 0 && cfg.QoS <= 2 {
		qos = byte(cfg.QoS)
	}
	return &MQTTPublisher{client: client, topic: topic, qos: qos, logger: logger}
}

// Topic returns the topic an alert of the given severity is published to
func (p *MQTTPublisher) Topic(severity string) string {
	return p.topic + "/" + severity
}

// NotifyAlert publishes the alert and waits for the broker to accept it
func (p *MQTTPublisher) NotifyAlert(ctx context.Context, a alertapp.AlertResponse, recipients []alertapp.Recipient) error {
	msg := alertMessage{AlertResponse: a, Recipients: make([]string, 0, len(recipients))}
	for _, r := range recipients {
		msg.Recipients = append(msg.Recipients, r.Email)
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode mqtt alert: %w", err)
	}

	topic := p.Topic(a.Severity)
	token := p.client.Publish(topic, p.qos, false, payload)

	timeout := publishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("publish to topic %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}
	p.logger.Debug("Alert published", zap.String("topic", topic), zap.String("alert_id", a.ID.String()))
	return nil
}

// Close disconnects from the broker
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

var _ alertapp.Notifier = (*MQTTPublisher)(nil)
