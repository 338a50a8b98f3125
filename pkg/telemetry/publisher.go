package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/lwm2m-bridge/lwm2m-go/pkg/config"
)

// Publisher delivers an encoded record to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Close() error
}

// NewPublisher creates the publisher selected by cfg.Backend.
func NewPublisher(cfg config.TelemetryConfig, logger *slog.Logger) (Publisher, error) {
	switch cfg.Backend {
	case config.BackendLog, "":
		return NewSlogPublisher(logger), nil
	case config.BackendMQTT:
		return NewMQTTPublisher(cfg.MQTT)
	case config.BackendKafka:
		return NewKafkaPublisher(cfg.Kafka)
	default:
		return nil, fmt.Errorf("unknown telemetry backend: %s", cfg.Backend)
	}
}

// SlogPublisher writes records to an slog.Logger.
type SlogPublisher struct {
	logger *slog.Logger
}

// NewSlogPublisher creates a publisher writing at Info level.
func NewSlogPublisher(logger *slog.Logger) *SlogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogPublisher{logger: logger}
}

// Publish logs the payload.
func (p *SlogPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	p.logger.InfoContext(ctx, "telemetry", "topic", topic, "record", string(payload))
	return nil
}

// Close does nothing.
func (p *SlogPublisher) Close() error { return nil }

// MQTTPublisher publishes records to an MQTT broker at QoS 1.
type MQTTPublisher struct {
	client mqtt.Client
}

// NewMQTTPublisher connects to the configured broker.
func NewMQTTPublisher(cfg config.MQTTConfig) (*MQTTPublisher, error) {
	broker := fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port)
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect: timed out connecting to %s", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return &MQTTPublisher{client: client}, nil
}

// Publish sends payload and waits for the broker acknowledgment or ctx.
func (p *MQTTPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	if !p.client.IsConnected() {
		return fmt.Errorf("mqtt not connected")
	}
	token := p.client.Publish(topic, 1, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}

// KafkaPublisher writes records to Kafka, one message per record.
type KafkaPublisher struct {
	writer *kafkago.Writer
}

// NewKafkaPublisher creates a writer for the configured brokers. Topics are
// chosen per message.
func NewKafkaPublisher(cfg config.KafkaConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	return &KafkaPublisher{
		writer: &kafkago.Writer{
			Addr:                   kafkago.TCP(cfg.Brokers...),
			Balancer:               &kafkago.LeastBytes{},
			RequiredAcks:           kafkago.RequireOne,
			AllowAutoTopicCreation: true,
		},
	}, nil
}

// Publish writes payload to topic.
func (p *KafkaPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	return p.writer.WriteMessages(ctx, kafkago.Message{
		Topic: topic,
		Value: payload,
	})
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

var (
	_ Publisher = (*SlogPublisher)(nil)
	_ Publisher = (*MQTTPublisher)(nil)
	_ Publisher = (*KafkaPublisher)(nil)
)
