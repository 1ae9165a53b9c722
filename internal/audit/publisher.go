package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Publisher ships audit entries to a Kafka topic for downstream compliance
// consumers. It implements Sink and is normally wired behind the Worker so
// broker latency never sits on the business path.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// PublisherConfig holds Kafka publisher configuration.
type PublisherConfig struct {
	Brokers string
	Topic   string
}

// NewPublisher creates a Kafka audit publisher and ensures the topic exists.
func NewPublisher(cfg PublisherConfig, logger *slog.Logger) (*Publisher, error) {
	if cfg.Brokers == "" {
		return nil, fmt.Errorf("kafka brokers not configured")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic not configured")
	}

	brokers := strings.Split(cfg.Brokers, ",")
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5*time.Millisecond),
		kgo.RecordDeliveryTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := ensureTopic(client, cfg.Topic); err != nil {
		client.Close()
		return nil, err
	}

	return &Publisher{client: client, topic: cfg.Topic, logger: logger}, nil
}

// ensureTopic creates the audit topic when it does not exist yet.
func ensureTopic(client *kgo.Client, topic string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	adm := kadm.NewClient(client)
	details, err := adm.ListTopics(ctx, topic)
	if err != nil {
		return fmt.Errorf("list kafka topics: %w", err)
	}
	if details.Has(topic) {
		return nil
	}
	if _, err := adm.CreateTopic(ctx, 1, 1, nil, topic); err != nil {
		return fmt.Errorf("create kafka topic %s: %w", topic, err)
	}
	return nil
}

// payload is the JSON structure published per entry. Keys stay stable for
// downstream consumers.
type payload struct {
	UserID          string            `json:"userId"`
	CredentialID    string            `json:"credentialId,omitempty"`
	Operation       string            `json:"operation"`
	Action          string            `json:"action"`
	Target          string            `json:"target,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	Result          string            `json:"result"`
	ErrorMessage    string            `json:"errorMessage,omitempty"`
	TransactionHash string            `json:"transactionHash,omitempty"`
	BlockNumber     int64             `json:"blockNumber,omitempty"`
	GasUsed         int64             `json:"gasUsed,omitempty"`
	Timestamp       string            `json:"timestamp"`
}

// Append publishes one entry. The entry key is the acting user so per-user
// ordering is preserved within a partition.
func (p *Publisher) Append(ctx context.Context, entry Entry) error {
	msg := payload{
		UserID:          entry.UserID.String(),
		Operation:       string(entry.Operation),
		Action:          entry.Details.Action,
		Target:          entry.Details.Target,
		Metadata:        entry.Details.Metadata,
		Result:          string(entry.Details.Result),
		ErrorMessage:    entry.Details.ErrorMessage,
		TransactionHash: entry.TransactionHash,
		BlockNumber:     entry.BlockNumber,
		GasUsed:         entry.GasUsed,
		Timestamp:       entry.Timestamp.Format(time.RFC3339Nano),
	}
	if entry.CredentialID != nil {
		msg.CredentialID = entry.CredentialID.String()
	}

	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(msg.UserID),
		Value: value,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit entry: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying client.
func (p *Publisher) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.client.Flush(ctx); err != nil && p.logger != nil {
		p.logger.Error("kafka flush on close failed", "error", err)
	}
	p.client.Close()
}
