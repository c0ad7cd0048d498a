package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/startup-factory/unitalk/pkg/mediaflow"
)

// Config options for the Kafka job producer
type Config struct {
	Brokers []string
	Topic   string
}

// Producer publishes background jobs to a Kafka topic. Workers elsewhere
// consume the topic; this side only enqueues. It implements
// mediaflow.JobQueue.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

// jobEnvelope is the wire format for a queued job
type jobEnvelope struct {
	Name             string                 `json:"name"`
	Payload          map[string]interface{} `json:"payload"`
	Priority         string                 `json:"priority,omitempty"`
	RemoveOnComplete bool                   `json:"removeOnComplete,omitempty"`
	EnqueuedAt       time.Time              `json:"enqueuedAt"`
}

// New creates a new Kafka-backed job queue producer
func New(config Config) (*Producer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 5
	saramaConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &Producer{
		producer: producer,
		topic:    config.Topic,
	}, nil
}

// Enqueue publishes a job onto the queue topic
func (p *Producer) Enqueue(ctx context.Context, job mediaflow.QueueJob) error {
	envelope := jobEnvelope{
		Name:             job.Name,
		Payload:          job.Payload,
		Priority:         job.Priority,
		RemoveOnComplete: job.RemoveOnComplete,
		EnqueuedAt:       time.Now().UTC(),
	}

	jsonData, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(job.Name),
		Value: sarama.ByteEncoder(jsonData),
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to enqueue job %q: %w", job.Name, err)
	}

	return nil
}

// Close shuts down the underlying producer
func (p *Producer) Close() error {
	return p.producer.Close()
}
