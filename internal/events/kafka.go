package events

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
)

// KafkaConfig configures KafkaSink.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`

	// PerEntity publishes to "<topic>.<entity type>" instead of one topic.
	PerEntity bool     `yaml:"per_entity"`
	Only      []string `yaml:"only"`
}

const defaultTopic = "crm.events"

// KafkaSink publishes events to Kafka keyed by entity type.
type KafkaSink struct {
	Producer  sarama.AsyncProducer
	Topic     string
	PerEntity bool
}

// NewKafkaSink creates a KafkaSink from config.
func NewKafkaSink(c KafkaConfig) (*KafkaSink, error) {
	if !c.Enabled || len(c.Brokers) == 0 {
		return nil, nil
	}
	cfg := sarama.NewConfig()
	cfg.ClientID = "crmfields"
	cfg.Producer.Return.Errors = true
	prod, err := sarama.NewAsyncProducer(c.Brokers, cfg)
	if err != nil {
		return nil, err
	}
	topic := c.Topic
	if topic == "" {
		topic = defaultTopic
	}
	return &KafkaSink{Producer: prod, Topic: topic, PerEntity: c.PerEntity}, nil
}

func (s *KafkaSink) Emit(ctx context.Context, e Event) error {
	if s == nil || s.Producer == nil {
		return nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: s.topic(e),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event"), Value: []byte(e.Name)},
			{Key: []byte("id"), Value: []byte(e.ID)},
		},
	}
	if e.Entity != "" {
		msg.Key = sarama.StringEncoder(e.Entity)
	}
	select {
	case s.Producer.Input() <- msg:
		return nil
	case err := <-s.Producer.Errors():
		return err.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *KafkaSink) topic(e Event) string {
	if s.PerEntity && e.Entity != "" {
		return s.Topic + "." + e.Entity
	}
	return s.Topic
}
