package audit

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"github.com/sells-group/grc-cli/internal/model"
	"github.com/sells-group/grc-cli/internal/resilience"
)

// Producer is the subset of *kgo.Client used for publishing.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// KafkaPublisher forwards audit entries to a Kafka topic keyed by project id,
// so a partition sees every event of a project in order.
//
// Publishing is retried on transient broker errors. Repeated failures open a
// circuit breaker so an unreachable broker does not add latency to every
// project mutation.
type KafkaPublisher struct {
	producer Producer
	topic    string
	retry    resilience.RetryPolicy
	breaker  *resilience.Breaker
}

// KafkaOption configures a KafkaPublisher.
type KafkaOption func(*KafkaPublisher)

// WithRetry overrides the publish retry policy.
func WithRetry(p resilience.RetryPolicy) KafkaOption {
	return func(k *KafkaPublisher) { k.retry = p }
}

// WithCircuitBreaker overrides the publish circuit breaker.
func WithCircuitBreaker(cfg resilience.BreakerConfig) KafkaOption {
	return func(k *KafkaPublisher) { k.breaker = newBreaker(cfg) }
}

// NewKafkaPublisher connects a franz-go client to the given brokers.
func NewKafkaPublisher(brokers []string, topic string, opts ...KafkaOption) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, eris.New("audit: kafka requires at least one broker")
	}
	if topic == "" {
		return nil, eris.New("audit: kafka requires a topic")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "audit: create kafka client")
	}
	return NewKafkaPublisherWithProducer(client, topic, opts...), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer.
func NewKafkaPublisherWithProducer(p Producer, topic string, opts ...KafkaOption) *KafkaPublisher {
	retry := resilience.DefaultRetryPolicy()
	retry.OnRetry = resilience.LogRetries("kafka", "publish audit")
	k := &KafkaPublisher{
		producer: p,
		topic:    topic,
		retry:    retry,
		breaker:  newBreaker(resilience.DefaultBreakerConfig()),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

func newBreaker(cfg resilience.BreakerConfig) *resilience.Breaker {
	cfg.OnStateChange = func(name string, from, to resilience.State) {
		zap.L().Warn("audit: breaker state change",
			zap.String("breaker", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}
	return resilience.NewBreaker("kafka-audit", cfg)
}

// Record publishes entry as JSON.
func (k *KafkaPublisher) Record(ctx context.Context, entry model.AuditEntry) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return eris.Wrap(err, "audit: marshal entry")
	}
	rec := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(entry.ProjectID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(entry.EventType)},
			{Key: "actor", Value: []byte(entry.Actor)},
		},
	}
	err = k.breaker.Do(ctx, func(ctx context.Context) error {
		return resilience.Retry(ctx, k.retry, func(ctx context.Context) error {
			return k.producer.ProduceSync(ctx, rec).FirstErr()
		})
	})
	return eris.Wrapf(err, "audit: publish %s", entry.EventType)
}

// Close flushes and closes the underlying client.
func (k *KafkaPublisher) Close() {
	k.producer.Close()
}
