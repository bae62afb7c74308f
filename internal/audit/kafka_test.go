package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/sells-group/grc-cli/internal/model"
	"github.com/sells-group/grc-cli/internal/resilience"
)

type fakeProducer struct {
	mu      sync.Mutex
	records []*kgo.Record
	errs    []error
	closed  bool
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	f.mu.Lock()
	defer f.mu.Unlock()
	var err error
	if len(f.errs) > 0 {
		err, f.errs = f.errs[0], f.errs[1:]
	}
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		if err == nil {
			f.records = append(f.records, r)
		}
		results = append(results, kgo.ProduceResult{Record: r, Err: err})
	}
	return results
}

func (f *fakeProducer) Close() { f.closed = true }

func fastRetry() resilience.RetryPolicy {
	return resilience.RetryPolicy{Attempts: 3, Backoff: resilience.Backoff{Initial: time.Millisecond, Max: 2 * time.Millisecond}}
}

func TestKafkaPublisher_Record(t *testing.T) {
	t.Parallel()

	p := &fakeProducer{}
	k := NewKafkaPublisherWithProducer(p, "grc.audit")
	entry := NewEntry("p1", model.EventEvidenceUploaded, "carol", map[string]any{"item_id": "x"}, time.Now())

	require.NoError(t, k.Record(context.Background(), entry))
	require.Len(t, p.records, 1)

	rec := p.records[0]
	assert.Equal(t, "grc.audit", rec.Topic)
	assert.Equal(t, []byte("p1"), rec.Key)
	assert.Contains(t, rec.Headers, kgo.RecordHeader{Key: "event_type", Value: []byte(model.EventEvidenceUploaded)})

	var decoded model.AuditEntry
	require.NoError(t, json.Unmarshal(rec.Value, &decoded))
	assert.Equal(t, entry.ID, decoded.ID)
	assert.Equal(t, "carol", decoded.Actor)

	k.Close()
	assert.True(t, p.closed)
}

func TestKafkaPublisher_RetriesTransient(t *testing.T) {
	t.Parallel()

	p := &fakeProducer{errs: []error{kerr.LeaderNotAvailable}}
	k := NewKafkaPublisherWithProducer(p, "grc.audit", WithRetry(fastRetry()))

	require.NoError(t, k.Record(context.Background(), NewEntry("p1", model.EventProjectCreated, "a", nil, time.Now())))
	assert.Len(t, p.records, 1)
}

func TestKafkaPublisher_PermanentError(t *testing.T) {
	t.Parallel()

	p := &fakeProducer{errs: []error{kerr.TopicAuthorizationFailed, nil}}
	k := NewKafkaPublisherWithProducer(p, "grc.audit", WithRetry(fastRetry()))

	err := k.Record(context.Background(), NewEntry("p1", model.EventProjectCreated, "a", nil, time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit: publish project.created")
	assert.Empty(t, p.records, "permanent errors are not retried")
}

func TestKafkaPublisher_CircuitOpens(t *testing.T) {
	t.Parallel()

	boom := errors.New("unauthorized")
	p := &fakeProducer{errs: []error{boom, boom}}
	k := NewKafkaPublisherWithProducer(p, "grc.audit",
		WithRetry(fastRetry()),
		WithCircuitBreaker(resilience.BreakerConfig{Threshold: 2, Cooldown: time.Hour}),
	)

	entry := NewEntry("p1", model.EventProjectCreated, "a", nil, time.Now())
	require.Error(t, k.Record(context.Background(), entry))
	require.Error(t, k.Record(context.Background(), entry))

	err := k.Record(context.Background(), entry)
	require.ErrorIs(t, err, resilience.ErrOpen)
	assert.Empty(t, p.records)
}

func TestNewKafkaPublisher_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewKafkaPublisher(nil, "topic")
	require.Error(t, err)
	_, err = NewKafkaPublisher([]string{"localhost:9092"}, "")
	require.Error(t, err)
}
