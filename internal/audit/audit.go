// Package audit records append-only events for every mutating project
// operation.
//
// The store recorder is the system of record and fails closed: if the entry
// cannot be persisted the caller sees the error. Additional sinks such as
// Kafka are best effort and only logged on failure.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/grc-cli/internal/model"
)

// DefaultActor is used when a request carries no actor.
const DefaultActor = "anonymous"

// Recorder persists or forwards an audit entry.
type Recorder interface {
	Record(ctx context.Context, entry model.AuditEntry) error
}

// Appender is the slice of the store an audit recorder needs.
type Appender interface {
	AppendAudit(ctx context.Context, entry model.AuditEntry) error
}

// NewEntry builds an audit entry with a fresh id. An empty actor becomes
// DefaultActor.
func NewEntry(projectID, eventType, actor string, payload map[string]any, now time.Time) model.AuditEntry {
	if actor == "" {
		actor = DefaultActor
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return model.AuditEntry{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		EventType: eventType,
		Actor:     actor,
		Timestamp: now.UTC(),
		Payload:   payload,
	}
}

// StoreRecorder appends entries to the project store.
type StoreRecorder struct {
	store Appender
}

// NewStoreRecorder creates a recorder backed by the given store.
func NewStoreRecorder(store Appender) *StoreRecorder {
	return &StoreRecorder{store: store}
}

// Record appends entry to the store.
func (r *StoreRecorder) Record(ctx context.Context, entry model.AuditEntry) error {
	if entry.EventType == "" {
		return eris.New("audit: entry requires an event type")
	}
	if entry.ProjectID == "" {
		return eris.New("audit: entry requires a project id")
	}
	return eris.Wrapf(r.store.AppendAudit(ctx, entry), "audit: append %s", entry.EventType)
}

// Fanout records to a primary recorder and then to any number of secondary
// sinks. Only primary failures are returned.
type Fanout struct {
	primary     Recorder
	secondaries []Recorder
}

// NewFanout creates a fan-out recorder.
func NewFanout(primary Recorder, secondaries ...Recorder) *Fanout {
	return &Fanout{primary: primary, secondaries: secondaries}
}

// Record writes entry to the primary recorder, then forwards it.
func (f *Fanout) Record(ctx context.Context, entry model.AuditEntry) error {
	if err := f.primary.Record(ctx, entry); err != nil {
		return err
	}
	for _, s := range f.secondaries {
		if err := s.Record(ctx, entry); err != nil {
			zap.L().Warn("audit: secondary sink failed",
				zap.String("event_type", entry.EventType),
				zap.String("project_id", entry.ProjectID),
				zap.Error(err),
			)
		}
	}
	return nil
}
