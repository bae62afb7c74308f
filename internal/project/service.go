// Package project orchestrates the project lifecycle: creation, pack-driven
// checklist regeneration, item edits, evidence uploads and deletion.
//
// Every mutation follows the same order: validate, compute, persist, audit.
// Validation failures never reach storage, and every read-modify-write on an
// existing project runs under that project's lock.
package project

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/sells-group/grc-cli/internal/audit"
	"github.com/sells-group/grc-cli/internal/checklist"
	"github.com/sells-group/grc-cli/internal/evidence"
	"github.com/sells-group/grc-cli/internal/fingerprint"
	"github.com/sells-group/grc-cli/internal/metrics"
	"github.com/sells-group/grc-cli/internal/model"
	"github.com/sells-group/grc-cli/internal/store"
)

const (
	maxIDAttempts     = 3
	slowLockThreshold = 500 * time.Millisecond

	triggerCreate     = "create"
	triggerPackChange = "pack_change"
)

const tracerName = "github.com/sells-group/grc-cli/internal/project"

// Taxonomy resolves use cases and enumerates industries.
type Taxonomy interface {
	UseCase(id string) (model.UseCase, bool)
	Industries() []model.Industry
}

// PackResolver resolves a pack by identity. The boolean is false for unknown
// packs.
type PackResolver interface {
	Lookup(ctx context.Context, ref model.SelectedPack) (model.ControlPack, bool, error)
}

// EvidenceStore persists evidence blobs.
type EvidenceStore interface {
	Save(ctx context.Context, projectID, itemID, filename string, r io.Reader) (*evidence.Stored, error)
	Remove(ref string) error
	DeleteProject(projectID string) error
}

// Config holds settings that are stamped onto generated artifacts.
type Config struct {
	GeneratorVersion string
}

// Deps are the collaborators of a Service. Store, Taxonomy, Packs and
// Evidence are required.
type Deps struct {
	Store    store.Store
	Taxonomy Taxonomy
	Packs    PackResolver
	Evidence EvidenceStore

	// Audit defaults to a recorder on Store.
	Audit audit.Recorder
	// Locker defaults to an in-process MemoryLocker.
	Locker  Locker
	Metrics *metrics.Metrics
	// Tracer defaults to the global provider.
	Tracer trace.TracerProvider
	// Now defaults to time.Now.
	Now func() time.Time
}

// Service implements the project operations.
type Service struct {
	cfg      Config
	store    store.Store
	taxonomy Taxonomy
	packs    PackResolver
	evidence EvidenceStore
	audit    audit.Recorder
	locker   Locker
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	now      func() time.Time
}

// NewService creates a Service.
func NewService(cfg Config, deps Deps) *Service {
	s := &Service{
		cfg:      cfg,
		store:    deps.Store,
		taxonomy: deps.Taxonomy,
		packs:    deps.Packs,
		evidence: deps.Evidence,
		audit:    deps.Audit,
		locker:   deps.Locker,
		metrics:  deps.Metrics,
		now:      deps.Now,
	}
	if s.audit == nil {
		s.audit = audit.NewStoreRecorder(deps.Store)
	}
	if s.locker == nil {
		s.locker = NewMemoryLocker()
	}
	if s.now == nil {
		s.now = time.Now
	}
	tp := deps.Tracer
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	s.tracer = tp.Tracer(tracerName)
	return s
}

// Create validates the request, generates the initial checklist and
// persists both documents.
func (s *Service) Create(ctx context.Context, req CreateRequest, actor string) (_ *CreateResult, err error) {
	ctx, done := s.begin(ctx, "create", "")
	defer func() { done(err) }()

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid(KindBlankName, "name must not be blank", nil)
	}
	uc, ok := s.taxonomy.UseCase(req.UseCaseID)
	if !ok {
		return nil, invalid(KindUnknownUseCase, "unknown use case",
			map[string]string{"use_case_id": req.UseCaseID})
	}
	if uc.Industry.ID != req.IndustryID || uc.Segment.ID != req.SegmentID {
		return nil, invalid(KindMismatchedScope, "industry_id/segment_id do not match the selected use_case_id",
			map[string]string{
				"use_case_id":       req.UseCaseID,
				"industry_id":       req.IndustryID,
				"segment_id":        req.SegmentID,
				"expected_industry": uc.Industry.ID,
				"expected_segment":  uc.Segment.ID,
			})
	}
	packs, selected, err := s.loadPacks(ctx, req.SelectedPacks)
	if err != nil {
		return nil, err
	}

	answers := req.ScopeAnswers
	if answers == nil {
		answers = map[string]any{}
	}
	pc := checklist.BuildContext(name, req.IndustryID, req.SegmentID, uc, answers)
	cl := checklist.Generate(pc, packs)

	now := s.now().UTC()
	cl.GeneratedAt = now
	fp, err := fingerprint.Compute(s.cfg.GeneratorVersion, s.taxonomy.Industries(), packs, cl.Items)
	if err != nil {
		return nil, err
	}

	doc := model.ProjectDocument{
		Project: model.ProjectMeta{
			Name:        name,
			Description: normalizeDescription(req.Description),
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		Inputs: model.ProjectInputs{
			IndustryID:    req.IndustryID,
			SegmentID:     req.SegmentID,
			UseCaseID:     req.UseCaseID,
			SelectedPacks: selected,
			ScopeAnswers:  pc.ScopeAnswers,
		},
		Context:   pc,
		Generated: fp,
	}

	id := NewProjectID(name, now)
	for attempt := 1; ; attempt++ {
		doc.Project.ID = id
		cl.ProjectID = id
		err = s.store.CreateProject(ctx, doc, cl)
		if errors.Is(err, store.ErrConflict) && attempt < maxIDAttempts {
			id = withSuffix(NewProjectID(name, now))
			continue
		}
		break
	}
	if err != nil {
		return nil, eris.Wrapf(err, "project: create %s", id)
	}
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("project.id", id),
		attribute.Int("checklist.items", len(cl.Items)),
	)

	if err := s.record(ctx, id, model.EventProjectCreated, actor, map[string]any{
		"project": map[string]any{"id": id, "name": name},
	}); err != nil {
		return nil, err
	}

	s.metrics.IncProjectCreated()
	s.metrics.ObserveGeneration(triggerCreate, len(cl.Items), 0)
	zap.L().Info("project: created",
		zap.String("project_id", id),
		zap.String("use_case_id", req.UseCaseID),
		zap.Int("packs", len(packs)),
		zap.Int("items", len(cl.Items)),
		zap.String("checklist_hash", fp.ChecklistHash),
	)

	return &CreateResult{Project: doc.Project, ProjectID: id}, nil
}

// Patch updates project metadata. When SelectedPacks is set the checklist is
// regenerated against the stored context and reconciled with the previous
// one. Malformed patches are rejected before the project is read; pack
// references are checked after.
func (s *Service) Patch(ctx context.Context, projectID string, patch ProjectPatch, actor string) (_ *model.ProjectDocument, err error) {
	ctx, done := s.begin(ctx, "patch", projectID)
	defer func() { done(err) }()

	if patch.IsEmpty() {
		return nil, invalid(KindEmptyPatch, "patch must set at least one field", nil)
	}
	var name string
	if patch.Name.Set {
		name = strings.TrimSpace(patch.Name.Value)
		if name == "" {
			return nil, invalid(KindBlankName, "name must not be blank", nil)
		}
	}

	unlock, err := s.lock(ctx, projectID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	doc, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, notFound(err, "project: get %s", projectID)
	}

	// Packs resolve only once the project is known to exist, so a missing
	// project reports not found ahead of an unknown pack.
	var (
		packs    []model.ControlPack
		selected []model.SelectedPack
	)
	if patch.SelectedPacks.Set {
		packs, selected, err = s.loadPacks(ctx, patch.SelectedPacks.Value)
		if err != nil {
			return nil, err
		}
	}
	before := projectState(*doc)

	if patch.Name.Set {
		doc.Project.Name = name
	}
	if patch.Description.Set {
		doc.Project.Description = normalizeDescription(patch.Description.Value)
	}
	now := s.now().UTC()
	doc.Project.UpdatedAt = now

	payload := map[string]any{"before": before}
	if patch.SelectedPacks.Set {
		prior, err := s.store.GetChecklist(ctx, projectID)
		if err != nil {
			return nil, notFound(err, "project: get checklist %s", projectID)
		}

		fresh := checklist.Generate(doc.Context, packs)
		fresh.ProjectID = projectID
		fresh.GeneratedAt = now
		cl, report := checklist.ReconcileWithReport(fresh, *prior)

		fp, err := fingerprint.Compute(s.cfg.GeneratorVersion, s.taxonomy.Industries(), packs, cl.Items)
		if err != nil {
			return nil, err
		}
		doc.Inputs.SelectedPacks = selected
		doc.Generated = fp

		if err := s.store.SaveGeneration(ctx, *doc, cl); err != nil {
			return nil, notFound(err, "project: save generation %s", projectID)
		}

		payload["reconcile"] = report
		s.metrics.ObserveGeneration(triggerPackChange, len(cl.Items), len(report.Dropped))
		zap.L().Info("project: checklist regenerated",
			zap.String("project_id", projectID),
			zap.Int("kept", len(report.Kept)),
			zap.Int("added", len(report.Added)),
			zap.Int("dropped", len(report.Dropped)),
			zap.Int("orphaned_evidence", report.OrphanedEvidence),
			zap.String("checklist_hash", fp.ChecklistHash),
		)
	} else if err := s.store.SaveProject(ctx, *doc); err != nil {
		return nil, notFound(err, "project: save %s", projectID)
	}

	payload["after"] = projectState(*doc)
	payload["checklist_regenerated"] = patch.SelectedPacks.Set
	if err := s.record(ctx, projectID, model.EventProjectUpdated, actor, payload); err != nil {
		return nil, err
	}
	return doc, nil
}

// PatchItem updates the user-owned fields of one checklist item. Fingerprints
// are not touched.
func (s *Service) PatchItem(ctx context.Context, projectID, itemID string, patch ItemPatch, actor string) (_ *model.ChecklistItem, err error) {
	ctx, done := s.begin(ctx, "patch_item", projectID)
	defer func() { done(err) }()

	if patch.IsEmpty() {
		return nil, invalid(KindEmptyPatch, "patch must set at least one field", nil)
	}
	if patch.Status.Set && !patch.Status.Value.Valid() {
		return nil, invalid(KindInvalidStatus, "unknown status",
			map[string]string{"status": string(patch.Status.Value)})
	}

	unlock, err := s.lock(ctx, projectID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	doc, cl, item, err := s.loadItem(ctx, projectID, itemID)
	if err != nil {
		return nil, err
	}

	before := itemState(*item)
	if v, ok := patch.Status.Get(); ok {
		item.Status = v
	}
	if v, ok := patch.Owner.Get(); ok {
		item.Owner = v
	}
	if v, ok := patch.Notes.Get(); ok {
		item.Notes = v
	}
	after := itemState(*item)
	updated := *item

	cl.Counts = checklist.Summarize(cl.Items)
	doc.Project.UpdatedAt = s.now().UTC()
	if err := s.store.SaveGeneration(ctx, *doc, *cl); err != nil {
		return nil, notFound(err, "project: save item %s/%s", projectID, itemID)
	}

	if err := s.record(ctx, projectID, model.EventChecklistItemPatch, actor, map[string]any{
		"item_id": itemID,
		"before":  before,
		"after":   after,
	}); err != nil {
		return nil, err
	}

	s.metrics.IncItemUpdate(string(updated.Status))
	return &updated, nil
}

// UploadEvidence stores a file and appends its record to the item. A blob
// created by this call is removed again if its record cannot be persisted;
// a blob shared with an earlier record is left alone.
func (s *Service) UploadEvidence(ctx context.Context, projectID, itemID string, upload Upload, actor string) (_ *model.EvidenceRecord, err error) {
	ctx, done := s.begin(ctx, "upload_evidence", projectID)
	defer func() { done(err) }()

	unlock, err := s.lock(ctx, projectID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	doc, cl, item, err := s.loadItem(ctx, projectID, itemID)
	if err != nil {
		return nil, err
	}

	filename := strings.TrimSpace(upload.Filename())
	if filename == "" {
		filename = evidence.DefaultFilename
	}
	rc, err := upload.Open()
	if err != nil {
		return nil, eris.Wrap(err, "project: open upload")
	}
	defer rc.Close() //nolint:errcheck

	stored, err := s.evidence.Save(ctx, projectID, itemID, filename, rc)
	if err != nil {
		return nil, eris.Wrapf(err, "project: store evidence %s/%s", projectID, itemID)
	}

	now := s.now().UTC()
	if actor == "" {
		actor = audit.DefaultActor
	}
	rec := model.EvidenceRecord{
		EvidenceID:  uuid.NewString(),
		Filename:    filename,
		StorageRef:  stored.Ref,
		SHA256:      stored.SHA256,
		Size:        stored.Size,
		ContentType: upload.ContentType(),
		UploadedAt:  now,
		UploadedBy:  actor,
	}
	item.Evidence = append(item.Evidence, rec)
	doc.Project.UpdatedAt = now

	if err := s.store.SaveGeneration(ctx, *doc, *cl); err != nil {
		if stored.Created {
			if rmErr := s.evidence.Remove(stored.Ref); rmErr != nil {
				zap.L().Warn("project: evidence cleanup failed",
					zap.String("ref", stored.Ref),
					zap.Error(rmErr),
				)
			}
		}
		return nil, notFound(err, "project: save evidence %s/%s", projectID, itemID)
	}

	if err := s.record(ctx, projectID, model.EventEvidenceUploaded, actor, map[string]any{
		"item_id": itemID,
		"file":    rec,
	}); err != nil {
		return nil, err
	}

	s.metrics.ObserveEvidence(rec.Size)
	return &rec, nil
}

// Delete removes a project, its checklist and its evidence. The audit log is
// kept and gains a project.deleted entry.
func (s *Service) Delete(ctx context.Context, projectID, actor string) (_ *DeletionSummary, err error) {
	ctx, done := s.begin(ctx, "delete", projectID)
	defer func() { done(err) }()

	unlock, err := s.lock(ctx, projectID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	doc, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, notFound(err, "project: get %s", projectID)
	}
	files := 0
	if cl, err := s.store.GetChecklist(ctx, projectID); err == nil {
		for _, it := range cl.Items {
			files += len(it.Evidence)
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, eris.Wrapf(err, "project: get checklist %s", projectID)
	}

	if actor == "" {
		actor = audit.DefaultActor
	}
	summary := &DeletionSummary{
		ProjectID:     projectID,
		Name:          doc.Project.Name,
		DeletedBy:     actor,
		DeletedAt:     s.now().UTC(),
		EvidenceFiles: files,
	}

	if err := s.store.DeleteProject(ctx, projectID); err != nil {
		return nil, notFound(err, "project: delete %s", projectID)
	}
	if err := s.evidence.DeleteProject(projectID); err != nil {
		zap.L().Warn("project: evidence cleanup failed",
			zap.String("project_id", projectID),
			zap.Error(err),
		)
	}

	if err := s.record(ctx, projectID, model.EventProjectDeleted, actor, map[string]any{
		"project_id":     summary.ProjectID,
		"name":           summary.Name,
		"deleted_by":     summary.DeletedBy,
		"deleted_at":     summary.DeletedAt,
		"evidence_files": summary.EvidenceFiles,
	}); err != nil {
		return nil, err
	}

	s.metrics.IncProjectDeleted()
	zap.L().Info("project: deleted", zap.String("project_id", projectID), zap.Int("evidence_files", files))
	return summary, nil
}

// Get returns a project document.
func (s *Service) Get(ctx context.Context, projectID string) (*model.ProjectDocument, error) {
	doc, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, notFound(err, "project: get %s", projectID)
	}
	return doc, nil
}

// Checklist returns a project's checklist.
func (s *Service) Checklist(ctx context.Context, projectID string) (*model.Checklist, error) {
	cl, err := s.store.GetChecklist(ctx, projectID)
	if err != nil {
		return nil, notFound(err, "project: get checklist %s", projectID)
	}
	return cl, nil
}

// List returns project summaries, newest first.
func (s *Service) List(ctx context.Context, filter store.ProjectFilter) ([]model.ProjectSummary, error) {
	out, err := s.store.ListProjects(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "project: list")
	}
	return out, nil
}

// Audit returns a project's audit log, oldest first. The log of a deleted
// project remains readable.
func (s *Service) Audit(ctx context.Context, projectID string) ([]model.AuditEntry, error) {
	entries, err := s.store.ListAudit(ctx, projectID)
	if err != nil {
		return nil, eris.Wrapf(err, "project: list audit %s", projectID)
	}
	if len(entries) == 0 {
		if _, err := s.store.GetProject(ctx, projectID); err != nil {
			return nil, notFound(err, "project: get %s", projectID)
		}
	}
	return entries, nil
}

// Fingerprint recomputes a project's fingerprints from the current taxonomy
// and pack contents and reports which ones differ from the stored set.
func (s *Service) Fingerprint(ctx context.Context, projectID string) (_ *FingerprintReport, err error) {
	ctx, done := s.begin(ctx, "fingerprint", projectID)
	defer func() { done(err) }()

	doc, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, notFound(err, "project: get %s", projectID)
	}

	report := &FingerprintReport{ProjectID: projectID, Stored: doc.Generated}
	var packs []model.ControlPack
	for _, ref := range doc.Inputs.SelectedPacks {
		p, ok, err := s.packs.Lookup(ctx, ref)
		if err != nil {
			return nil, eris.Wrapf(err, "project: load pack %s", ref)
		}
		if !ok {
			report.MissingPacks = append(report.MissingPacks, ref)
			continue
		}
		packs = append(packs, p)
	}

	cl := checklist.Generate(doc.Context, packs)
	report.Current, err = fingerprint.Compute(s.cfg.GeneratorVersion, s.taxonomy.Industries(), packs, cl.Items)
	if err != nil {
		return nil, err
	}
	report.Drift = fingerprint.Drift(report.Stored, report.Current)
	if report.Drift == nil {
		report.Drift = []string{}
	}
	return report, nil
}

// loadPacks resolves every selection, failing on the first unknown pack.
func (s *Service) loadPacks(ctx context.Context, refs []model.SelectedPack) ([]model.ControlPack, []model.SelectedPack, error) {
	packs := make([]model.ControlPack, 0, len(refs))
	selected := make([]model.SelectedPack, 0, len(refs))
	for _, ref := range refs {
		ref = ref.Normalize()
		p, ok, err := s.packs.Lookup(ctx, ref)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "project: load pack %s", ref)
		}
		if !ok {
			return nil, nil, invalid(KindUnknownPack, "unknown pack: "+ref.String(), map[string]string{
				"domain":  ref.Domain,
				"pack_id": ref.PackID,
				"version": ref.Version,
			})
		}
		packs = append(packs, p)
		selected = append(selected, ref)
	}
	return packs, selected, nil
}

// loadItem reads a project with its checklist and locates an item in it.
func (s *Service) loadItem(ctx context.Context, projectID, itemID string) (*model.ProjectDocument, *model.Checklist, *model.ChecklistItem, error) {
	doc, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, nil, nil, notFound(err, "project: get %s", projectID)
	}
	cl, err := s.store.GetChecklist(ctx, projectID)
	if err != nil {
		return nil, nil, nil, notFound(err, "project: get checklist %s", projectID)
	}
	item, ok := cl.Item(itemID)
	if !ok {
		return nil, nil, nil, eris.Wrapf(ErrNotFound, "project: item %s/%s", projectID, itemID)
	}
	return doc, cl, item, nil
}

func (s *Service) lock(ctx context.Context, projectID string) (func(), error) {
	start := time.Now()
	unlock, err := s.locker.Lock(ctx, projectID)
	wait := time.Since(start)
	s.metrics.ObserveLockWait(wait)
	if err != nil {
		return nil, eris.Wrapf(err, "project: lock %s", projectID)
	}
	if wait > slowLockThreshold {
		zap.L().Warn("project: lock contention",
			zap.String("project_id", projectID),
			zap.Duration("wait", wait),
		)
	}
	return unlock, nil
}

func (s *Service) record(ctx context.Context, projectID, eventType, actor string, payload map[string]any) error {
	entry := audit.NewEntry(projectID, eventType, actor, payload, s.now())
	if err := s.audit.Record(ctx, entry); err != nil {
		zap.L().Error("project: audit append failed after write",
			zap.String("project_id", projectID),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return eris.Wrapf(err, "project: audit %s", eventType)
	}
	return nil
}

// begin opens a span and returns a func that closes it and records the
// operation's outcome.
func (s *Service) begin(ctx context.Context, op, projectID string) (context.Context, func(error)) {
	start := time.Now()
	var attrs []attribute.KeyValue
	if projectID != "" {
		attrs = append(attrs, attribute.String("project.id", projectID))
	}
	ctx, span := s.tracer.Start(ctx, "project."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			if ve, ok := AsValidation(err); ok {
				s.metrics.IncValidationError(string(ve.Kind))
				span.SetAttributes(attribute.String("validation.kind", string(ve.Kind)))
			} else {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
		}
		span.End()
		s.metrics.ObserveOperation(op, start)
	}
}

func projectState(doc model.ProjectDocument) map[string]any {
	packs := append([]model.SelectedPack{}, doc.Inputs.SelectedPacks...)
	return map[string]any{
		"name":           doc.Project.Name,
		"description":    copyPtr(doc.Project.Description),
		"selected_packs": packs,
	}
}

func itemState(it model.ChecklistItem) map[string]any {
	return map[string]any{
		"status": it.Status,
		"owner":  copyPtr(it.Owner),
		"notes":  copyPtr(it.Notes),
	}
}

func copyPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
