package project

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/sells-group/grc-cli/internal/evidence"
	"github.com/sells-group/grc-cli/internal/metrics"
	"github.com/sells-group/grc-cli/internal/model"
	"github.com/sells-group/grc-cli/internal/store"
	"github.com/sells-group/grc-cli/internal/taxonomy"
)

var (
	privacyCore     = model.SelectedPack{Domain: "privacy", PackID: "core", Version: "1.0.0"}
	securityBase    = model.SelectedPack{Domain: "security", PackID: "baseline", Version: "1.0.0"}
	securityBaseV2  = model.SelectedPack{Domain: "security", PackID: "baseline", Version: "2.0.0"}
	privacyBiometry = model.SelectedPack{Domain: "privacy", PackID: "biometrics", Version: "1.0.0"}
)

type packMap map[model.SelectedPack]model.ControlPack

func (m packMap) Lookup(_ context.Context, ref model.SelectedPack) (model.ControlPack, bool, error) {
	p, ok := m[ref]
	return p, ok, nil
}

func testPacks() packMap {
	return packMap{
		privacyCore: {
			Domain: "privacy", ID: "core", Version: "1.0.0", ContentHash: "c1",
			Requirements: []model.Requirement{
				{ID: "P1", MergeKey: "data.retention", Title: "Data retention policy", Severity: model.SeverityHigh},
				{ID: "P2", MergeKey: "consent.capture", Title: "Consent capture", Severity: model.SeverityMedium,
					AppliesWhen: model.Applicability{Tags: []string{"pii"}}},
			},
		},
		securityBase: {
			Domain: "security", ID: "baseline", Version: "1.0.0", ContentHash: "s1",
			Requirements: []model.Requirement{
				{ID: "S1", MergeKey: "access.review", Title: "Access review", Severity: model.SeverityMedium},
				{ID: "S2", MergeKey: "data.retention", Title: "Retention schedule", Severity: model.SeverityMedium},
			},
		},
		securityBaseV2: {
			Domain: "security", ID: "baseline", Version: "2.0.0", ContentHash: "s2",
			Requirements: []model.Requirement{
				{ID: "S1", MergeKey: "access.review", Title: "Quarterly access review", Severity: model.SeverityHigh},
				{ID: "S3", MergeKey: "incident.response", Title: "Incident response plan", Severity: model.SeverityCritical},
			},
		},
		privacyBiometry: {
			Domain: "privacy", ID: "biometrics", Version: "1.0.0", ContentHash: "b1",
			Requirements: []model.Requirement{
				{ID: "B1", MergeKey: "biometric.consent", Title: "Biometric consent", Severity: model.SeverityCritical,
					AppliesWhen: model.Applicability{Tags: []string{"biometrics"}}},
			},
		},
	}
}

func testTaxonomy(t *testing.T) *taxonomy.Taxonomy {
	t.Helper()
	tax, err := taxonomy.New([]model.Industry{
		{ID: "insurance", Name: "Insurance", Segments: []model.Segment{
			{ID: "pc", Name: "Property & Casualty", UseCases: []model.UseCaseEntry{
				{ID: "claims-intake", Name: "Claims intake", Tags: []string{"pii"}},
			}},
		}},
		{ID: "banking", Name: "Banking", Segments: []model.Segment{
			{ID: "retail", Name: "Retail banking", UseCases: []model.UseCaseEntry{
				{ID: "kyc", Name: "KYC screening"},
			}},
		}},
	})
	require.NoError(t, err)
	return tax
}

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type testEnv struct {
	svc     *Service
	store   store.Store
	packs   packMap
	fs      afero.Fs
	clock   *testClock
	metrics *metrics.Metrics
	spans   *tracetest.SpanRecorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "grc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return newTestEnvWithStore(t, st)
}

func newTestEnvWithStore(t *testing.T, st store.Store) *testEnv {
	t.Helper()
	env := &testEnv{
		store:   st,
		packs:   testPacks(),
		fs:      afero.NewMemMapFs(),
		clock:   &testClock{now: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)},
		metrics: metrics.NewWithRegistry(prometheus.NewRegistry()),
		spans:   tracetest.NewSpanRecorder(),
	}
	env.svc = NewService(Config{GeneratorVersion: "grc-cli/1"}, Deps{
		Store:    st,
		Taxonomy: testTaxonomy(t),
		Packs:    env.packs,
		Evidence: evidence.NewStoreFs(env.fs, 1<<20),
		Metrics:  env.metrics,
		Tracer:   sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(env.spans)),
		Now:      env.clock.Now,
	})
	return env
}

func claimsRequest(packs ...model.SelectedPack) CreateRequest {
	desc := "  Intake assistant for FNOL  "
	return CreateRequest{
		Name:          "Claims Intake Assistant",
		Description:   &desc,
		IndustryID:    "insurance",
		SegmentID:     "pc",
		UseCaseID:     "claims-intake",
		ScopeAnswers:  map[string]any{"deployment": "cloud"},
		SelectedPacks: packs,
	}
}

func strPtr(s string) *string { return &s }
