package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/ipv4-deal-os/internal/api"
	"github.com/timmy/ipv4-deal-os/internal/api/handler"
	"github.com/timmy/ipv4-deal-os/internal/config"
	"github.com/timmy/ipv4-deal-os/internal/domain"
	"github.com/timmy/ipv4-deal-os/internal/queue"
	"github.com/timmy/ipv4-deal-os/internal/repository"
	"github.com/timmy/ipv4-deal-os/internal/repository/repotest"
	"github.com/timmy/ipv4-deal-os/internal/service"
	"gorm.io/datatypes"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	router    http.Handler
	leads     *repository.LeadRepository
	inventory *repository.InventoryRepository
	jobs      *repository.JobRepository
	queue     *queue.MemoryQueue
}

func newFixture(t *testing.T, frontendDir string) *fixture {
	t.Helper()
	db := repotest.NewDB(t)
	clock := func() time.Time { return now }

	f := &fixture{
		leads:     repository.NewLeadRepository(db),
		inventory: repository.NewInventoryRepository(db),
		jobs:      repository.NewJobRepository(db),
		queue:     queue.NewMemoryQueue(16),
	}
	svc := &api.Services{
		Health: service.NewHealthService(
			service.PingFunc(func(ctx context.Context) error { return repository.Ping(ctx, db) }),
			f.queue,
			nil,
		),
		Analysis: service.NewAnalysisService(&service.AnalysisConfig{}),
		Metrics: service.NewMetricsService(f.leads, f.inventory,
			&service.MetricsConfig{UnitPriceUSD: 52.5, UrgentFollowupLimit: 5}, clock),
		Leads: service.NewLeadService(f.leads, &service.LeadServiceConfig{StrictStages: true}, clock),
		Jobs:  service.NewJobService(f.jobs, f.queue, clock),
	}
	f.router = api.SetupRouter(svc, &config.ServerConfig{
		Mode:        "test",
		FrontendDir: frontendDir,
		CORS:        config.CORSConfig{AllowAllOrigins: true},
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) seedLead(t *testing.T, score int, stage domain.Stage) *domain.Lead {
	t.Helper()
	due := now.Add(48 * time.Hour)
	lead := &domain.Lead{
		OrgName:        "Lead Org",
		CIDR:           "44.0.0.0/16",
		Size:           65536,
		Score:          score,
		Stage:          stage,
		Owner:          "System",
		NextActionDate: &due,
		CreatedAt:      now.Add(-72 * time.Hour),
		LastUpdated:    now.Add(-72 * time.Hour),
		ScoreBreakdown: datatypes.JSON(`{"size":20,"legacy":15}`),
	}
	require.NoError(t, f.leads.Create(context.Background(), lead))
	return lead
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	f := newFixture(t, t.TempDir())

	w := f.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","database":"connected","redis":"connected","worker":"unknown"}`, w.Body.String())
}

func TestMetrics_EmptyStore(t *testing.T) {
	f := newFixture(t, t.TempDir())

	w := f.do(t, http.MethodGet, "/api/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"totalInventoryIps": 0,
		"activeLeads": 0,
		"conversionRate": 0,
		"pipelineValueUsd": 0,
		"urgentFollowups": [],
		"inventoryTrend30d": 0,
		"routingShifts24h": 0,
		"newCandidates24h": 0
	}`, w.Body.String())
}

func TestMetrics_PipelineValue(t *testing.T) {
	f := newFixture(t, t.TempDir())
	f.seedLead(t, 50, domain.StageFound)
	f.seedLead(t, 60, domain.StageClosedWon)
	f.seedLead(t, 70, domain.StageClosedLost)

	m := decode[handler.MetricsResponse](t, f.do(t, http.MethodGet, "/api/metrics", nil))
	assert.EqualValues(t, 3, m.ActiveLeads)
	assert.InDelta(t, 2*65536*52.5, m.PipelineValueUSD, 1e-6)
	assert.InDelta(t, 100.0/3.0, m.ConversionRate, 0.01)
	assert.NotNil(t, m.UrgentFollowups)
}

func TestLeads_ListByScoreDescending(t *testing.T) {
	f := newFixture(t, t.TempDir())
	for _, s := range []int{40, 95, 10, 77} {
		f.seedLead(t, s, domain.StageFound)
	}

	w := f.do(t, http.MethodGet, "/api/leads", nil)
	require.Equal(t, http.StatusOK, w.Code)
	leads := decode[[]handler.LeadResponse](t, w)

	var scores []int
	for _, l := range leads {
		scores = append(scores, l.Score)
	}
	assert.Equal(t, []int{95, 77, 40, 10}, scores)
}

func TestLeads_GetShape(t *testing.T) {
	f := newFixture(t, t.TempDir())
	lead := f.seedLead(t, 81, domain.StageVerified)

	w := f.do(t, http.MethodGet, "/api/leads/1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Equal(t, "1", raw["id"])
	assert.Equal(t, "Verified", raw["stage"])
	assert.Equal(t, "44.0.0.0/16", raw["cidr"])
	assert.Equal(t, map[string]interface{}{"size": 20.0, "legacy": 15.0}, raw["scoreBreakdown"])
	assert.Contains(t, raw, "nextActionDate")
	assert.Contains(t, raw, "lastUpdated")
	assert.NotContains(t, raw, "notes")
	assert.EqualValues(t, lead.Size, raw["size"])
}

func TestLeads_NotFoundAndBadID(t *testing.T) {
	f := newFixture(t, t.TempDir())

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"get unknown", http.MethodGet, "/api/leads/42", nil, http.StatusNotFound},
		{"patch unknown", http.MethodPatch, "/api/leads/42", `{"notes":"x"}`, http.StatusNotFound},
		{"get zero", http.MethodGet, "/api/leads/0", nil, http.StatusNotFound},
		{"patch zero", http.MethodPatch, "/api/leads/0", `{"notes":"x"}`, http.StatusNotFound},
		{"job logs zero", http.MethodGet, "/api/jobs/0/logs", nil, http.StatusNotFound},
		{"non-numeric", http.MethodGet, "/api/leads/abc", nil, http.StatusBadRequest},
		{"negative", http.MethodGet, "/api/leads/-1", nil, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := f.do(t, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestLeads_PatchPartial(t *testing.T) {
	f := newFixture(t, t.TempDir())
	lead := f.seedLead(t, 81, domain.StageFound)

	w := f.do(t, http.MethodPatch, "/api/leads/1", `{"stage":"NDA"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[handler.LeadResponse](t, w)
	assert.Equal(t, "NDA", got.Stage)
	require.NotNil(t, got.NextActionDate)
	assert.True(t, got.NextActionDate.Equal(*lead.NextActionDate))
	assert.True(t, got.LastUpdated.Equal(now))

	w = f.do(t, http.MethodPatch, "/api/leads/1", `{"notes":"sent NDA","nextActionDate":"2026-03-05"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got = decode[handler.LeadResponse](t, w)
	assert.Equal(t, "NDA", got.Stage)
	assert.Equal(t, "sent NDA", got.Notes)
	require.NotNil(t, got.NextActionDate)
	assert.True(t, got.NextActionDate.Equal(time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)))

	w = f.do(t, http.MethodPatch, "/api/leads/1", `{"nextActionDate":null}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got = decode[handler.LeadResponse](t, w)
	assert.Nil(t, got.NextActionDate)
	assert.Equal(t, "sent NDA", got.Notes)
}

func TestLeads_PatchRejectsBadInput(t *testing.T) {
	f := newFixture(t, t.TempDir())
	f.seedLead(t, 81, domain.StageFound)

	tests := []struct {
		name string
		body string
	}{
		{"unknown stage", `{"stage":"Parked"}`},
		{"malformed json", `{"stage":`},
		{"bad date", `{"nextActionDate":"next tuesday"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := f.do(t, http.MethodPatch, "/api/leads/1", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}

	got, err := f.leads.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StageFound, got.Stage)
}

func TestJobs_RunAndStatus(t *testing.T) {
	f := newFixture(t, t.TempDir())

	w := f.do(t, http.MethodPost, "/api/jobs/run", map[string]string{"job_type": "RDAP Ingestion"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	run := decode[handler.JobRunResponse](t, w)
	assert.Equal(t, "queued", run.Status)
	assert.Equal(t, "RDAP Ingestion", run.Type)
	assert.Zero(t, run.Progress)
	assert.Nil(t, run.FinishedAt)
	assert.Nil(t, run.Error)
	assert.Equal(t, 1, f.queue.Len())

	w = f.do(t, http.MethodPost, "/api/jobs/run?job_type=Scoring%20Run", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, f.queue.Len(), "non-dispatchable types are recorded only")

	runs := decode[[]handler.JobRunResponse](t, f.do(t, http.MethodGet, "/api/jobs/status", nil))
	require.Len(t, runs, 2)
	assert.Equal(t, "Scoring Run", runs[0].Type)
	assert.Equal(t, "RDAP Ingestion", runs[1].Type)
}

func TestJobs_RunRequiresType(t *testing.T) {
	f := newFixture(t, t.TempDir())

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/jobs/run", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/jobs/run", `not json`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/jobs/run", `{}`).Code)
}

func TestJobs_RunTypeSources(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		body     interface{}
		wantType string
	}{
		{"job_type key", "/api/jobs/run", `{"job_type":"RDAP Ingestion"}`, "RDAP Ingestion"},
		{"type key", "/api/jobs/run", `{"type":"RDAP Ingestion"}`, "RDAP Ingestion"},
		{"job_type wins over type", "/api/jobs/run", `{"job_type":"RDAP Ingestion","type":"Scoring Run"}`, "RDAP Ingestion"},
		{"body wins over query", "/api/jobs/run?job_type=Scoring%20Run", `{"type":"RDAP Ingestion"}`, "RDAP Ingestion"},
		{"query only", "/api/jobs/run?job_type=RDAP%20Ingestion", nil, "RDAP Ingestion"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, t.TempDir())

			w := f.do(t, http.MethodPost, tc.path, tc.body)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			run := decode[handler.JobRunResponse](t, w)
			assert.Equal(t, tc.wantType, run.Type)
			assert.Equal(t, "queued", run.Status)
			assert.Equal(t, 1, f.queue.Len())
		})
	}
}

func TestJobs_Logs(t *testing.T) {
	f := newFixture(t, t.TempDir())
	ctx := context.Background()

	run := &domain.JobRun{Type: domain.JobTypeRDAPIngestion, Status: domain.JobStatusRunning, StartedAt: now}
	require.NoError(t, f.jobs.Create(ctx, run))
	require.NoError(t, f.jobs.AppendLog(ctx, run.ID, "first", now))
	require.NoError(t, f.jobs.AppendLog(ctx, run.ID, "second", now.Add(time.Second)))

	w := f.do(t, http.MethodGet, "/api/jobs/1/logs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	logs := decode[[]handler.JobLogResponse](t, w)
	require.Len(t, logs, 2)
	assert.Equal(t, "first", logs[0].Line)
	assert.Equal(t, "second", logs[1].Line)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/jobs/99/logs", nil).Code)
}

func TestAnalyze_Unconfigured(t *testing.T) {
	f := newFixture(t, t.TempDir())

	w := f.do(t, http.MethodPost, "/api/ai/analyze", map[string]string{"cidr": "8.0.0.0/8", "orgName": "Level 3"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"error":"`+service.UnconfiguredMessage+`"}`, w.Body.String())
}

func TestFrontend(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o644))
	f := newFixture(t, dir)

	w := f.do(t, http.MethodGet, "/assets/app.js", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "console.log(1)", w.Body.String())

	w = f.do(t, http.MethodGet, "/pipeline/leads/3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<html>app</html>", w.Body.String())

	w = f.do(t, http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Not found"}`, w.Body.String())
}

func TestFrontend_NoBuild(t *testing.T) {
	f := newFixture(t, filepath.Join(t.TempDir(), "missing"))

	w := f.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Frontend build not found"}`, w.Body.String())
}
