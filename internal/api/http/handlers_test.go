package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/TalentSphere/backend/internal/domain/jobs"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/domain/matching"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/shared/fault"
)

type fakeJobs struct {
	err error

	created jobs.CreateJobInput
	query   jobs.SearchQuery
	updated jobs.UpdateJobInput
	applied jobs.ApplicationInput
	lastID  string
}

func (f *fakeJobs) CreateJob(_ context.Context, in jobs.CreateJobInput) (*jobs.Job, error) {
	f.created = in
	if f.err != nil {
		return nil, f.err
	}
	return &jobs.Job{ID: "job_1", CompanyID: in.CompanyID, Title: in.Title, Status: jobs.StatusOpen}, nil
}

func (f *fakeJobs) SearchJobs(_ context.Context, q jobs.SearchQuery) (*jobs.SearchResult, error) {
	f.query = q
	if f.err != nil {
		return nil, f.err
	}
	return &jobs.SearchResult{Jobs: []jobs.Job{}, Page: 1, PageSize: 20}, nil
}

func (f *fakeJobs) GetJob(_ context.Context, id string) (*jobs.Job, error) {
	f.lastID = id
	if f.err != nil {
		return nil, f.err
	}
	return &jobs.Job{ID: id, Title: "Engineer"}, nil
}

func (f *fakeJobs) UpdateJob(_ context.Context, id string, in jobs.UpdateJobInput) (*jobs.Job, error) {
	f.lastID, f.updated = id, in
	if f.err != nil {
		return nil, f.err
	}
	return &jobs.Job{ID: id, Title: *in.Title}, nil
}

func (f *fakeJobs) DeleteJob(_ context.Context, id string) error {
	f.lastID = id
	return f.err
}

func (f *fakeJobs) FindJobMatches(_ context.Context, jobID string) (*jobs.Matches, error) {
	f.lastID = jobID
	if f.err != nil {
		return nil, f.err
	}
	return &jobs.Matches{JobID: jobID, Candidates: []jobs.CandidateMatch{{CandidateID: "c1"}}}, nil
}

func (f *fakeJobs) ApplyForJob(_ context.Context, jobID string, in jobs.ApplicationInput) (*jobs.Application, error) {
	f.lastID, f.applied = jobID, in
	if f.err != nil {
		return nil, f.err
	}
	return &jobs.Application{ID: "app_1", JobID: jobID, CandidateID: in.CandidateID, Status: jobs.ApplicationSubmitted}, nil
}

func newTestRouter(svc JobService, breakers *resilience.Breakers, spans *tracing.RingSink) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandlers(svc, breakers, spans, "test").Register(router)
	return router
}

func serve(t *testing.T, router http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &decoded), w.Body.String())
	}
	return w, decoded
}

func TestJobRoutes(t *testing.T) {
	svc := &fakeJobs{}
	router := newTestRouter(svc, nil, nil)

	w, body := serve(t, router, http.MethodPost, "/jobs", `{"company_id":"co-1","title":"Engineer","experience_level":"senior"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "job_1", body["id"])
	assert.Equal(t, matching.LevelSenior, svc.created.ExperienceLevel)

	w, body = serve(t, router, http.MethodGet, "/jobs/job_9", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "job_9", body["id"])

	w, body = serve(t, router, http.MethodPut, "/jobs/job_9", `{"title":"Lead"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Lead", body["title"])

	w, _ = serve(t, router, http.MethodDelete, "/jobs/job_9", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, body = serve(t, router, http.MethodGet, "/jobs/job_9/matches", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "job_9", body["job_id"])

	w, body = serve(t, router, http.MethodPost, "/jobs/job_9/applications", `{"candidate_id":"c7"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "c7", body["candidate_id"])
	assert.Equal(t, "job_9", svc.lastID)
}

func TestSearchJobsParsesQuery(t *testing.T) {
	svc := &fakeJobs{}
	router := newTestRouter(svc, nil, nil)

	w, _ := serve(t, router, http.MethodGet, "/jobs?q=platform&skills=go,rust&skills=sql&remote=true&level=mid&page=2&page_size=10", "")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "platform", svc.query.Text)
	assert.Equal(t, []string{"go", "rust", "sql"}, svc.query.Skills)
	require.NotNil(t, svc.query.Remote)
	assert.True(t, *svc.query.Remote)
	assert.Equal(t, matching.LevelMid, svc.query.Level)
	assert.Equal(t, 2, svc.query.Page)
	assert.Equal(t, 10, svc.query.PageSize)
}

func TestSearchJobsRejectsBadParams(t *testing.T) {
	router := newTestRouter(&fakeJobs{}, nil, nil)

	for _, target := range []string{"/jobs?remote=maybe", "/jobs?level=wizard", "/jobs?page=two"} {
		w, body := serve(t, router, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		assert.Equal(t, "validation_failed", body["error"], target)
	}
}

func TestMalformedBody(t *testing.T) {
	router := newTestRouter(&fakeJobs{}, nil, nil)

	w, body := serve(t, router, http.MethodPost, "/jobs", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_failed", body["error"])
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{fault.New(fault.KindNotFound, "getJob", "job j1 not found"), http.StatusNotFound, "not_found"},
		{fault.New(fault.KindValidationFailed, "getJob", "bad"), http.StatusBadRequest, "validation_failed"},
		{fault.New(fault.KindConflict, "getJob", "dup"), http.StatusConflict, "conflict"},
		{fault.New(fault.KindPeerUnavailable, "getJob", "job unavailable"), http.StatusServiceUnavailable, "peer_unavailable"},
		{fault.New(fault.KindTimeout, "getJob", "slow"), http.StatusGatewayTimeout, "timeout"},
		{assert.AnError, http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			router := newTestRouter(&fakeJobs{err: tt.err}, nil, nil)

			w, body := serve(t, router, http.MethodGet, "/jobs/j1", "")
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.kind, body["error"])
		})
	}
}

func TestInternalErrorsHideDetails(t *testing.T) {
	router := newTestRouter(&fakeJobs{err: assert.AnError}, nil, nil)

	_, body := serve(t, router, http.MethodGet, "/jobs/j1", "")
	assert.Equal(t, "internal error", body["message"])
}

func TestHealthReportsBreakers(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	breakers := resilience.NewBreakers(resilience.ServiceSettings{Threshold: 1, ResetTimeout: time.Minute, CallTimeout: time.Second},
		resilience.WithClock(func() time.Time { return now }))
	client := resilience.NewClient(breakers, nil, nil)
	router := newTestRouter(&fakeJobs{}, breakers, nil)

	resilience.Call(context.Background(), client, "search", func(context.Context) (int, error) { return 1, nil })
	_, body := serve(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, "healthy", body["status"])

	resilience.Call(context.Background(), client, "search", func(context.Context) (int, error) { return 0, assert.AnError })
	_, body = serve(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, "degraded", body["status"])

	_, body = serve(t, router, http.MethodGet, "/debug/breakers", "")
	list, ok := body["breakers"].([]any)
	require.True(t, ok)
	require.Len(t, list, 1)
	assert.Equal(t, "open", list[0].(map[string]any)["state"])
}

func TestSpansEndpoint(t *testing.T) {
	ring := tracing.NewRingSink(8)
	ring.Export(tracing.Record{TraceID: "t1", SpanID: "s1", Name: "getJob"})
	ring.Export(tracing.Record{TraceID: "t2", SpanID: "s2", Name: "searchJobs"})
	router := newTestRouter(&fakeJobs{}, nil, ring)

	_, body := serve(t, router, http.MethodGet, "/debug/spans?trace_id=t2", "")
	spans := body["spans"].([]any)
	require.Len(t, spans, 1)
	assert.Equal(t, "searchJobs", spans[0].(map[string]any)["name"])

	_, body = serve(t, router, http.MethodGet, "/debug/spans?limit=1", "")
	assert.Len(t, body["spans"].([]any), 1)

	w, _ := serve(t, router, http.MethodGet, "/debug/spans?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
