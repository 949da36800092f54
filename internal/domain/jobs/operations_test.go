package jobs

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/TalentSphere/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/peer"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/shared/fault"
)

func TestCreateJob(t *testing.T) {
	peers := newFakePeers()
	peers.on(config.PeerCompany, http.MethodGet, "/companies/co-1", respond(t, http.StatusOK, map[string]string{"id": "co-1"}))
	peers.on(config.PeerJobStore, http.MethodPost, "/jobs", func(context.Context, peer.Request) (*peer.Response, error) {
		return &peer.Response{Status: http.StatusCreated}, nil
	})
	o := newTestOrchestrator(t, peers)
	o.caches.Queries.SetDefault(queryKeyPrefix+"stale", &SearchResult{})

	job, err := o.CreateJob(context.Background(), CreateJobInput{
		CompanyID: "co-1",
		Title:     "  Backend Engineer ",
		Skills:    []string{"Go"},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(job.ID, "job_"))
	assert.Equal(t, "Backend Engineer", job.Title)
	assert.Equal(t, StatusOpen, job.Status)
	assert.Equal(t, testNow, job.CreatedAt)

	cached, ok := o.caches.Jobs.Get(jobKey(job.ID))
	require.True(t, ok)
	assert.Equal(t, job.Title, cached.Title)
	assert.Zero(t, o.caches.Queries.Len(), "query cache must be invalidated")

	drain(t, o)
	assert.Equal(t, 1, peers.count(config.PeerSearch, http.MethodPut, "/index/jobs/"+job.ID))
	ev, ok := peers.last(config.PeerAnalytics, http.MethodPost, "/events")
	require.True(t, ok)
	assert.Equal(t, EventJobCreated, ev.Body.(analyticsEvent).Type)
}

func TestCreateJobValidation(t *testing.T) {
	peers := newFakePeers()
	o := newTestOrchestrator(t, peers)

	tests := []struct {
		name string
		in   CreateJobInput
	}{
		{"missing company", CreateJobInput{Title: "Engineer"}},
		{"missing title", CreateJobInput{CompanyID: "co-1", Title: "  "}},
		{"inverted salary", CreateJobInput{CompanyID: "co-1", Title: "Engineer", SalaryMin: 200, SalaryMax: 100}},
		{"unknown status", CreateJobInput{CompanyID: "co-1", Title: "Engineer", Status: "archived"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := o.CreateJob(context.Background(), tt.in)
			assertKind(t, fault.KindValidationFailed, err)
		})
	}

	assert.Empty(t, peers.calls, "invalid input must not reach any peer")
}

func TestCreateJobUnknownCompany(t *testing.T) {
	peers := newFakePeers()
	peers.on(config.PeerCompany, http.MethodGet, "/companies/ghost", respond(t, http.StatusNotFound, peerErrorBody{Error: "not found"}))
	o := newTestOrchestrator(t, peers)

	_, err := o.CreateJob(context.Background(), CreateJobInput{CompanyID: "ghost", Title: "Engineer"})

	assertKind(t, fault.KindValidationFailed, err)
	assert.Zero(t, peers.count(config.PeerJobStore, http.MethodPost, "/jobs"))
}

func TestCreateJobCompanyUnavailable(t *testing.T) {
	peers := newFakePeers()
	peers.on(config.PeerCompany, http.MethodGet, "/companies/co-1", fail(errNetwork))
	o := newTestOrchestrator(t, peers)

	_, err := o.CreateJob(context.Background(), CreateJobInput{CompanyID: "co-1", Title: "Engineer"})

	assert.ErrorIs(t, err, fault.PeerUnavailable)
	assert.Equal(t, 3, peers.count(config.PeerCompany, http.MethodGet, "/companies/co-1"))
}

func TestGetJobUsesEntityCache(t *testing.T) {
	peers := newFakePeers()
	peers.on(config.PeerJobStore, http.MethodGet, "/jobs/j1", respond(t, http.StatusOK, openJob("j1")))
	o := newTestOrchestrator(t, peers)

	first, err := o.GetJob(context.Background(), "j1")
	require.NoError(t, err)
	first.Title = "mutated by caller"

	second, err := o.GetJob(context.Background(), "j1")
	require.NoError(t, err)

	assert.Equal(t, "Frontend Engineer", second.Title, "cached job must not alias caller copies")
	assert.Equal(t, 1, peers.count(config.PeerJobStore, http.MethodGet, "/jobs/j1"))

	drain(t, o)
	assert.Equal(t, 2, peers.count(config.PeerAnalytics, http.MethodPost, "/events"))
}

func TestGetJobFailures(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		peers := newFakePeers()
		peers.on(config.PeerJobStore, http.MethodGet, "/jobs/nope", respond(t, http.StatusNotFound, peerErrorBody{Error: "not found"}))
		o := newTestOrchestrator(t, peers)

		_, err := o.GetJob(context.Background(), "nope")
		assert.ErrorIs(t, err, fault.NotFound)
		assert.Equal(t, 1, peers.count(config.PeerJobStore, http.MethodGet, "/jobs/nope"), "4xx is not retried")
	})

	t.Run("timeout", func(t *testing.T) {
		peers := newFakePeers()
		peers.on(config.PeerJobStore, http.MethodGet, "/jobs/slow", hang)
		o := newTestOrchestrator(t, peers)

		_, err := o.GetJob(context.Background(), "slow")
		assert.ErrorIs(t, err, fault.Timeout)
	})

	t.Run("empty id", func(t *testing.T) {
		o := newTestOrchestrator(t, newFakePeers())

		_, err := o.GetJob(context.Background(), " ")
		assert.ErrorIs(t, err, fault.ValidationFailed)
	})
}

func TestSearchJobsSharesCacheAcrossEquivalentQueries(t *testing.T) {
	peers := newFakePeers()
	peers.on(config.PeerSearch, http.MethodGet, "/search/jobs", respond(t, http.StatusOK, SearchResult{
		Jobs:  []Job{*openJob("j1")},
		Total: 1,
	}))
	o := newTestOrchestrator(t, peers)

	first, err := o.SearchJobs(context.Background(), SearchQuery{Skills: []string{"Go", "go ", " Rust"}})
	require.NoError(t, err)
	second, err := o.SearchJobs(context.Background(), SearchQuery{Skills: []string{"rust", "go"}, Page: 1, PageSize: 20})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotSame(t, first, second)
	assert.Equal(t, 1, first.Page)
	assert.Equal(t, 20, first.PageSize)
	assert.Equal(t, 1, peers.count(config.PeerSearch, http.MethodGet, "/search/jobs"))

	req, ok := peers.last(config.PeerSearch, http.MethodGet, "/search/jobs")
	require.True(t, ok)
	assert.Equal(t, []string{"go", "rust"}, req.Query["skills"])
}

func TestSearchJobsFailures(t *testing.T) {
	t.Run("invalid paging", func(t *testing.T) {
		o := newTestOrchestrator(t, newFakePeers())

		_, err := o.SearchJobs(context.Background(), SearchQuery{PageSize: 500})
		assert.ErrorIs(t, err, fault.ValidationFailed)
	})

	t.Run("peer down", func(t *testing.T) {
		peers := newFakePeers()
		peers.on(config.PeerSearch, http.MethodGet, "/search/jobs", fail(errNetwork))
		o := newTestOrchestrator(t, peers)

		_, err := o.SearchJobs(context.Background(), SearchQuery{Text: "go"})
		assert.ErrorIs(t, err, fault.PeerUnavailable)
		assert.Zero(t, o.caches.Queries.Len())
	})
}

func TestUpdateJobInvalidates(t *testing.T) {
	peers := newFakePeers()
	peers.on(config.PeerJobStore, http.MethodGet, "/jobs/j1", respond(t, http.StatusOK, openJob("j1")))
	peers.on(config.PeerJobStore, http.MethodPut, "/jobs/j1", func(context.Context, peer.Request) (*peer.Response, error) {
		return &peer.Response{Status: http.StatusNoContent}, nil
	})
	o := newTestOrchestrator(t, peers)

	_, err := o.GetJob(context.Background(), "j1")
	require.NoError(t, err)
	o.caches.Queries.SetDefault(queryKeyPrefix+"any", &SearchResult{})
	o.caches.Matches.SetDefault(matchKey("j1"), &Matches{JobID: "j1"})
	o.caches.Matches.SetDefault(matchKey("j2"), &Matches{JobID: "j2"})

	title := "Staff Frontend Engineer"
	updated, err := o.UpdateJob(context.Background(), "j1", UpdateJobInput{Title: &title})
	require.NoError(t, err)

	assert.Equal(t, title, updated.Title)
	assert.Equal(t, testNow, updated.UpdatedAt)

	cached, ok := o.caches.Jobs.Get(jobKey("j1"))
	require.True(t, ok)
	assert.Equal(t, title, cached.Title)
	assert.Zero(t, o.caches.Queries.Len())
	_, ok = o.caches.Matches.Get(matchKey("j1"))
	assert.False(t, ok)
	_, ok = o.caches.Matches.Get(matchKey("j2"))
	assert.True(t, ok, "other jobs' matches survive")

	put, ok := peers.last(config.PeerJobStore, http.MethodPut, "/jobs/j1")
	require.True(t, ok)
	assert.Equal(t, title, put.Body.(*Job).Title)

	drain(t, o)
	assert.Equal(t, 1, peers.count(config.PeerSearch, http.MethodPut, "/index/jobs/j1"))
}

func TestUpdateJobInvalidatesOnUnusableAnswer(t *testing.T) {
	tests := []struct {
		name string
		put  route
		kind fault.Kind
	}{
		{
			name: "malformed 2xx body",
			put: func(context.Context, peer.Request) (*peer.Response, error) {
				return &peer.Response{Status: http.StatusOK, Data: []byte("<html>ok</html>")}, nil
			},
			kind: fault.KindInternal,
		},
		{
			name: "store unavailable",
			put:  fail(errNetwork),
			kind: fault.KindPeerUnavailable,
		},
		{
			name: "store rejects",
			put:  respond(t, http.StatusConflict, peerErrorBody{Error: "version mismatch"}),
			kind: fault.KindConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			peers := newFakePeers()
			peers.on(config.PeerJobStore, http.MethodGet, "/jobs/j1", respond(t, http.StatusOK, openJob("j1")))
			peers.on(config.PeerJobStore, http.MethodPut, "/jobs/j1", tt.put)
			o := newTestOrchestrator(t, peers)

			_, err := o.GetJob(context.Background(), "j1")
			require.NoError(t, err)
			o.caches.Matches.SetDefault(matchKey("j1"), &Matches{JobID: "j1"})

			title := "Staff Frontend Engineer"
			_, err = o.UpdateJob(context.Background(), "j1", UpdateJobInput{Title: &title})
			assertKind(t, tt.kind, err)

			_, ok := o.caches.Jobs.Get(jobKey("j1"))
			assert.False(t, ok, "the pre-update job must not be served")
			_, ok = o.caches.Matches.Get(matchKey("j1"))
			assert.False(t, ok)
		})
	}
}

func TestUpdateJobRejectsEmptyPatch(t *testing.T) {
	peers := newFakePeers()
	o := newTestOrchestrator(t, peers)

	_, err := o.UpdateJob(context.Background(), "j1", UpdateJobInput{})

	assert.ErrorIs(t, err, fault.ValidationFailed)
	assert.Empty(t, peers.calls)
}

func TestDeleteJob(t *testing.T) {
	peers := newFakePeers()
	peers.on(config.PeerJobStore, http.MethodDelete, "/jobs/j1", func(context.Context, peer.Request) (*peer.Response, error) {
		return &peer.Response{Status: http.StatusNoContent}, nil
	})
	peers.on(config.PeerJobStore, http.MethodDelete, "/jobs/gone", respond(t, http.StatusNotFound, peerErrorBody{Error: "not found"}))
	o := newTestOrchestrator(t, peers)

	o.caches.Jobs.SetDefault(jobKey("j1"), openJob("j1"))
	o.caches.Queries.SetDefault(queryKeyPrefix+"any", &SearchResult{})
	o.caches.Matches.SetDefault(matchKey("j1"), &Matches{JobID: "j1"})

	require.NoError(t, o.DeleteJob(context.Background(), "j1"))

	assert.Zero(t, o.caches.Jobs.Len())
	assert.Zero(t, o.caches.Queries.Len())
	assert.Zero(t, o.caches.Matches.Len())

	err := o.DeleteJob(context.Background(), "gone")
	assert.ErrorIs(t, err, fault.NotFound)

	drain(t, o)
	assert.Equal(t, 1, peers.count(config.PeerSearch, http.MethodDelete, "/index/jobs/j1"))
	assert.Zero(t, peers.count(config.PeerSearch, http.MethodDelete, "/index/jobs/gone"))
}

func TestApplyForJob(t *testing.T) {
	peers := newFakePeers()
	peers.on(config.PeerJobStore, http.MethodGet, "/jobs/j1", respond(t, http.StatusOK, openJob("j1")))
	peers.on(config.PeerJobStore, http.MethodPost, "/applications", func(context.Context, peer.Request) (*peer.Response, error) {
		return &peer.Response{Status: http.StatusCreated}, nil
	})
	o := newTestOrchestrator(t, peers)
	o.caches.Matches.SetDefault(matchKey("j1"), &Matches{JobID: "j1"})

	app, err := o.ApplyForJob(context.Background(), "j1", ApplicationInput{CandidateID: "c1"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(app.ID, "app_"))
	assert.Equal(t, ApplicationSubmitted, app.Status)
	assert.Equal(t, "j1", app.JobID)
	_, ok := o.caches.Matches.Get(matchKey("j1"))
	assert.False(t, ok)

	drain(t, o)
	ev, ok := peers.last(config.PeerAnalytics, http.MethodPost, "/events")
	require.True(t, ok)
	assert.Equal(t, EventJobApplied, ev.Body.(analyticsEvent).Type)

	note, ok := peers.last(config.PeerNotification, http.MethodPost, "/notifications")
	require.True(t, ok)
	assert.Equal(t, "co-1", note.Body.(notification).RecipientID)
}

func TestApplyForJobConflicts(t *testing.T) {
	t.Run("closed job", func(t *testing.T) {
		closed := openJob("j1")
		closed.Status = StatusClosed

		peers := newFakePeers()
		peers.on(config.PeerJobStore, http.MethodGet, "/jobs/j1", respond(t, http.StatusOK, closed))
		o := newTestOrchestrator(t, peers)

		_, err := o.ApplyForJob(context.Background(), "j1", ApplicationInput{CandidateID: "c1"})
		assert.ErrorIs(t, err, fault.Conflict)
		assert.Zero(t, peers.count(config.PeerJobStore, http.MethodPost, "/applications"))
	})

	t.Run("duplicate", func(t *testing.T) {
		peers := newFakePeers()
		peers.on(config.PeerJobStore, http.MethodGet, "/jobs/j1", respond(t, http.StatusOK, openJob("j1")))
		peers.on(config.PeerJobStore, http.MethodPost, "/applications", respond(t, http.StatusConflict, peerErrorBody{Error: "exists"}))
		o := newTestOrchestrator(t, peers)

		_, err := o.ApplyForJob(context.Background(), "j1", ApplicationInput{CandidateID: "c1"})
		assert.ErrorIs(t, err, fault.Conflict)
	})

	t.Run("missing job", func(t *testing.T) {
		peers := newFakePeers()
		peers.on(config.PeerJobStore, http.MethodGet, "/jobs/j9", respond(t, http.StatusNotFound, peerErrorBody{}))
		o := newTestOrchestrator(t, peers)

		_, err := o.ApplyForJob(context.Background(), "j9", ApplicationInput{CandidateID: "c1"})
		assert.ErrorIs(t, err, fault.NotFound)
	})
}

func TestSideEffectFailureDoesNotFailOperation(t *testing.T) {
	peers := newFakePeers()
	peers.on(config.PeerJobStore, http.MethodGet, "/jobs/j1", respond(t, http.StatusOK, openJob("j1")))
	peers.on(config.PeerAnalytics, http.MethodPost, "/events", fail(errNetwork))
	o := newTestOrchestrator(t, peers)

	_, err := o.GetJob(context.Background(), "j1")
	require.NoError(t, err)

	drain(t, o)
	assert.Equal(t, 3, peers.count(config.PeerAnalytics, http.MethodPost, "/events"), "side effects retry like any peer call")
}
