package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/TalentSphere/backend/internal/domain/jobs"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/infrastructure/tracing"
)

// JobService is the orchestrator surface the handlers call.
type JobService interface {
	CreateJob(ctx context.Context, in jobs.CreateJobInput) (*jobs.Job, error)
	SearchJobs(ctx context.Context, q jobs.SearchQuery) (*jobs.SearchResult, error)
	GetJob(ctx context.Context, id string) (*jobs.Job, error)
	UpdateJob(ctx context.Context, id string, in jobs.UpdateJobInput) (*jobs.Job, error)
	DeleteJob(ctx context.Context, id string) error
	FindJobMatches(ctx context.Context, jobID string) (*jobs.Matches, error)
	ApplyForJob(ctx context.Context, jobID string, in jobs.ApplicationInput) (*jobs.Application, error)
}

// Handlers contains all HTTP handlers
type Handlers struct {
	jobs     JobService
	breakers *resilience.Breakers
	spans    *tracing.RingSink
	version  string
}

// NewHandlers creates a new handler set. breakers and spans may be nil; the
// debug endpoints then report empty lists.
func NewHandlers(svc JobService, breakers *resilience.Breakers, spans *tracing.RingSink, version string) *Handlers {
	return &Handlers{
		jobs:     svc,
		breakers: breakers,
		spans:    spans,
		version:  version,
	}
}

// Register mounts the job and diagnostic routes.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	jobsGroup := r.Group("/jobs")
	jobsGroup.POST("", h.CreateJob)
	jobsGroup.GET("", h.SearchJobs)
	jobsGroup.GET("/:id", h.GetJob)
	jobsGroup.PUT("/:id", h.UpdateJob)
	jobsGroup.DELETE("/:id", h.DeleteJob)
	jobsGroup.GET("/:id/matches", h.FindJobMatches)
	jobsGroup.POST("/:id/applications", h.ApplyForJob)

	debug := r.Group("/debug")
	debug.GET("/breakers", h.Breakers)
	debug.GET("/spans", h.Spans)
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "job-service",
		"version": h.version,
	})
}

// Health reports degraded while any peer breaker is not closed.
func (h *Handlers) Health(c *gin.Context) {
	breakers := h.breakerStatuses()

	status := "healthy"
	for _, b := range breakers {
		if b.State != resilience.StateClosed.String() {
			status = "degraded"
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"breakers": breakers,
	})
}

// CreateJob handles POST /jobs
func (h *Handlers) CreateJob(c *gin.Context) {
	var in jobs.CreateJobInput
	if !bindJSON(c, &in) {
		return
	}

	job, err := h.jobs.CreateJob(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

// SearchJobs handles GET /jobs
func (h *Handlers) SearchJobs(c *gin.Context) {
	q, err := parseSearchQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.jobs.SearchJobs(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetJob handles GET /jobs/:id
func (h *Handlers) GetJob(c *gin.Context) {
	job, err := h.jobs.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// UpdateJob handles PUT /jobs/:id
func (h *Handlers) UpdateJob(c *gin.Context) {
	var in jobs.UpdateJobInput
	if !bindJSON(c, &in) {
		return
	}

	job, err := h.jobs.UpdateJob(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// DeleteJob handles DELETE /jobs/:id
func (h *Handlers) DeleteJob(c *gin.Context) {
	if err := h.jobs.DeleteJob(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// FindJobMatches handles GET /jobs/:id/matches
func (h *Handlers) FindJobMatches(c *gin.Context) {
	matches, err := h.jobs.FindJobMatches(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, matches)
}

// ApplyForJob handles POST /jobs/:id/applications
func (h *Handlers) ApplyForJob(c *gin.Context) {
	var in jobs.ApplicationInput
	if !bindJSON(c, &in) {
		return
	}

	app, err := h.jobs.ApplyForJob(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

// Breakers handles GET /debug/breakers
func (h *Handlers) Breakers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"breakers": h.breakerStatuses()})
}

// Spans handles GET /debug/spans. With ?trace_id= it returns that trace,
// otherwise the most recent ?limit= spans (default 50).
func (h *Handlers) Spans(c *gin.Context) {
	if h.spans == nil {
		c.JSON(http.StatusOK, gin.H{"spans": []tracing.Record{}})
		return
	}

	if traceID := c.Query("trace_id"); traceID != "" {
		c.JSON(http.StatusOK, gin.H{"spans": h.spans.Trace(tracing.TraceID(traceID))})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	c.JSON(http.StatusOK, gin.H{"spans": h.spans.Last(limit)})
}

func (h *Handlers) breakerStatuses() []resilience.BreakerStatus {
	if h.breakers == nil {
		return []resilience.BreakerStatus{}
	}
	return h.breakers.Snapshot()
}
