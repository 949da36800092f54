package jobs

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/TalentSphere/backend/internal/shared/fault"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/shared/id"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/shared/validate"
)

// CreateJob verifies the company, stores a new open posting and indexes it.
func (o *Orchestrator) CreateJob(ctx context.Context, in CreateJobInput) (_ *Job, err error) {
	ctx, op := o.begin(ctx, opCreateJob)
	defer o.end(op, &err)

	if err := in.Validate(); err != nil {
		return nil, err
	}

	res := o.call(ctx, getCompanyRequest(in.CompanyID))
	if !res.OK() {
		return nil, unavailable(opCreateJob, "company lookup unavailable", res)
	}
	if res.Payload.Status == http.StatusNotFound {
		return nil, &fault.Error{Kind: fault.KindValidationFailed, Op: opCreateJob, Service: res.Service, Msg: "company " + in.CompanyID + " does not exist"}
	}
	if !res.Payload.IsSuccess() {
		return nil, rejected(opCreateJob, res.Service, res.Payload)
	}

	now := o.opts.Now().UTC()
	status := in.Status
	if status == "" {
		status = StatusOpen
	}
	job := &Job{
		ID:              id.NewJobID().String(),
		CompanyID:       in.CompanyID,
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		Skills:          append([]string(nil), in.Skills...),
		ExperienceLevel: in.ExperienceLevel,
		Location:        in.Location,
		Remote:          in.Remote,
		EmploymentType:  in.EmploymentType,
		SalaryMin:       in.SalaryMin,
		SalaryMax:       in.SalaryMax,
		Status:          status,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	o.recorder.Tag(op.span, "job.id", job.ID)

	res = o.call(ctx, jobCreateRequest(job))
	if !res.OK() {
		return nil, unavailable(opCreateJob, "job store unavailable", res)
	}
	if !res.Payload.IsSuccess() {
		return nil, rejected(opCreateJob, res.Service, res.Payload)
	}
	if len(res.Payload.Data) > 0 {
		var stored Job
		if err := decode(opCreateJob, res.Service, res.Payload, &stored); err != nil {
			return nil, err
		}
		if stored.ID != "" {
			job = &stored
		}
	}

	o.caches.Jobs.SetDefault(jobKey(job.ID), job.clone())
	dropped := o.caches.Queries.InvalidatePrefix(queryKeyPrefix)

	o.log(ctx).Info("job created",
		zap.String("job_id", job.ID),
		zap.String("company_id", job.CompanyID),
		zap.Int("queries_invalidated", dropped),
	)

	o.background(ctx, opCreateJob,
		indexJobRequest(job.clone()),
		eventRequest(analyticsEvent{
			Type:       EventJobCreated,
			JobID:      job.ID,
			CompanyID:  job.CompanyID,
			TraceID:    o.traceID(ctx),
			OccurredAt: now,
		}),
	)

	return job, nil
}

// GetJob returns a job, from the entity cache when possible.
func (o *Orchestrator) GetJob(ctx context.Context, jobID string) (_ *Job, err error) {
	ctx, op := o.begin(ctx, opGetJob)
	defer o.end(op, &err)

	if err := validate.ID(jobID, "job_id"); err != nil {
		return nil, invalid(opGetJob, err)
	}
	o.recorder.Tag(op.span, "job.id", jobID)

	job, err := o.resolveJob(ctx, opGetJob, jobID)
	if err != nil {
		return nil, err
	}

	o.background(ctx, opGetJob, eventRequest(analyticsEvent{
		Type:       EventJobViewed,
		JobID:      job.ID,
		CompanyID:  job.CompanyID,
		TraceID:    o.traceID(ctx),
		OccurredAt: o.opts.Now().UTC(),
	}))

	return job, nil
}

// SearchJobs queries the search peer, caching each distinct query.
func (o *Orchestrator) SearchJobs(ctx context.Context, q SearchQuery) (_ *SearchResult, err error) {
	ctx, op := o.begin(ctx, opSearchJobs)
	defer o.end(op, &err)

	q, err = q.normalize()
	if err != nil {
		return nil, err
	}
	key, err := q.cacheKey()
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, opSearchJobs, "encode query", err)
	}

	if cached, ok := o.caches.Queries.Get(key); ok {
		o.recorder.Tag(op.span, "cache", "hit")
		return cached.clone(), nil
	}
	o.recorder.Tag(op.span, "cache", "miss")

	res := o.call(ctx, searchJobsRequest(q))
	if !res.OK() {
		return nil, unavailable(opSearchJobs, "search unavailable", res)
	}
	if !res.Payload.IsSuccess() {
		return nil, rejected(opSearchJobs, res.Service, res.Payload)
	}

	var result SearchResult
	if err := decode(opSearchJobs, res.Service, res.Payload, &result); err != nil {
		return nil, err
	}
	if result.Jobs == nil {
		result.Jobs = []Job{}
	}
	if result.Page == 0 {
		result.Page = q.Page
	}
	if result.PageSize == 0 {
		result.PageSize = q.PageSize
	}

	o.caches.Queries.SetDefault(key, result.clone())
	return &result, nil
}

// UpdateJob applies a partial update and refreshes every cache derived from
// the job.
func (o *Orchestrator) UpdateJob(ctx context.Context, jobID string, in UpdateJobInput) (_ *Job, err error) {
	ctx, op := o.begin(ctx, opUpdateJob)
	defer o.end(op, &err)

	if err := validate.ID(jobID, "job_id"); err != nil {
		return nil, invalid(opUpdateJob, err)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	o.recorder.Tag(op.span, "job.id", jobID)

	current, err := o.resolveJob(ctx, opUpdateJob, jobID)
	if err != nil {
		return nil, err
	}
	updated, err := in.apply(current)
	if err != nil {
		return nil, err
	}
	updated.ID = jobID
	updated.UpdatedAt = o.opts.Now().UTC()

	res := o.call(ctx, jobUpdateRequest(updated))
	// The store may have applied the PUT whatever the answer.
	o.invalidateJob(jobID)
	if !res.OK() {
		return nil, unavailable(opUpdateJob, "job store unavailable", res)
	}
	if !res.Payload.IsSuccess() {
		return nil, rejected(opUpdateJob, res.Service, res.Payload)
	}
	if len(res.Payload.Data) > 0 {
		var stored Job
		if err := decode(opUpdateJob, res.Service, res.Payload, &stored); err != nil {
			return nil, err
		}
		if stored.ID != "" {
			updated = &stored
		}
	}

	o.caches.Jobs.SetDefault(jobKey(jobID), updated.clone())

	o.log(ctx).Info("job updated", zap.String("job_id", jobID))
	o.background(ctx, opUpdateJob, indexJobRequest(updated.clone()))

	return updated, nil
}

// DeleteJob removes a job and everything cached from it.
func (o *Orchestrator) DeleteJob(ctx context.Context, jobID string) (err error) {
	ctx, op := o.begin(ctx, opDeleteJob)
	defer o.end(op, &err)

	if err := validate.ID(jobID, "job_id"); err != nil {
		return invalid(opDeleteJob, err)
	}
	o.recorder.Tag(op.span, "job.id", jobID)

	res := o.call(ctx, jobDeleteRequest(jobID))
	if !res.OK() {
		return unavailable(opDeleteJob, "job store unavailable", res)
	}
	if res.Payload.Status == http.StatusNotFound {
		o.invalidateJob(jobID)
		return &fault.Error{Kind: fault.KindNotFound, Op: opDeleteJob, Service: res.Service, Msg: "job " + jobID + " not found"}
	}
	if !res.Payload.IsSuccess() {
		return rejected(opDeleteJob, res.Service, res.Payload)
	}

	o.invalidateJob(jobID)
	o.log(ctx).Info("job deleted", zap.String("job_id", jobID))
	o.background(ctx, opDeleteJob, unindexJobRequest(jobID))

	return nil
}

// ApplyForJob submits a candidate's application to an open job.
func (o *Orchestrator) ApplyForJob(ctx context.Context, jobID string, in ApplicationInput) (_ *Application, err error) {
	ctx, op := o.begin(ctx, opApplyForJob)
	defer o.end(op, &err)

	if err := validate.ID(jobID, "job_id"); err != nil {
		return nil, invalid(opApplyForJob, err)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	o.recorder.Tag(op.span, "job.id", jobID)
	o.recorder.Tag(op.span, "candidate.id", in.CandidateID)

	job, err := o.resolveJob(ctx, opApplyForJob, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status == StatusClosed {
		return nil, fault.New(fault.KindConflict, opApplyForJob, "job "+jobID+" is not accepting applications")
	}

	app := &Application{
		ID:          id.NewApplicationID().String(),
		JobID:       jobID,
		CandidateID: in.CandidateID,
		CoverLetter: in.CoverLetter,
		ResumeURL:   in.ResumeURL,
		Status:      ApplicationSubmitted,
		CreatedAt:   o.opts.Now().UTC(),
	}

	res := o.call(ctx, applicationRequest(app))
	if !res.OK() {
		return nil, unavailable(opApplyForJob, "job store unavailable", res)
	}
	if res.Payload.Status == http.StatusConflict {
		return nil, &fault.Error{Kind: fault.KindConflict, Op: opApplyForJob, Service: res.Service, Msg: "candidate " + in.CandidateID + " already applied"}
	}
	if !res.Payload.IsSuccess() {
		return nil, rejected(opApplyForJob, res.Service, res.Payload)
	}
	if len(res.Payload.Data) > 0 {
		var stored Application
		if err := decode(opApplyForJob, res.Service, res.Payload, &stored); err != nil {
			return nil, err
		}
		if stored.ID != "" {
			app = &stored
		}
	}

	o.caches.Matches.Invalidate(matchKey(jobID))

	o.log(ctx).Info("application submitted",
		zap.String("job_id", jobID),
		zap.String("application_id", app.ID),
		zap.String("candidate_id", app.CandidateID),
	)

	o.background(ctx, opApplyForJob,
		eventRequest(analyticsEvent{
			Type:        EventJobApplied,
			JobID:       jobID,
			CompanyID:   job.CompanyID,
			CandidateID: app.CandidateID,
			TraceID:     o.traceID(ctx),
			OccurredAt:  app.CreatedAt,
		}),
		notificationRequest(notification{
			Type:          "application.received",
			RecipientID:   job.CompanyID,
			JobID:         jobID,
			JobTitle:      job.Title,
			ApplicationID: app.ID,
			CandidateID:   app.CandidateID,
		}),
	)

	return app, nil
}

// invalidateJob drops the entity, every cached query and the job's matches.
func (o *Orchestrator) invalidateJob(jobID string) {
	o.caches.Jobs.Invalidate(jobKey(jobID))
	o.caches.Queries.InvalidatePrefix(queryKeyPrefix)
	o.caches.Matches.Invalidate(matchKey(jobID))
}
