package jobs

import (
	"time"

	"github.com/GriffinCanCode/TalentSphere/backend/internal/domain/matching"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/shared/fault"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/shared/validate"
)

// Status is the lifecycle state of a job posting.
type Status string

const (
	StatusDraft  Status = "draft"
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

func (s Status) valid() bool {
	switch s {
	case StatusDraft, StatusOpen, StatusClosed:
		return true
	}
	return false
}

// Job is a job posting as stored by the job-store peer.
type Job struct {
	ID              string            `json:"id"`
	CompanyID       string            `json:"company_id"`
	Title           string            `json:"title"`
	Description     string            `json:"description,omitempty"`
	Skills          []string          `json:"skills"`
	ExperienceLevel matching.Level    `json:"experience_level"`
	Location        matching.Location `json:"location"`
	Remote          bool              `json:"remote"`
	EmploymentType  string            `json:"employment_type,omitempty"`
	SalaryMin       int               `json:"salary_min,omitempty"`
	SalaryMax       int               `json:"salary_max,omitempty"`
	Status          Status            `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// forMatching projects the job onto what the matching engine reads.
func (j *Job) forMatching() matching.Job {
	return matching.Job{
		ID:       j.ID,
		Skills:   j.Skills,
		Level:    j.ExperienceLevel,
		Location: j.Location,
		Remote:   j.Remote,
	}
}

func (j *Job) clone() *Job {
	c := *j
	c.Skills = append([]string(nil), j.Skills...)
	return &c
}

// CreateJobInput is the caller-supplied part of a new posting.
type CreateJobInput struct {
	CompanyID       string            `json:"company_id"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Skills          []string          `json:"skills"`
	ExperienceLevel matching.Level    `json:"experience_level"`
	Location        matching.Location `json:"location"`
	Remote          bool              `json:"remote"`
	EmploymentType  string            `json:"employment_type"`
	SalaryMin       int               `json:"salary_min"`
	SalaryMax       int               `json:"salary_max"`
	Status          Status            `json:"status"`
}

// Validate checks required fields and ranges.
func (in *CreateJobInput) Validate() error {
	if err := firstError(
		validate.ID(in.CompanyID, "company_id"),
		validate.Title(in.Title),
		validate.Description(in.Description, "description"),
		validate.Skills(in.Skills),
		validateLocation(in.Location),
	); err != nil {
		return invalid(opCreateJob, err)
	}

	switch {
	case in.SalaryMin < 0 || in.SalaryMax < 0:
		return fault.New(fault.KindValidationFailed, opCreateJob, "salary must not be negative")
	case in.SalaryMax > 0 && in.SalaryMin > in.SalaryMax:
		return fault.New(fault.KindValidationFailed, opCreateJob, "salary_min exceeds salary_max")
	case in.Status != "" && !in.Status.valid():
		return fault.New(fault.KindValidationFailed, opCreateJob, "unknown status "+string(in.Status))
	}
	return nil
}

// UpdateJobInput is a partial update; nil fields are left unchanged.
type UpdateJobInput struct {
	Title           *string            `json:"title,omitempty"`
	Description     *string            `json:"description,omitempty"`
	Skills          []string           `json:"skills,omitempty"`
	ExperienceLevel *matching.Level    `json:"experience_level,omitempty"`
	Location        *matching.Location `json:"location,omitempty"`
	Remote          *bool              `json:"remote,omitempty"`
	EmploymentType  *string            `json:"employment_type,omitempty"`
	SalaryMin       *int               `json:"salary_min,omitempty"`
	SalaryMax       *int               `json:"salary_max,omitempty"`
	Status          *Status            `json:"status,omitempty"`
}

// Validate rejects empty patches and malformed values.
func (in *UpdateJobInput) Validate() error {
	if in.Title == nil && in.Description == nil && in.Skills == nil && in.ExperienceLevel == nil &&
		in.Location == nil && in.Remote == nil && in.EmploymentType == nil &&
		in.SalaryMin == nil && in.SalaryMax == nil && in.Status == nil {
		return fault.New(fault.KindValidationFailed, opUpdateJob, "no fields to update")
	}
	if in.Title != nil {
		if err := validate.Title(*in.Title); err != nil {
			return invalid(opUpdateJob, err)
		}
	}
	if in.Description != nil {
		if err := validate.Description(*in.Description, "description"); err != nil {
			return invalid(opUpdateJob, err)
		}
	}
	if in.Skills != nil {
		if err := validate.Skills(in.Skills); err != nil {
			return invalid(opUpdateJob, err)
		}
	}
	if in.Location != nil {
		if err := validateLocation(*in.Location); err != nil {
			return invalid(opUpdateJob, err)
		}
	}
	if in.Status != nil && !in.Status.valid() {
		return fault.New(fault.KindValidationFailed, opUpdateJob, "unknown status "+string(*in.Status))
	}
	return nil
}

// apply returns a copy of job with the patch applied.
func (in *UpdateJobInput) apply(job *Job) (*Job, error) {
	out := job.clone()
	if in.Title != nil {
		out.Title = *in.Title
	}
	if in.Description != nil {
		out.Description = *in.Description
	}
	if in.Skills != nil {
		out.Skills = append([]string(nil), in.Skills...)
	}
	if in.ExperienceLevel != nil {
		out.ExperienceLevel = *in.ExperienceLevel
	}
	if in.Location != nil {
		out.Location = *in.Location
	}
	if in.Remote != nil {
		out.Remote = *in.Remote
	}
	if in.EmploymentType != nil {
		out.EmploymentType = *in.EmploymentType
	}
	if in.SalaryMin != nil {
		out.SalaryMin = *in.SalaryMin
	}
	if in.SalaryMax != nil {
		out.SalaryMax = *in.SalaryMax
	}
	if in.Status != nil {
		out.Status = *in.Status
	}

	if out.SalaryMin < 0 || out.SalaryMax < 0 || (out.SalaryMax > 0 && out.SalaryMin > out.SalaryMax) {
		return nil, fault.New(fault.KindValidationFailed, opUpdateJob, "invalid salary range")
	}
	return out, nil
}

// SearchResult is one page of job search hits.
type SearchResult struct {
	Jobs     []Job `json:"jobs"`
	Total    int   `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

func (r *SearchResult) clone() *SearchResult {
	c := *r
	c.Jobs = make([]Job, len(r.Jobs))
	for i := range r.Jobs {
		c.Jobs[i] = *r.Jobs[i].clone()
	}
	return &c
}

// ApplicationStatus is the state of an application.
type ApplicationStatus string

const ApplicationSubmitted ApplicationStatus = "submitted"

// ApplicationInput is a candidate's application to a job.
type ApplicationInput struct {
	CandidateID string `json:"candidate_id"`
	CoverLetter string `json:"cover_letter,omitempty"`
	ResumeURL   string `json:"resume_url,omitempty"`
}

// Validate requires a candidate and checks the optional fields.
func (in *ApplicationInput) Validate() error {
	if err := firstError(
		validate.ID(in.CandidateID, "candidate_id"),
		validate.String(in.CoverLetter, "cover_letter", 0, validate.MaxCoverLetterLength, false),
		validate.URL(in.ResumeURL, "resume_url"),
	); err != nil {
		return invalid(opApplyForJob, err)
	}
	return nil
}

func validateLocation(l matching.Location) error {
	return firstError(
		validate.Location(l.City, "location.city"),
		validate.Location(l.State, "location.state"),
		validate.Location(l.Country, "location.country"),
	)
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// invalid classifies a field check failure.
func invalid(op string, err error) error {
	if err == nil {
		return nil
	}
	return &fault.Error{Kind: fault.KindValidationFailed, Op: op, Msg: err.Error()}
}

// Application is a submitted application.
type Application struct {
	ID          string            `json:"id"`
	JobID       string            `json:"job_id"`
	CandidateID string            `json:"candidate_id"`
	CoverLetter string            `json:"cover_letter,omitempty"`
	ResumeURL   string            `json:"resume_url,omitempty"`
	Status      ApplicationStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
}

// CandidateMatch is one scored candidate.
type CandidateMatch struct {
	CandidateID string              `json:"candidate_id"`
	Name        string              `json:"name,omitempty"`
	Score       matching.MatchScore `json:"score"`
}

// Matches is the ranked candidate list for a job.
type Matches struct {
	JobID      string           `json:"job_id"`
	Candidates []CandidateMatch `json:"candidates"`
	Considered int              `json:"considered"`
	Dropped    int              `json:"dropped"`
	ComputedAt time.Time        `json:"computed_at"`
}

func (m *Matches) clone() *Matches {
	c := *m
	c.Candidates = make([]CandidateMatch, len(m.Candidates))
	for i, cm := range m.Candidates {
		cm.Score.Reasons = append([]string(nil), cm.Score.Reasons...)
		c.Candidates[i] = cm
	}
	return &c
}
