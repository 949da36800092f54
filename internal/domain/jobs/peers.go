package jobs

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/GriffinCanCode/TalentSphere/backend/internal/domain/matching"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/peer"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/shared/fault"
)

// PeerClient sends one request to a peer service. Implemented by
// *peer.Client.
type PeerClient interface {
	Do(ctx context.Context, req peer.Request) (*peer.Response, error)
}

// Event types sent to the analytics peer.
const (
	EventJobCreated = "job.created"
	EventJobViewed  = "job.viewed"
	EventJobApplied = "job.applied"
)

type analyticsEvent struct {
	Type        string    `json:"type"`
	JobID       string    `json:"job_id"`
	CompanyID   string    `json:"company_id,omitempty"`
	CandidateID string    `json:"candidate_id,omitempty"`
	TraceID     string    `json:"trace_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type notification struct {
	Type          string `json:"type"`
	RecipientID   string `json:"recipient_id"`
	JobID         string `json:"job_id"`
	JobTitle      string `json:"job_title"`
	ApplicationID string `json:"application_id"`
	CandidateID   string `json:"candidate_id"`
}

// candidateHit is one entry returned by the candidate search.
type candidateHit struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type candidateSearch struct {
	Candidates []candidateHit `json:"candidates"`
}

type peerErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func jobPath(id string) string {
	return "/jobs/" + url.PathEscape(id)
}

func getJobRequest(id string) peer.Request {
	return peer.Request{Service: config.PeerJobStore, Method: http.MethodGet, Path: jobPath(id)}
}

func getCompanyRequest(id string) peer.Request {
	return peer.Request{Service: config.PeerCompany, Method: http.MethodGet, Path: "/companies/" + url.PathEscape(id)}
}

func indexJobRequest(job *Job) peer.Request {
	return peer.Request{Service: config.PeerSearch, Method: http.MethodPut, Path: "/index/jobs/" + url.PathEscape(job.ID), Body: job}
}

func unindexJobRequest(id string) peer.Request {
	return peer.Request{Service: config.PeerSearch, Method: http.MethodDelete, Path: "/index/jobs/" + url.PathEscape(id)}
}

func profileRequest(candidateID string) peer.Request {
	return peer.Request{Service: config.PeerUser, Method: http.MethodGet, Path: "/users/" + url.PathEscape(candidateID) + "/profile"}
}

func searchCandidatesRequest(job *Job, limit int) peer.Request {
	q := url.Values{"limit": {fmt.Sprint(limit)}}
	if len(job.Skills) > 0 {
		q["skills"] = job.Skills
	}
	if job.Remote {
		q.Set("remote", "true")
	} else {
		for key, value := range map[string]string{
			"city":    job.Location.City,
			"state":   job.Location.State,
			"country": job.Location.Country,
		} {
			if value != "" {
				q.Set(key, value)
			}
		}
	}
	if job.ExperienceLevel != matching.LevelUnspecified {
		q.Set("level", job.ExperienceLevel.String())
	}
	return peer.Request{Service: config.PeerSearch, Method: http.MethodGet, Path: "/search/candidates", Query: q}
}

func eventRequest(ev analyticsEvent) peer.Request {
	return peer.Request{Service: config.PeerAnalytics, Method: http.MethodPost, Path: "/events", Body: ev}
}

func notificationRequest(n notification) peer.Request {
	return peer.Request{Service: config.PeerNotification, Method: http.MethodPost, Path: "/notifications", Body: n}
}

// unavailable converts a failed guarded call into PeerUnavailable or Timeout.
func unavailable(op, msg string, res resilience.Result[*peer.Response]) error {
	kind := fault.KindPeerUnavailable
	if res.Status == resilience.StatusTimeout {
		kind = fault.KindTimeout
	}
	return &fault.Error{Kind: kind, Op: op, Service: res.Service, Msg: msg, Err: res.Err}
}

// rejected maps a non-2xx peer answer to a fault kind.
func rejected(op, service string, resp *peer.Response) error {
	msg := http.StatusText(resp.Status)
	var body peerErrorBody
	if err := resp.Decode(&body); err == nil {
		if body.Message != "" {
			msg = body.Message
		} else if body.Error != "" {
			msg = body.Error
		}
	}

	var kind fault.Kind
	switch resp.Status {
	case http.StatusNotFound:
		kind = fault.KindNotFound
	case http.StatusConflict:
		kind = fault.KindConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		kind = fault.KindValidationFailed
	default:
		kind = fault.KindInternal
		msg = fmt.Sprintf("unexpected status %d: %s", resp.Status, msg)
	}
	return &fault.Error{Kind: kind, Op: op, Service: service, Msg: msg}
}

// decode unmarshals a 2xx body, reporting malformed payloads as internal.
func decode(op, service string, resp *peer.Response, v any) error {
	if err := resp.Decode(v); err != nil {
		return &fault.Error{Kind: fault.KindInternal, Op: op, Service: service, Msg: "malformed peer response", Err: err}
	}
	return nil
}

func jobCreateRequest(job *Job) peer.Request {
	return peer.Request{Service: config.PeerJobStore, Method: http.MethodPost, Path: "/jobs", Body: job}
}

func jobUpdateRequest(job *Job) peer.Request {
	return peer.Request{Service: config.PeerJobStore, Method: http.MethodPut, Path: jobPath(job.ID), Body: job}
}

func jobDeleteRequest(id string) peer.Request {
	return peer.Request{Service: config.PeerJobStore, Method: http.MethodDelete, Path: jobPath(id)}
}

func applicationRequest(app *Application) peer.Request {
	return peer.Request{Service: config.PeerJobStore, Method: http.MethodPost, Path: "/applications", Body: app}
}

func searchJobsRequest(q SearchQuery) peer.Request {
	return peer.Request{Service: config.PeerSearch, Method: http.MethodGet, Path: "/search/jobs", Query: q.values()}
}
