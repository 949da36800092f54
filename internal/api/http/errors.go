package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/TalentSphere/backend/internal/domain/jobs"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/domain/matching"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/shared/fault"
)

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind fault.Kind) int {
	switch kind {
	case fault.KindValidationFailed:
		return http.StatusBadRequest
	case fault.KindNotFound:
		return http.StatusNotFound
	case fault.KindConflict:
		return http.StatusConflict
	case fault.KindPeerUnavailable:
		return http.StatusServiceUnavailable
	case fault.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error body and records err on the context for the
// tracing middleware.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	kind := fault.KindOf(err)
	msg := "internal error"
	var fe *fault.Error
	if errors.As(err, &fe) && kind != fault.KindInternal {
		msg = fe.Msg
		if msg == "" {
			msg = kind.String()
		}
	}

	c.AbortWithStatusJSON(StatusFor(kind), gin.H{
		"error":    kind.String(),
		"message":  msg,
		"trace_id": string(tracing.GetTraceID(c.Request.Context())),
	})
}

func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		respondError(c, fault.Wrap(fault.KindValidationFailed, "bind", "malformed request body", err))
		return false
	}
	return true
}

// parseSearchQuery reads GET /jobs parameters. skills may repeat or be comma
// separated.
func parseSearchQuery(c *gin.Context) (jobs.SearchQuery, error) {
	q := jobs.SearchQuery{
		Text:      c.Query("q"),
		Location:  c.Query("location"),
		CompanyID: c.Query("company_id"),
		Status:    jobs.Status(c.Query("status")),
	}

	for _, raw := range c.QueryArray("skills") {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				q.Skills = append(q.Skills, s)
			}
		}
	}

	if raw := c.Query("remote"); raw != "" {
		remote, err := strconv.ParseBool(raw)
		if err != nil {
			return q, invalidParam("remote", raw)
		}
		q.Remote = &remote
	}
	if raw := c.Query("level"); raw != "" {
		level, err := matching.ParseLevel(raw)
		if err != nil {
			return q, invalidParam("level", raw)
		}
		q.Level = level
	}

	var err error
	if q.Page, err = intParam(c, "page"); err != nil {
		return q, err
	}
	if q.PageSize, err = intParam(c, "page_size"); err != nil {
		return q, err
	}
	return q, nil
}

func intParam(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalidParam(name, raw)
	}
	return n, nil
}

func invalidParam(name, value string) error {
	return fault.New(fault.KindValidationFailed, "searchJobs", "invalid "+name+" "+strconv.Quote(value))
}
