package jobs

import (
	"slices"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/TalentSphere/backend/internal/domain/matching"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/shared/fault"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// SearchQuery filters job postings.
type SearchQuery struct {
	Text      string         `json:"q,omitempty"`
	Skills    []string       `json:"skills,omitempty"`
	Location  string         `json:"location,omitempty"`
	Remote    *bool          `json:"remote,omitempty"`
	Level     matching.Level `json:"level,omitempty"`
	CompanyID string         `json:"company_id,omitempty"`
	Status    Status         `json:"status,omitempty"`
	Page      int            `json:"page"`
	PageSize  int            `json:"page_size"`
}

// normalize returns the canonical form of q: trimmed, lower-cased skills in
// sorted order without duplicates, and paging defaults applied. Queries that
// differ only in these respects share a cache key.
func (q SearchQuery) normalize() (SearchQuery, error) {
	if q.Page < 0 || q.PageSize < 0 {
		return q, fault.New(fault.KindValidationFailed, opSearchJobs, "page and page_size must not be negative")
	}
	if q.PageSize > maxPageSize {
		return q, fault.New(fault.KindValidationFailed, opSearchJobs, "page_size exceeds "+strconv.Itoa(maxPageSize))
	}
	if q.Status != "" && !q.Status.valid() {
		return q, fault.New(fault.KindValidationFailed, opSearchJobs, "unknown status "+string(q.Status))
	}

	out := q
	out.Text = strings.TrimSpace(q.Text)
	out.Location = strings.TrimSpace(q.Location)
	out.CompanyID = strings.TrimSpace(q.CompanyID)
	if out.Page == 0 {
		out.Page = 1
	}
	if out.PageSize == 0 {
		out.PageSize = defaultPageSize
	}

	skills := make([]string, 0, len(q.Skills))
	for _, s := range q.Skills {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			skills = append(skills, s)
		}
	}
	slices.Sort(skills)
	out.Skills = slices.Compact(skills)
	if len(out.Skills) == 0 {
		out.Skills = nil
	}
	return out, nil
}

// cacheKey is the query-cache key of a normalized query.
func (q SearchQuery) cacheKey() (string, error) {
	data, err := sonic.ConfigStd.Marshal(q)
	if err != nil {
		return "", err
	}
	return queryKeyPrefix + string(data), nil
}

// values encodes q for the search peer.
func (q SearchQuery) values() map[string][]string {
	v := map[string][]string{
		"page":      {strconv.Itoa(q.Page)},
		"page_size": {strconv.Itoa(q.PageSize)},
	}
	if q.Text != "" {
		v["q"] = []string{q.Text}
	}
	if len(q.Skills) > 0 {
		v["skills"] = q.Skills
	}
	if q.Location != "" {
		v["location"] = []string{q.Location}
	}
	if q.Remote != nil {
		v["remote"] = []string{strconv.FormatBool(*q.Remote)}
	}
	if q.Level != matching.LevelUnspecified {
		v["level"] = []string{q.Level.String()}
	}
	if q.CompanyID != "" {
		v["company_id"] = []string{q.CompanyID}
	}
	if q.Status != "" {
		v["status"] = []string{string(q.Status)}
	}
	return v
}
