// Package matching scores how well a candidate fits a job.
//
// Score is a pure function of its inputs, the scoring time included: the same
// job, candidate and asOf always produce the same MatchScore.
package matching

import (
	"fmt"
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Component maxima.
const (
	MaxSkills     = 40.0
	MaxExperience = 25.0
	MaxLocation   = 20.0
	MaxEngagement = 15.0

	compatibleExperience = 15.0
)

// Engagement signal parameters.
const (
	recentWindow       = 7 * 24 * time.Hour
	staleAfter         = 90 * 24 * time.Hour
	viewsSaturation    = 50.0
	appliesSaturation  = 10.0
	yearDuration       = 365.25 * 24 * time.Hour
	growthReason       = "Growth potential: could develop the required skills"
	remoteReason       = "Remote position, location is not a constraint"
	locationReasonTmpl = "Location compatible (%s)"
)

// engagementWeights are applied to (recency, views, applications).
var engagementWeights = []float64{0.5, 0.3, 0.2}

// Score rates candidate against job as of asOf.
func Score(job Job, candidate Candidate, asOf time.Time) MatchScore {
	var (
		comps   Components
		reasons []string
	)

	skills, matched, required := skillScore(job.Skills, candidate.Skills)
	comps.Skills = skills
	if matched > 0 {
		reasons = append(reasons, fmt.Sprintf("Matches %d of %d required skills", matched, required))
	} else {
		reasons = append(reasons, growthReason)
	}

	level := InferLevel(candidate.WorkHistory, asOf)
	comps.Experience = experienceScore(job.Level, level)
	switch comps.Experience {
	case MaxExperience:
		reasons = append(reasons, fmt.Sprintf("Experience level matches (%s)", level))
	case compatibleExperience:
		reasons = append(reasons, fmt.Sprintf("Experience level compatible (%s for a %s role)", level, job.Level))
	}

	var where string
	comps.Location, where = locationScore(job, candidate.Location)
	if comps.Location > 0 {
		if job.Remote {
			reasons = append(reasons, remoteReason)
		} else {
			reasons = append(reasons, fmt.Sprintf(locationReasonTmpl, where))
		}
	}

	comps.Engagement = engagementScore(candidate.Engagement, asOf)

	total := int(math.Round(comps.Sum()))
	total = min(max(total, 0), 100)

	return MatchScore{
		Components: comps,
		Total:      total,
		Reasons:    reasons,
	}
}

// skillScore returns the skills component and how many of the job's skills
// appear as a case-insensitive substring of some candidate skill.
func skillScore(jobSkills, candidateSkills []string) (score float64, matched, required int) {
	have := make([]string, 0, len(candidateSkills))
	for _, s := range candidateSkills {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			have = append(have, s)
		}
	}

	for _, want := range jobSkills {
		want = strings.ToLower(strings.TrimSpace(want))
		if want == "" {
			continue
		}
		required++
		for _, h := range have {
			if strings.Contains(h, want) {
				matched++
				break
			}
		}
	}

	if required == 0 {
		return 0, 0, 0
	}
	return float64(matched) / float64(required) * MaxSkills, matched, required
}

func experienceScore(want, have Level) float64 {
	switch {
	case want == LevelUnspecified || have == LevelUnspecified:
		return 0
	case have == want:
		return MaxExperience
	case have == want-1:
		return compatibleExperience
	default:
		return 0
	}
}

// locationScore returns the location component and the matched place.
func locationScore(job Job, where Location) (float64, string) {
	if job.Remote {
		return MaxLocation, "remote"
	}
	pairs := [][2]string{
		{job.Location.City, where.City},
		{job.Location.State, where.State},
		{job.Location.Country, where.Country},
	}
	for _, p := range pairs {
		a, b := strings.TrimSpace(p[0]), strings.TrimSpace(p[1])
		if a != "" && strings.EqualFold(a, b) {
			return MaxLocation, a
		}
	}
	return 0, ""
}

// engagementScore is MaxEngagement times the weighted mean of three signals
// in [0,1]: recency, profile views and applications.
func engagementScore(e Engagement, asOf time.Time) float64 {
	signals := []float64{
		recency(e.LastActiveAt, asOf),
		math.Min(float64(max(e.ProfileViews, 0))/viewsSaturation, 1),
		math.Min(float64(max(e.Applications, 0))/appliesSaturation, 1),
	}
	return MaxEngagement * floats.Dot(engagementWeights, signals)
}

// recency is 1 inside the recent window and decays linearly to 0 at
// staleAfter. An unknown last activity counts as stale.
func recency(last, asOf time.Time) float64 {
	if last.IsZero() {
		return 0
	}
	idle := asOf.Sub(last)
	switch {
	case idle <= recentWindow:
		return 1
	case idle >= staleAfter:
		return 0
	default:
		return 1 - float64(idle-recentWindow)/float64(staleAfter-recentWindow)
	}
}

// YearsOfExperience sums the durations of history. Current positions and
// positions without an end run until asOf; negative spans count as zero.
func YearsOfExperience(history []WorkEntry, asOf time.Time) float64 {
	var total time.Duration
	for _, w := range history {
		if w.Start.IsZero() {
			continue
		}
		end := w.End
		if w.Current || end.IsZero() {
			end = asOf
		}
		if d := end.Sub(w.Start); d > 0 {
			total += d
		}
	}
	return float64(total) / float64(yearDuration)
}

// InferLevel maps total years to a level: under 3 entry, under 7 mid,
// under 10 senior, otherwise executive.
func InferLevel(history []WorkEntry, asOf time.Time) Level {
	years := YearsOfExperience(history, asOf)
	switch {
	case years < 3:
		return LevelEntry
	case years < 7:
		return LevelMid
	case years < 10:
		return LevelSenior
	default:
		return LevelExecutive
	}
}
