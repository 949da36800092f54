package jobs

import (
	"cmp"
	"context"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/TalentSphere/backend/internal/domain/matching"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/peer"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/shared/fault"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/shared/validate"
)

// FindJobMatches ranks candidates for a job. The candidate search must
// succeed; a candidate whose profile cannot be fetched is dropped with a
// warning and the rest are still scored. A ranking that lost candidates to
// an unavailable peer is returned but not cached.
func (o *Orchestrator) FindJobMatches(ctx context.Context, jobID string) (_ *Matches, err error) {
	ctx, op := o.begin(ctx, opFindJobMatches)
	defer o.end(op, &err)

	if err := validate.ID(jobID, "job_id"); err != nil {
		return nil, invalid(opFindJobMatches, err)
	}
	o.recorder.Tag(op.span, "job.id", jobID)

	if cached, ok := o.caches.Matches.Get(matchKey(jobID)); ok {
		o.recorder.Tag(op.span, "cache", "hit")
		return cached.clone(), nil
	}
	o.recorder.Tag(op.span, "cache", "miss")

	job, err := o.resolveJob(ctx, opFindJobMatches, jobID)
	if err != nil {
		return nil, err
	}

	hits, err := o.searchCandidates(ctx, job)
	if err != nil {
		return nil, err
	}

	candidates, transient := o.enrich(ctx, hits)
	asOf := o.opts.Now().UTC()
	target := job.forMatching()

	ranked := make([]CandidateMatch, 0, len(candidates))
	for _, c := range candidates {
		score := matching.Score(target, c, asOf)
		o.metrics.ObserveMatchScore(score.Total)
		ranked = append(ranked, CandidateMatch{CandidateID: c.ID, Name: c.Name, Score: score})
	}
	slices.SortFunc(ranked, func(a, b CandidateMatch) int {
		if c := cmp.Compare(b.Score.Total, a.Score.Total); c != 0 {
			return c
		}
		return strings.Compare(a.CandidateID, b.CandidateID)
	})

	result := &Matches{
		JobID:      jobID,
		Candidates: ranked,
		Considered: len(hits),
		Dropped:    len(hits) - len(ranked),
		ComputedAt: asOf,
	}
	if transient == 0 {
		o.caches.Matches.SetDefault(matchKey(jobID), result.clone())
	}

	o.log(ctx).Info("matches computed",
		zap.String("job_id", jobID),
		zap.Int("considered", result.Considered),
		zap.Int("dropped", result.Dropped),
		zap.Bool("cached", transient == 0),
	)
	return result, nil
}

// searchCandidates asks the search peer for up to CandidateLimit candidates.
func (o *Orchestrator) searchCandidates(ctx context.Context, job *Job) ([]candidateHit, error) {
	res := o.call(ctx, searchCandidatesRequest(job, o.opts.CandidateLimit))
	if !res.OK() {
		return nil, unavailable(opFindJobMatches, "matching unavailable", res)
	}
	if !res.Payload.IsSuccess() {
		return nil, &fault.Error{
			Kind:    fault.KindPeerUnavailable,
			Op:      opFindJobMatches,
			Service: res.Service,
			Msg:     "matching unavailable",
			Err:     rejected(opFindJobMatches, res.Service, res.Payload),
		}
	}

	var found candidateSearch
	if err := decode(opFindJobMatches, res.Service, res.Payload, &found); err != nil {
		return nil, err
	}

	hits := make([]candidateHit, 0, len(found.Candidates))
	seen := make(map[string]struct{}, len(found.Candidates))
	for _, h := range found.Candidates {
		if h.ID == "" {
			continue
		}
		if _, dup := seen[h.ID]; dup {
			continue
		}
		seen[h.ID] = struct{}{}
		hits = append(hits, h)
	}
	if len(hits) > o.opts.CandidateLimit {
		hits = hits[:o.opts.CandidateLimit]
	}
	return hits, nil
}

// profileFetch is one attempt at a candidate profile.
type profileFetch struct {
	candidate *matching.Candidate
	err       error
	retry     bool
}

// enrich fetches every profile concurrently and returns them in hit order,
// omitting candidates whose fetch failed. Each round makes a single attempt
// per pending candidate, so every candidate gets its first attempt before
// any retry; only failed or timed-out fetches go into the next round.
// transient counts the candidates lost to an unavailable peer.
func (o *Orchestrator) enrich(ctx context.Context, hits []candidateHit) (_ []matching.Candidate, transient int) {
	fetches := make([]profileFetch, len(hits))
	pending := make([]int, len(hits))
	for i := range hits {
		pending[i] = i
	}

	attempts := o.retrier.Policy().MaxRetries
	for attempt := 1; attempt <= attempts && len(pending) > 0; attempt++ {
		if attempt > 1 {
			if err := o.retrier.Wait(ctx, attempt); err != nil {
				break
			}
		}

		// Workers never return an error so one failure cannot cancel the rest.
		var g errgroup.Group
		g.SetLimit(o.opts.EnrichConcurrency)
		for _, i := range pending {
			g.Go(func() error {
				fetches[i] = o.fetchProfile(ctx, hits[i], attempt)
				return nil
			})
		}
		_ = g.Wait()

		var next []int
		for _, i := range pending {
			if fetches[i].retry {
				next = append(next, i)
			}
		}
		pending = next
	}

	out := make([]matching.Candidate, 0, len(hits))
	for i, f := range fetches {
		if f.candidate != nil {
			out = append(out, *f.candidate)
			continue
		}

		kind := fault.KindOf(f.err)
		if kind == fault.KindPeerUnavailable || kind == fault.KindTimeout {
			transient++
		}
		o.metrics.IncEnrichmentDropped(kind.String())
		o.log(ctx).Warn("dropping candidate",
			zap.String("candidate_id", hits[i].ID),
			zap.String("kind", kind.String()),
			zap.Error(f.err),
		)
	}
	return out, transient
}

func (o *Orchestrator) fetchProfile(ctx context.Context, hit candidateHit, attempt int) profileFetch {
	span, ctx := o.recorder.StartSpan(ctx, "profile.enrich")
	o.recorder.Tag(span, "candidate_id", hit.ID)
	o.recorder.Tag(span, "attempt", strconv.Itoa(attempt))
	defer o.recorder.Finish(span)

	req := profileRequest(hit.ID)
	res := resilience.CallWithPolicy(ctx, o.retrier, req.Service, resilience.RetryPolicy{MaxRetries: 1}, func(ctx context.Context) (*peer.Response, error) {
		return o.peers.Do(ctx, req)
	})

	var f profileFetch
	switch {
	case !res.OK():
		f.err = unavailable(opFindJobMatches, "profile unavailable", res)
		f.retry = (res.Status == resilience.StatusFailed || res.Status == resilience.StatusTimeout) && ctx.Err() == nil
	case !res.Payload.IsSuccess():
		f.err = rejected(opFindJobMatches, res.Service, res.Payload)
	default:
		var c matching.Candidate
		if f.err = decode(opFindJobMatches, res.Service, res.Payload, &c); f.err == nil {
			if c.ID == "" {
				c.ID = hit.ID
			}
			if c.Name == "" {
				c.Name = hit.Name
			}
			f.candidate = &c
			return f
		}
	}

	o.recorder.LogError(span, f.err)
	return f
}
