package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/zlin-x/scrape-platform/internal/provider"
)

// ErrInvalidRequest marks validation failures caught before any job row is
// written. Wrap it with the concrete reason.
var ErrInvalidRequest = errors.New("invalid request")

const defaultTargetCount = 30

type Service struct {
	repo   *Repo
	client provider.Client
	now    func() time.Time
}

func NewService(repo *Repo, client provider.Client) *Service {
	return &Service{repo: repo, client: client, now: time.Now}
}

type JobResult struct {
	JobID      uint64
	TweetCount int
}

type SearchRequest struct {
	Query      string `json:"query"`
	SearchType string `json:"searchType"`
	Count      int    `json:"count"`
}

type HashtagRequest struct {
	Hashtag    string `json:"hashtag"`
	SearchType string `json:"searchType"`
	Count      int    `json:"count"`
}

type DateRangeRequest struct {
	Query     string `json:"query"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Count     int    `json:"count"`
}

type UserTimelineRequest struct {
	Username  string `json:"username"`
	TweetType string `json:"tweetType"`
	Count     int    `json:"count"`
}

// normalizeCount applies the default when the caller left count out and
// rejects counts that are explicitly non-positive.
func normalizeCount(count int) (int, error) {
	if count == 0 {
		return defaultTargetCount, nil
	}
	if count < 0 {
		return 0, fmt.Errorf("%w: count must be positive", ErrInvalidRequest)
	}
	return count, nil
}

// parseISODate accepts ISO-8601 date or datetime strings; a trailing Z is
// treated as UTC.
func parseISODate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid date format %q", ErrInvalidRequest, s)
}

// SearchTweets runs a keyword search job.
func (s *Service) SearchTweets(ctx context.Context, req SearchRequest) (*JobResult, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidRequest)
	}
	count, err := normalizeCount(req.Count)
	if err != nil {
		return nil, err
	}
	mode := req.SearchType
	if mode == "" {
		mode = provider.ModeLatest
	}

	job, err := s.createJob(ctx, KindKeywordSearch, req.Query, map[string]any{
		"search_type":  mode,
		"target_count": count,
	})
	if err != nil {
		return nil, err
	}

	first := func(ctx context.Context) (*provider.Page, error) {
		return s.client.SearchFirstPage(ctx, req.Query, mode)
	}
	return s.runCollect(ctx, job, count, first)
}

// SearchHashtag runs a hashtag search job. Input with or without a leading #
// normalizes to the same single-# query.
func (s *Service) SearchHashtag(ctx context.Context, req HashtagRequest) (*JobResult, error) {
	if strings.TrimSpace(req.Hashtag) == "" {
		return nil, fmt.Errorf("%w: hashtag is required", ErrInvalidRequest)
	}
	count, err := normalizeCount(req.Count)
	if err != nil {
		return nil, err
	}
	mode := req.SearchType
	if mode == "" {
		mode = provider.ModeLatest
	}

	query := "#" + strings.TrimLeft(req.Hashtag, "#")

	// the stored job_type keeps the top/latest distinction
	kind := KindHashtagLatest
	if mode == provider.ModeTop {
		kind = KindHashtagTop
	}

	job, err := s.createJob(ctx, kind, query, map[string]any{
		"search_type":  mode,
		"target_count": count,
	})
	if err != nil {
		return nil, err
	}

	first := func(ctx context.Context) (*provider.Page, error) {
		return s.client.SearchFirstPage(ctx, query, mode)
	}
	return s.runCollect(ctx, job, count, first)
}

// SearchDateRange runs a bounded-window search job. The window is folded
// into the query string and the fetch mode is always Latest, whatever the
// caller asked for.
func (s *Service) SearchDateRange(ctx context.Context, req DateRangeRequest) (*JobResult, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidRequest)
	}
	if req.StartDate == "" || req.EndDate == "" {
		return nil, fmt.Errorf("%w: startDate and endDate are required", ErrInvalidRequest)
	}
	count, err := normalizeCount(req.Count)
	if err != nil {
		return nil, err
	}

	start, err := parseISODate(req.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseISODate(req.EndDate)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("%s since:%s until:%s",
		req.Query, start.Format("2006-01-02"), end.Format("2006-01-02"))

	job, err := s.createJob(ctx, KindDateRangeSearch, query, map[string]any{
		"start_date":   req.StartDate,
		"end_date":     req.EndDate,
		"target_count": count,
	})
	if err != nil {
		return nil, err
	}

	first := func(ctx context.Context) (*provider.Page, error) {
		return s.client.SearchFirstPage(ctx, query, provider.ModeLatest)
	}
	return s.runCollect(ctx, job, count, first)
}

// FetchUserTimeline runs a user-timeline job. The screen name resolves to a
// provider user id after the job row exists, so a resolution failure shows
// up as a FAILED job with zero tweets.
func (s *Service) FetchUserTimeline(ctx context.Context, req UserTimelineRequest) (*JobResult, error) {
	if strings.TrimSpace(req.Username) == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidRequest)
	}
	count, err := normalizeCount(req.Count)
	if err != nil {
		return nil, err
	}
	kind := req.TweetType
	if kind == "" {
		kind = provider.TimelineTweets
	}

	job, err := s.createJob(ctx, KindUserTimeline, req.Username, map[string]any{
		"tweet_type":   kind,
		"target_count": count,
	})
	if err != nil {
		return nil, err
	}

	user, err := s.client.ResolveUser(ctx, req.Username)
	if err != nil {
		s.failJob(ctx, job.ID, 0)
		return nil, err
	}

	first := func(ctx context.Context) (*provider.Page, error) {
		return s.client.UserTimelineFirstPage(ctx, user.ID, kind)
	}
	return s.runCollect(ctx, job, count, first)
}

// createJob initializes the provider session and then writes the RUNNING
// job row. A client that cannot start fails here, before any record exists.
func (s *Service) createJob(ctx context.Context, kind JobKind, query string, params map[string]any) (*Job, error) {
	if err := s.client.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize provider client: %w", err)
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode parameters: %w", err)
	}
	job := &Job{
		Kind:       kind,
		Query:      query,
		Parameters: string(raw),
		StartTime:  s.now(),
		Status:     JobRunning,
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// runCollect executes the pagination loop for an already-created job and
// finalizes it exactly once. Tweets stored before a mid-run failure stay
// stored.
func (s *Service) runCollect(ctx context.Context, job *Job, targetCount int, first FetchFirst) (*JobResult, error) {
	sink := func(ctx context.Context, tweets []provider.Tweet) (int, error) {
		return s.repo.UpsertTweets(ctx, job.ID, tweets)
	}

	total, _, err := Collect(ctx, first, s.client.NextPage, targetCount, sink)
	if err != nil {
		s.failJob(ctx, job.ID, total)
		return nil, err
	}

	if err := s.repo.FinalizeJob(ctx, job.ID, JobCompleted, total); err != nil {
		s.failJob(ctx, job.ID, total)
		return nil, err
	}
	return &JobResult{JobID: job.ID, TweetCount: total}, nil
}

// failJob is best effort: if the terminal write itself fails the job row is
// left RUNNING, which is a known operational gap, not something to mask.
func (s *Service) failJob(ctx context.Context, jobID uint64, tweetCount int) {
	if err := s.repo.FinalizeJob(ctx, jobID, JobFailed, tweetCount); err != nil {
		log.Printf("finalize_failed job=%d err=%v", jobID, err)
	}
}

// ListJobs returns formatted job records, most recent first.
func (s *Service) ListJobs(ctx context.Context) ([]JobView, error) {
	jobs, err := s.repo.ListJobs(ctx)
	if err != nil {
		return nil, err
	}
	return FormatJobs(jobs), nil
}

// GetJobWithTweets returns one formatted job and its tweets, newest first.
func (s *Service) GetJobWithTweets(ctx context.Context, jobID uint64) (*JobView, []TweetView, error) {
	job, tweets, err := s.repo.GetJobWithTweets(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	jv := FormatJob(*job)
	return &jv, FormatTweets(tweets), nil
}
