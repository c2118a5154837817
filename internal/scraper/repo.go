package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zlin-x/scrape-platform/internal/provider"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// CreateJob inserts a new RUNNING job row; the store assigns the id.
func (r *Repo) CreateJob(ctx context.Context, job *Job) error {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// FinalizeJob moves a RUNNING job to its terminal state. A job that already
// left RUNNING matches no row, so a repeated finalize is a no-op.
func (r *Repo) FinalizeJob(ctx context.Context, jobID uint64, status JobStatus, tweetCount int) error {
	now := time.Now()
	err := r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status = ?", jobID, JobRunning).
		Updates(map[string]any{
			"status":      status,
			"end_time":    now,
			"tweet_count": tweetCount,
		}).Error
	if err != nil {
		return fmt.Errorf("finalize job %d: %w", jobID, err)
	}
	return nil
}

// tweetColumnsOnConflict are the mutable fields refreshed when a tweet id is
// seen again. indexed_at and created_at are deliberately absent: first-seen
// time and publication time stay as originally written.
var tweetColumnsOnConflict = []string{
	"job_id", "user_name", "text",
	"reply_count", "retweet_count", "bookmark_count",
	"hashtags", "raw_data",
}

// UpsertTweets writes one page of provider tweets under jobID and returns
// the number of tweets processed (not the number of distinct rows inserted).
func (r *Repo) UpsertTweets(ctx context.Context, jobID uint64, tweets []provider.Tweet) (int, error) {
	if len(tweets) == 0 {
		return 0, nil
	}

	now := time.Now()
	rows := make([]Tweet, 0, len(tweets))
	for _, t := range tweets {
		rows = append(rows, newTweetRow(jobID, t, now))
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(tweetColumnsOnConflict),
		}).
		Create(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("upsert tweets: %w", err)
	}
	return len(tweets), nil
}

func newTweetRow(jobID uint64, t provider.Tweet, now time.Time) Tweet {
	tags, err := json.Marshal(ExtractHashtags(t.Text))
	if err != nil {
		tags = []byte("[]")
	}

	raw := t.Raw
	if raw == nil {
		// Provider gave no payload; keep a minimal snapshot so raw_data
		// is still useful downstream.
		raw = map[string]any{
			"id":             t.ID,
			"text":           t.Text,
			"user_name":      t.UserName,
			"user_id":        t.UserID,
			"reply_count":    t.ReplyCount,
			"retweet_count":  t.RetweetCount,
			"bookmark_count": t.BookmarkCount,
		}
	}
	rawJSON, err := json.Marshal(raw)
	if err != nil {
		rawJSON = []byte("{}")
	}

	return Tweet{
		ID:            t.ID,
		JobID:         jobID,
		UserName:      t.UserName,
		UserID:        t.UserID,
		Text:          t.Text,
		PostedAt:      t.CreatedAt,
		ReplyCount:    t.ReplyCount,
		RetweetCount:  t.RetweetCount,
		BookmarkCount: t.BookmarkCount,
		Hashtags:      string(tags),
		RawData:       string(rawJSON),
		IndexedAt:     now,
	}
}

// ListJobs returns every job, most recent first.
func (r *Repo) ListJobs(ctx context.Context) ([]Job, error) {
	var jobs []Job
	if err := r.db.WithContext(ctx).Order("id DESC").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// GetJob returns a single job row, or gorm.ErrRecordNotFound.
func (r *Repo) GetJob(ctx context.Context, jobID uint64) (*Job, error) {
	var job Job
	if err := r.db.WithContext(ctx).First(&job, "id = ?", jobID).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// GetJobWithTweets returns a job and its tweets, newest publication first.
func (r *Repo) GetJobWithTweets(ctx context.Context, jobID uint64) (*Job, []Tweet, error) {
	job, err := r.GetJob(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}

	var tweets []Tweet
	err = r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at DESC").
		Find(&tweets).Error
	if err != nil {
		return nil, nil, fmt.Errorf("list tweets for job %d: %w", jobID, err)
	}
	return job, tweets, nil
}
