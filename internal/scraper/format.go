package scraper

import (
	"encoding/json"
	"time"
)

// JobView is a job record in the external response shape: RFC3339 dates and
// parameters rehydrated into a nested object.
type JobView struct {
	JobID      uint64         `json:"job_id"`
	JobType    JobKind        `json:"job_type"`
	Query      string         `json:"query"`
	Parameters map[string]any `json:"parameters"`
	StartTime  string         `json:"start_time"`
	EndTime    *string        `json:"end_time"`
	Status     JobStatus      `json:"status"`
	TweetCount int            `json:"tweet_count"`
	CreatedAt  string         `json:"created_at"`
}

// TweetView is a stored tweet in the external response shape.
type TweetView struct {
	ID            string         `json:"id"`
	JobID         uint64         `json:"job_id"`
	UserName      string         `json:"user_name"`
	UserID        string         `json:"user_id"`
	Text          string         `json:"text"`
	CreatedAt     *string        `json:"created_at"`
	ReplyCount    int            `json:"reply_count"`
	RetweetCount  int            `json:"retweet_count"`
	BookmarkCount int            `json:"bookmark_count"`
	Hashtags      []string       `json:"hashtags"`
	RawData       map[string]any `json:"raw_data"`
	IndexedAt     string         `json:"indexed_at"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// decodeObject rehydrates a stored JSON object; anything malformed degrades
// to an empty map rather than an error.
func decodeObject(raw string) map[string]any {
	out := map[string]any{}
	if raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return map[string]any{}
	}
	return out
}

// decodeStrings rehydrates a stored JSON string array, degrading to empty.
func decodeStrings(raw string) []string {
	out := []string{}
	if raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return []string{}
	}
	if out == nil {
		return []string{}
	}
	return out
}

func FormatJob(j Job) JobView {
	return JobView{
		JobID:      j.ID,
		JobType:    j.Kind,
		Query:      j.Query,
		Parameters: decodeObject(j.Parameters),
		StartTime:  formatTime(j.StartTime),
		EndTime:    formatTimePtr(j.EndTime),
		Status:     j.Status,
		TweetCount: j.TweetCount,
		CreatedAt:  formatTime(j.CreatedAt),
	}
}

func FormatJobs(jobs []Job) []JobView {
	out := make([]JobView, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, FormatJob(j))
	}
	return out
}

func FormatTweet(t Tweet) TweetView {
	return TweetView{
		ID:            t.ID,
		JobID:         t.JobID,
		UserName:      t.UserName,
		UserID:        t.UserID,
		Text:          t.Text,
		CreatedAt:     formatTimePtr(t.PostedAt),
		ReplyCount:    t.ReplyCount,
		RetweetCount:  t.RetweetCount,
		BookmarkCount: t.BookmarkCount,
		Hashtags:      decodeStrings(t.Hashtags),
		RawData:       decodeObject(t.RawData),
		IndexedAt:     formatTime(t.IndexedAt),
	}
}

func FormatTweets(tweets []Tweet) []TweetView {
	out := make([]TweetView, 0, len(tweets))
	for _, t := range tweets {
		out = append(out, FormatTweet(t))
	}
	return out
}
