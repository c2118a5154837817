package scraper

import "time"

type JobKind string

const (
	KindKeywordSearch   JobKind = "SEARCH_TWEETS"
	KindHashtagTop      JobKind = "HASHTAG_TOP_TWEETS"
	KindHashtagLatest   JobKind = "HASHTAG_LATEST_TWEETS"
	KindDateRangeSearch JobKind = "DATE_RANGE_TWEETS"
	KindUserTimeline    JobKind = "USER_TWEETS"
)

type JobStatus string

const (
	JobRunning   JobStatus = "RUNNING"
	JobCompleted JobStatus = "COMPLETED"
	JobFailed    JobStatus = "FAILED"
)

// Job is one scrape invocation. EndTime is set exactly when the job reaches
// a terminal status; TweetCount only grows while the job is RUNNING.
type Job struct {
	ID   uint64  `gorm:"primaryKey;autoIncrement" json:"job_id"`
	Kind JobKind `gorm:"column:job_type;type:varchar(50);not null;index" json:"job_type"`

	Query string `gorm:"type:varchar(255);not null" json:"query"`

	// Serialized request parameters, stored verbatim and rehydrated on read.
	Parameters string `gorm:"type:json" json:"-"`

	StartTime  time.Time  `gorm:"not null" json:"start_time"`
	EndTime    *time.Time `json:"end_time"`
	Status     JobStatus  `gorm:"type:varchar(20);not null;index" json:"status"`
	TweetCount int        `gorm:"default:0" json:"tweet_count"`

	CreatedAt time.Time `json:"created_at"`
}

func (Job) TableName() string { return "scraping_jobs" }

// Tweet is a stored post. The provider-assigned ID is the upsert key; JobID
// points at whichever job wrote the row most recently. IndexedAt is set on
// first insert and never touched again.
type Tweet struct {
	ID    string `gorm:"primaryKey;type:varchar(255)" json:"id"`
	JobID uint64 `gorm:"index;not null" json:"job_id"`

	UserName string `gorm:"type:varchar(255)" json:"user_name"`
	UserID   string `gorm:"type:varchar(255)" json:"user_id"`
	Text     string `gorm:"type:text" json:"text"`

	// Publication time on the provider side, indexed for chronological reads.
	PostedAt *time.Time `gorm:"column:created_at;index" json:"created_at"`

	ReplyCount    int `gorm:"default:0" json:"reply_count"`
	RetweetCount  int `gorm:"default:0" json:"retweet_count"`
	BookmarkCount int `gorm:"default:0" json:"bookmark_count"`

	// Serialized JSON, rehydrated by the formatter.
	Hashtags string `gorm:"type:json" json:"-"`
	RawData  string `gorm:"type:json" json:"-"`

	IndexedAt time.Time `gorm:"not null" json:"indexed_at"`
}

func (Tweet) TableName() string { return "tweets" }
