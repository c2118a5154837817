package provider

import (
	"context"
	"errors"
	"time"
)

// ErrUserNotFound is returned by ResolveUser when the screen name does not
// resolve to any account.
var ErrUserNotFound = errors.New("provider: user not found")

// Fetch modes accepted by the search endpoints.
const (
	ModeLatest = "Latest"
	ModeTop    = "Top"
)

// Timeline kinds accepted by the user-timeline endpoint.
const (
	TimelineTweets  = "Tweets"
	TimelineReplies = "Replies"
	TimelineMedia   = "Media"
	TimelineLikes   = "Likes"
)

// Logical endpoint names the provider publishes rate-limit budgets under.
const (
	EndpointSearch      = "SearchTimeline"
	EndpointUserTweets  = "UserTweets"
	EndpointUserReplies = "UserTweetsAndReplies"
	EndpointUserMedia   = "UserMedia"
	EndpointUserLikes   = "Likes"
)

// RecordFetch observes one page fetch against a logical endpoint. Hooks must
// not block the fetch path.
type RecordFetch func(ctx context.Context, endpoint string)

func timelineEndpoint(kind string) string {
	switch kind {
	case TimelineReplies:
		return EndpointUserReplies
	case TimelineMedia:
		return EndpointUserMedia
	case TimelineLikes:
		return EndpointUserLikes
	default:
		return EndpointUserTweets
	}
}

// Tweet is a single post as delivered by the provider.
type Tweet struct {
	ID            string
	Text          string
	UserName      string
	UserID        string
	CreatedAt     *time.Time
	ReplyCount    int
	RetweetCount  int
	BookmarkCount int
	Raw           map[string]any
}

// User is a resolved provider account.
type User struct {
	ID         string
	ScreenName string
	Name       string
}

type pageSource int

const (
	pageSearch pageSource = iota
	pageUserTimeline
)

// Page is one batch of tweets plus the continuation state needed to request
// the batch after it. A nil page, or a page with no tweets, signals that the
// provider has nothing further.
type Page struct {
	Tweets []Tweet

	cursor   string
	source   pageSource
	query    string
	mode     string
	userID   string
	timeline string
}

// HasNext reports whether the provider handed back a continuation cursor.
func (p *Page) HasNext() bool {
	return p != nil && p.cursor != ""
}

// Client is the paginated-fetch capability the job engine consumes.
// Implementations own authentication, query translation and rate limiting.
type Client interface {
	// Initialize prepares the session. It runs before any job record is
	// written, so a client that cannot start never leaves a job behind.
	Initialize(ctx context.Context) error
	SearchFirstPage(ctx context.Context, query, mode string) (*Page, error)
	UserTimelineFirstPage(ctx context.Context, userID, timelineKind string) (*Page, error)
	NextPage(ctx context.Context, prev *Page) (*Page, error)
	ResolveUser(ctx context.Context, screenName string) (*User, error)
}
