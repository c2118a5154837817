package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// TwitterClient talks to the provider's internal JSON API using a session
// cookie pair. It is the only piece of the system that knows about wire
// formats, endpoints and cursors; the engine sees Pages.
type TwitterClient struct {
	BaseURL   string
	AuthToken string
	CSRFToken string
	Client    *http.Client

	// Record, when set, is fired once per page fetch with the endpoint the
	// fetch consumes. Usage tracking hangs off this hook.
	Record RecordFetch
}

func NewTwitterClient(baseURL, authToken, csrfToken string) *TwitterClient {
	if baseURL == "" {
		baseURL = "https://api.twitter.com"
	}
	return &TwitterClient{
		BaseURL:   baseURL,
		AuthToken: authToken,
		CSRFToken: csrfToken,
		Client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Initialize checks that a session cookie pair is present. No network call:
// the tokens are only provable against the live API, and the first page
// fetch will reject them soon enough.
func (c *TwitterClient) Initialize(ctx context.Context) error {
	if c.AuthToken == "" || c.CSRFToken == "" {
		return errors.New("twitter: missing auth_token/ct0 credentials")
	}
	return nil
}

type wireTweet struct {
	ID            string `json:"id_str"`
	Text          string `json:"full_text"`
	CreatedAt     string `json:"created_at"`
	ReplyCount    int    `json:"reply_count"`
	RetweetCount  int    `json:"retweet_count"`
	BookmarkCount int    `json:"bookmark_count"`
	User          struct {
		ID         string `json:"id_str"`
		Name       string `json:"name"`
		ScreenName string `json:"screen_name"`
	} `json:"user"`
}

type wireTimeline struct {
	Tweets     []json.RawMessage `json:"tweets"`
	NextCursor string            `json:"next_cursor"`
	Errors     []struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"errors"`
}

// createdAtLayout is the provider's legacy timestamp format.
const createdAtLayout = "Mon Jan 02 15:04:05 -0700 2006"

func (c *TwitterClient) get(ctx context.Context, endpoint, path string, q url.Values) (*wireTimeline, error) {
	if c.Client == nil {
		return nil, errors.New("twitter: http client is nil")
	}
	if c.Record != nil {
		c.Record(ctx, endpoint)
	}

	u := fmt.Sprintf("%s%s?%s", c.BaseURL, path, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	req.Header.Set("X-Csrf-Token", c.CSRFToken)
	req.Header.Set("Cookie", fmt.Sprintf("auth_token=%s; ct0=%s", c.AuthToken, c.CSRFToken))

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("twitter: auth rejected (status %d)", resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("twitter: rate limited (status %d)", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("twitter: status %d", resp.StatusCode)
	}

	var decoded wireTimeline
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}
	if len(decoded.Errors) > 0 {
		return nil, fmt.Errorf("twitter: %s (code %d)", decoded.Errors[0].Message, decoded.Errors[0].Code)
	}
	return &decoded, nil
}

func decodeTweets(raws []json.RawMessage) []Tweet {
	out := make([]Tweet, 0, len(raws))
	for _, raw := range raws {
		var wt wireTweet
		if err := json.Unmarshal(raw, &wt); err != nil || wt.ID == "" {
			continue
		}

		t := Tweet{
			ID:            wt.ID,
			Text:          wt.Text,
			UserName:      wt.User.Name,
			UserID:        wt.User.ID,
			ReplyCount:    wt.ReplyCount,
			RetweetCount:  wt.RetweetCount,
			BookmarkCount: wt.BookmarkCount,
		}
		if ts, err := time.Parse(createdAtLayout, wt.CreatedAt); err == nil {
			utc := ts.UTC()
			t.CreatedAt = &utc
		}

		var rawMap map[string]any
		if err := json.Unmarshal(raw, &rawMap); err == nil {
			t.Raw = rawMap
		}
		out = append(out, t)
	}
	return out
}

func (c *TwitterClient) SearchFirstPage(ctx context.Context, query, mode string) (*Page, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("product", mode)

	tl, err := c.get(ctx, EndpointSearch, "/2/search/adaptive.json", q)
	if err != nil {
		return nil, err
	}
	return &Page{
		Tweets: decodeTweets(tl.Tweets),
		cursor: tl.NextCursor,
		source: pageSearch,
		query:  query,
		mode:   mode,
	}, nil
}

func (c *TwitterClient) UserTimelineFirstPage(ctx context.Context, userID, timelineKind string) (*Page, error) {
	q := url.Values{}
	q.Set("user_id", userID)
	q.Set("kind", timelineKind)

	tl, err := c.get(ctx, timelineEndpoint(timelineKind), "/2/timeline/user.json", q)
	if err != nil {
		return nil, err
	}
	return &Page{
		Tweets:   decodeTweets(tl.Tweets),
		cursor:   tl.NextCursor,
		source:   pageUserTimeline,
		userID:   userID,
		timeline: timelineKind,
	}, nil
}

// NextPage resumes whichever timeline produced prev. A page without a cursor
// has no continuation; callers get a nil page back.
func (c *TwitterClient) NextPage(ctx context.Context, prev *Page) (*Page, error) {
	if !prev.HasNext() {
		return nil, nil
	}

	var (
		tl  *wireTimeline
		err error
	)
	switch prev.source {
	case pageSearch:
		q := url.Values{}
		q.Set("q", prev.query)
		q.Set("product", prev.mode)
		q.Set("cursor", prev.cursor)
		tl, err = c.get(ctx, EndpointSearch, "/2/search/adaptive.json", q)
	case pageUserTimeline:
		q := url.Values{}
		q.Set("user_id", prev.userID)
		q.Set("kind", prev.timeline)
		q.Set("cursor", prev.cursor)
		tl, err = c.get(ctx, timelineEndpoint(prev.timeline), "/2/timeline/user.json", q)
	default:
		return nil, fmt.Errorf("twitter: unknown page source %d", prev.source)
	}
	if err != nil {
		return nil, err
	}

	next := *prev
	next.Tweets = decodeTweets(tl.Tweets)
	next.cursor = tl.NextCursor
	return &next, nil
}

func (c *TwitterClient) ResolveUser(ctx context.Context, screenName string) (*User, error) {
	q := url.Values{}
	q.Set("screen_name", screenName)

	u := fmt.Sprintf("%s/1.1/users/show.json?%s", c.BaseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	req.Header.Set("X-Csrf-Token", c.CSRFToken)
	req.Header.Set("Cookie", fmt.Sprintf("auth_token=%s; ct0=%s", c.AuthToken, c.CSRFToken))

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrUserNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("twitter: status %d", resp.StatusCode)
	}

	var decoded struct {
		ID         string `json:"id_str"`
		Name       string `json:"name"`
		ScreenName string `json:"screen_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}
	if decoded.ID == "" {
		return nil, ErrUserNotFound
	}
	return &User{ID: decoded.ID, ScreenName: decoded.ScreenName, Name: decoded.Name}, nil
}
