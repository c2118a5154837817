package redisstore

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zlin-x/scrape-platform/internal/provider"
)

// RateLimit describes one provider endpoint's documented budget.
type RateLimit struct {
	Endpoint     string `json:"endpoint"`
	Limit        int    `json:"limit"`
	ResetMinutes int    `json:"resetMinutes"`
	Description  string `json:"description"`
}

// Limits is the provider's published per-endpoint budget per 15-minute
// window, keyed by scrape type.
var Limits = map[string]RateLimit{
	"SEARCH_TWEETS":         {Endpoint: provider.EndpointSearch, Limit: 50, ResetMinutes: 15, Description: "Search for tweets"},
	"HASHTAG_TOP_TWEETS":    {Endpoint: provider.EndpointSearch, Limit: 50, ResetMinutes: 15, Description: "Search for hashtag tweets"},
	"HASHTAG_LATEST_TWEETS": {Endpoint: provider.EndpointSearch, Limit: 50, ResetMinutes: 15, Description: "Search for hashtag tweets"},
	"DATE_RANGE_TWEETS":     {Endpoint: provider.EndpointSearch, Limit: 50, ResetMinutes: 15, Description: "Search tweets by date range"},
	"USER_TWEETS":           {Endpoint: provider.EndpointUserTweets, Limit: 50, ResetMinutes: 15, Description: "Get user tweets"},
	"USER_REPLIES":          {Endpoint: provider.EndpointUserReplies, Limit: 50, ResetMinutes: 15, Description: "Get user tweets and replies"},
	"USER_MEDIA":            {Endpoint: provider.EndpointUserMedia, Limit: 500, ResetMinutes: 15, Description: "Get user media tweets"},
	"USER_LIKES":            {Endpoint: provider.EndpointUserLikes, Limit: 500, ResetMinutes: 15, Description: "Get user liked tweets"},
}

// LimitFor falls back to the search budget for unknown scrape types.
func LimitFor(scrapeType string) RateLimit {
	if rl, ok := Limits[scrapeType]; ok {
		return rl
	}
	return Limits["SEARCH_TWEETS"]
}

// Store tracks per-endpoint request usage in Redis. The counters are
// advisory: they are recorded and reported, never enforced.
type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{rdb: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func usageKey(endpoint string) string {
	return "ratelimit:usage:" + endpoint
}

// RecordFetch counts one provider page fetch against its endpoint. It is the
// provider.RecordFetch hook: advisory, so failures are logged and never
// surface to the fetch path.
func (s *Store) RecordFetch(ctx context.Context, endpoint string) {
	if err := s.Record(ctx, endpoint, windowFor(endpoint)); err != nil {
		log.Printf("ratelimit_record_failed endpoint=%s err=%v", endpoint, err)
	}
}

func windowFor(endpoint string) time.Duration {
	for _, rl := range Limits {
		if rl.Endpoint == endpoint {
			return time.Duration(rl.ResetMinutes) * time.Minute
		}
	}
	return 15 * time.Minute
}

// Record counts one request against endpoint, starting a fresh window when
// none is open.
func (s *Store) Record(ctx context.Context, endpoint string, window time.Duration) error {
	key := usageKey(endpoint)

	n, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("ratelimit incr: %w", err)
	}
	if n == 1 {
		if err := s.rdb.Expire(ctx, key, window).Err(); err != nil {
			return fmt.Errorf("ratelimit expire: %w", err)
		}
	}
	return nil
}

// Usage returns the request count in the current window and the time left
// until the window resets. A missing key means an untouched window.
func (s *Store) Usage(ctx context.Context, endpoint string) (count int, reset time.Duration, err error) {
	key := usageKey(endpoint)

	n, err := s.rdb.Get(ctx, key).Int()
	if err == redis.Nil {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("ratelimit get: %w", err)
	}

	ttl, err := s.rdb.TTL(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("ratelimit ttl: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}
	return n, ttl, nil
}

func (s *Store) Close() error {
	return s.rdb.Close()
}
