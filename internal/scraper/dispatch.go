package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zlin-x/scrape-platform/internal/provider"
)

// ErrUnknownScrapeType is returned by Dispatch for a scrape type outside the
// supported set.
var ErrUnknownScrapeType = errors.New("unknown scrape type")

// Scrape types accepted by every invocation surface (CLI, HTTP, queue).
const (
	TypeSearch        = "SEARCH_TWEETS"
	TypeHashtagTop    = "HASHTAG_TOP_TWEETS"
	TypeHashtagLatest = "HASHTAG_LATEST_TWEETS"
	TypeDateRange     = "DATE_RANGE_TWEETS"
	TypeUserTweets    = "USER_TWEETS"
)

// Dispatch decodes params for the given scrape type and runs the matching
// job. Malformed params fail validation before any job row is written.
func (s *Service) Dispatch(ctx context.Context, scrapeType string, params json.RawMessage) (*JobResult, error) {
	switch scrapeType {
	case TypeSearch:
		var req SearchRequest
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return s.SearchTweets(ctx, req)

	case TypeHashtagTop, TypeHashtagLatest:
		var req HashtagRequest
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		if scrapeType == TypeHashtagTop {
			req.SearchType = provider.ModeTop
		} else {
			req.SearchType = provider.ModeLatest
		}
		return s.SearchHashtag(ctx, req)

	case TypeDateRange:
		var req DateRangeRequest
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return s.SearchDateRange(ctx, req)

	case TypeUserTweets:
		var req UserTimelineRequest
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return s.FetchUserTimeline(ctx, req)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScrapeType, scrapeType)
	}
}
