package scraper

import (
	"context"
	"fmt"

	"github.com/zlin-x/scrape-platform/internal/provider"
)

type (
	// FetchFirst obtains the first page of a timeline.
	FetchFirst func(ctx context.Context) (*provider.Page, error)

	// FetchNext obtains the page after prev, or nil when the provider has
	// nothing further.
	FetchNext func(ctx context.Context, prev *provider.Page) (*provider.Page, error)

	// PageSink persists one page worth of tweets and reports how many were
	// processed.
	PageSink func(ctx context.Context, tweets []provider.Tweet) (int, error)
)

// Collect drives paginated fetches until targetCount tweets have been handed
// to sink or the provider is exhausted. Pages flow into the sink one at a
// time, so partial progress is durable before each provider call. The last
// page is truncated so at most targetCount tweets are ever delivered.
//
// On a fetch or sink error the loop stops immediately; whatever the sink
// already accepted stays accepted, and the error goes back to the caller
// untouched. No retries happen here.
func Collect(ctx context.Context, fetchFirst FetchFirst, fetchNext FetchNext, targetCount int, sink PageSink) (total int, exhausted bool, err error) {
	if targetCount <= 0 {
		return 0, false, fmt.Errorf("collect: target count must be positive, got %d", targetCount)
	}

	var page *provider.Page
	for total < targetCount {
		if page == nil {
			page, err = fetchFirst(ctx)
		} else {
			page, err = fetchNext(ctx, page)
		}
		if err != nil {
			return total, false, err
		}
		if page == nil || len(page.Tweets) == 0 {
			return total, true, nil
		}

		batch := page.Tweets
		if remaining := targetCount - total; len(batch) > remaining {
			batch = batch[:remaining]
		}

		n, err := sink(ctx, batch)
		if err != nil {
			return total, false, err
		}
		total += n
	}
	return total, false, nil
}
