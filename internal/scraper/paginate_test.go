package scraper

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/zlin-x/scrape-platform/internal/provider"
)

// fakeFetcher serves canned pages in order. failOnCall makes the nth fetch
// (1-based) return an error.
type fakeFetcher struct {
	pages      [][]provider.Tweet
	idx        int
	calls      int
	failOnCall int
}

func (f *fakeFetcher) first(ctx context.Context) (*provider.Page, error) {
	_ = ctx
	f.idx = 0
	return f.page()
}

func (f *fakeFetcher) next(ctx context.Context, prev *provider.Page) (*provider.Page, error) {
	_ = ctx
	_ = prev
	f.idx++
	return f.page()
}

func (f *fakeFetcher) page() (*provider.Page, error) {
	f.calls++
	if f.failOnCall != 0 && f.calls == f.failOnCall {
		return nil, errors.New("connection reset")
	}
	if f.idx >= len(f.pages) {
		return nil, nil
	}
	return &provider.Page{Tweets: f.pages[f.idx]}, nil
}

func makeTweets(prefix string, n int) []provider.Tweet {
	out := make([]provider.Tweet, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, provider.Tweet{ID: fmt.Sprintf("%s-%d", prefix, i)})
	}
	return out
}

// countingSink accepts every batch and records its size.
func countingSink(batches *[][]provider.Tweet) PageSink {
	return func(ctx context.Context, tweets []provider.Tweet) (int, error) {
		_ = ctx
		*batches = append(*batches, tweets)
		return len(tweets), nil
	}
}

func TestCollect_TruncatesLastPageAtTarget(t *testing.T) {
	f := &fakeFetcher{pages: [][]provider.Tweet{
		makeTweets("a", 2), makeTweets("b", 2), makeTweets("c", 2),
	}}

	var batches [][]provider.Tweet
	total, exhausted, err := Collect(context.Background(), f.first, f.next, 5, countingSink(&batches))
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected total 5, got %d", total)
	}
	if exhausted {
		t.Fatalf("target reached should not report exhaustion")
	}

	sizes := make([]int, 0, len(batches))
	for _, b := range batches {
		sizes = append(sizes, len(b))
	}
	want := []int{2, 2, 1}
	if len(sizes) != len(want) {
		t.Fatalf("expected %d batches, got %v", len(want), sizes)
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Fatalf("batch sizes = %v, want %v", sizes, want)
		}
	}
}

func TestCollect_ExhaustionBeforeTarget(t *testing.T) {
	f := &fakeFetcher{pages: [][]provider.Tweet{
		makeTweets("a", 2), makeTweets("b", 1),
	}}

	var batches [][]provider.Tweet
	total, exhausted, err := Collect(context.Background(), f.first, f.next, 10, countingSink(&batches))
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected total 3, got %d", total)
	}
	if !exhausted {
		t.Fatalf("expected exhaustion to be reported")
	}
}

func TestCollect_TargetWithinFirstPage(t *testing.T) {
	f := &fakeFetcher{pages: [][]provider.Tweet{makeTweets("a", 5)}}

	var batches [][]provider.Tweet
	total, exhausted, err := Collect(context.Background(), f.first, f.next, 3, countingSink(&batches))
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if total != 3 || exhausted {
		t.Fatalf("total=%d exhausted=%v, want 3/false", total, exhausted)
	}
	if f.calls != 1 {
		t.Fatalf("expected a single fetch, got %d", f.calls)
	}
}

func TestCollect_NeverExceedsTarget(t *testing.T) {
	for target := 1; target <= 12; target++ {
		f := &fakeFetcher{pages: [][]provider.Tweet{
			makeTweets("a", 3), makeTweets("b", 3), makeTweets("c", 3),
		}}

		var batches [][]provider.Tweet
		total, exhausted, err := Collect(context.Background(), f.first, f.next, target, countingSink(&batches))
		if err != nil {
			t.Fatalf("target=%d: %v", target, err)
		}
		if total > target {
			t.Fatalf("target=%d: delivered %d tweets", target, total)
		}
		if total < target && !exhausted {
			t.Fatalf("target=%d: under target without exhaustion (total=%d)", target, total)
		}
	}
}

func TestCollect_RejectsNonPositiveTarget(t *testing.T) {
	f := &fakeFetcher{}
	for _, target := range []int{0, -1} {
		if _, _, err := Collect(context.Background(), f.first, f.next, target, countingSink(&[][]provider.Tweet{})); err == nil {
			t.Fatalf("target=%d: expected error", target)
		}
	}
	if f.calls != 0 {
		t.Fatalf("no fetch should happen for invalid targets, got %d", f.calls)
	}
}

func TestCollect_FetchErrorKeepsStoredProgress(t *testing.T) {
	f := &fakeFetcher{
		pages:      [][]provider.Tweet{makeTweets("a", 3), makeTweets("b", 3)},
		failOnCall: 2,
	}

	var batches [][]provider.Tweet
	total, exhausted, err := Collect(context.Background(), f.first, f.next, 10, countingSink(&batches))
	if err == nil {
		t.Fatalf("expected fetch error")
	}
	if total != 3 {
		t.Fatalf("expected 3 tweets delivered before the failure, got %d", total)
	}
	if exhausted {
		t.Fatalf("a failed fetch is not exhaustion")
	}
}

func TestCollect_SinkErrorAborts(t *testing.T) {
	f := &fakeFetcher{pages: [][]provider.Tweet{
		makeTweets("a", 2), makeTweets("b", 2),
	}}

	calls := 0
	sink := func(ctx context.Context, tweets []provider.Tweet) (int, error) {
		calls++
		if calls == 2 {
			return 0, errors.New("disk full")
		}
		return len(tweets), nil
	}

	total, _, err := Collect(context.Background(), f.first, f.next, 10, sink)
	if err == nil {
		t.Fatalf("expected sink error")
	}
	if total != 2 {
		t.Fatalf("expected the first page to stay counted, got %d", total)
	}
}
