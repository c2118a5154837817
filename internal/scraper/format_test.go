package scraper

import (
	"testing"
	"time"
)

func TestFormatJob_TimesAndParameters(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	end := start.Add(2 * time.Second)

	view := FormatJob(Job{
		ID:         7,
		Kind:       KindKeywordSearch,
		Query:      "golang",
		Parameters: `{"search_type":"Latest","target_count":30}`,
		StartTime:  start,
		EndTime:    &end,
		Status:     JobCompleted,
		TweetCount: 30,
		CreatedAt:  start,
	})

	if view.StartTime != "2024-05-01T10:30:00Z" {
		t.Fatalf("start_time = %q", view.StartTime)
	}
	if view.EndTime == nil || *view.EndTime != "2024-05-01T10:30:02Z" {
		t.Fatalf("end_time = %v", view.EndTime)
	}
	if view.Parameters["search_type"] != "Latest" {
		t.Fatalf("parameters not rehydrated: %v", view.Parameters)
	}
}

func TestFormatJob_RunningJobHasNullEndTime(t *testing.T) {
	view := FormatJob(Job{ID: 1, Status: JobRunning, StartTime: time.Now()})
	if view.EndTime != nil {
		t.Fatalf("running job end_time = %v, want nil", view.EndTime)
	}
}

func TestFormatJob_MalformedParametersDegradeToEmptyObject(t *testing.T) {
	for _, raw := range []string{"", "{broken", "[1,2]"} {
		view := FormatJob(Job{ID: 1, Parameters: raw, StartTime: time.Now()})
		if view.Parameters == nil {
			t.Fatalf("raw %q: parameters is nil", raw)
		}
		if len(view.Parameters) != 0 {
			t.Fatalf("raw %q: parameters = %v, want empty", raw, view.Parameters)
		}
	}
}

func TestFormatTweet_MalformedStoredJSONDegrades(t *testing.T) {
	view := FormatTweet(Tweet{
		ID:       "t1",
		Hashtags: "{not an array",
		RawData:  "not json",
	})
	if view.Hashtags == nil || len(view.Hashtags) != 0 {
		t.Fatalf("hashtags = %v, want empty slice", view.Hashtags)
	}
	if view.RawData == nil || len(view.RawData) != 0 {
		t.Fatalf("raw_data = %v, want empty map", view.RawData)
	}
	if view.CreatedAt != nil {
		t.Fatalf("created_at = %v, want nil", view.CreatedAt)
	}
}

func TestFormatTweet_RoundTripsStoredFields(t *testing.T) {
	posted := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	view := FormatTweet(Tweet{
		ID:        "t2",
		JobID:     9,
		Text:      "hello #go",
		PostedAt:  &posted,
		Hashtags:  `["go"]`,
		RawData:   `{"id_str":"t2"}`,
		IndexedAt: posted,
	})
	if view.CreatedAt == nil || *view.CreatedAt != "2024-03-01T08:00:00Z" {
		t.Fatalf("created_at = %v", view.CreatedAt)
	}
	if len(view.Hashtags) != 1 || view.Hashtags[0] != "go" {
		t.Fatalf("hashtags = %v", view.Hashtags)
	}
	if view.RawData["id_str"] != "t2" {
		t.Fatalf("raw_data = %v", view.RawData)
	}
}
