package scraper

import (
	"context"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/zlin-x/scrape-platform/internal/provider"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Job{}, &Tweet{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func createRunningJob(t *testing.T, repo *Repo, kind JobKind, query string) *Job {
	t.Helper()
	job := &Job{
		Kind:       kind,
		Query:      query,
		Parameters: `{"target_count":30}`,
		StartTime:  time.Now(),
		Status:     JobRunning,
	}
	if err := repo.CreateJob(context.Background(), job); err != nil {
		t.Fatalf("create job: %v", err)
	}
	if job.ID == 0 {
		t.Fatalf("expected the store to assign a job id")
	}
	return job
}

func TestUpsertTweets_SecondWriteRefreshesFields(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	first := createRunningJob(t, repo, KindKeywordSearch, "golang")
	second := createRunningJob(t, repo, KindKeywordSearch, "golang")

	posted := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	n, err := repo.UpsertTweets(ctx, first.ID, []provider.Tweet{{
		ID:         "t1",
		Text:       "original #golang",
		UserName:   "alice",
		UserID:     "u1",
		CreatedAt:  &posted,
		ReplyCount: 1,
	}})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 processed, got %d", n)
	}

	var before Tweet
	if err := repo.db.First(&before, "id = ?", "t1").Error; err != nil {
		t.Fatalf("load tweet: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	// same id scraped again by a later job with fresher counts
	if _, err := repo.UpsertTweets(ctx, second.ID, []provider.Tweet{{
		ID:         "t1",
		Text:       "edited #golang",
		UserName:   "alice",
		UserID:     "u1-changed",
		CreatedAt:  &posted,
		ReplyCount: 7,
	}}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	var count int64
	if err := repo.db.Model(&Tweet{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single row after re-upsert, got %d", count)
	}

	var after Tweet
	if err := repo.db.First(&after, "id = ?", "t1").Error; err != nil {
		t.Fatalf("reload tweet: %v", err)
	}
	if after.JobID != second.ID {
		t.Fatalf("job_id not rewritten: got %d, want %d", after.JobID, second.ID)
	}
	if after.Text != "edited #golang" || after.ReplyCount != 7 {
		t.Fatalf("mutable fields not refreshed: %+v", after)
	}
	if !after.IndexedAt.Equal(before.IndexedAt) {
		t.Fatalf("indexed_at changed on re-upsert: %v -> %v", before.IndexedAt, after.IndexedAt)
	}
	if after.UserID != "u1" {
		t.Fatalf("user_id must survive re-upsert, got %q", after.UserID)
	}
}

func TestUpsertTweets_IdenticalPayloadIsIdempotent(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	job := createRunningJob(t, repo, KindHashtagLatest, "#go")

	tw := provider.Tweet{ID: "t9", Text: "hello #go", UserName: "bob", UserID: "u2"}
	if _, err := repo.UpsertTweets(ctx, job.ID, []provider.Tweet{tw}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	var before Tweet
	if err := repo.db.First(&before, "id = ?", "t9").Error; err != nil {
		t.Fatalf("load: %v", err)
	}

	if _, err := repo.UpsertTweets(ctx, job.ID, []provider.Tweet{tw}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	var after Tweet
	if err := repo.db.First(&after, "id = ?", "t9").Error; err != nil {
		t.Fatalf("reload: %v", err)
	}

	if after.Text != before.Text || after.Hashtags != before.Hashtags || after.JobID != before.JobID {
		t.Fatalf("row changed under identical payload: %+v vs %+v", before, after)
	}
	if !after.IndexedAt.Equal(before.IndexedAt) {
		t.Fatalf("indexed_at changed: %v -> %v", before.IndexedAt, after.IndexedAt)
	}
}

func TestFinalizeJob_SetsTerminalFieldsOnce(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	job := createRunningJob(t, repo, KindKeywordSearch, "rust")

	if err := repo.FinalizeJob(ctx, job.ID, JobCompleted, 12); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	got, err := repo.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != JobCompleted || got.TweetCount != 12 {
		t.Fatalf("unexpected terminal state: %+v", got)
	}
	if got.EndTime == nil {
		t.Fatalf("end_time not set on finalize")
	}

	firstEnd := *got.EndTime
	time.Sleep(5 * time.Millisecond)

	// a job that already left RUNNING cannot be finalized again, whatever
	// the status
	if err := repo.FinalizeJob(ctx, job.ID, JobFailed, 99); err != nil {
		t.Fatalf("repeat finalize: %v", err)
	}
	again, err := repo.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if again.Status != JobCompleted || again.TweetCount != 12 {
		t.Fatalf("repeat finalize disturbed the row: %+v", again)
	}
	if again.EndTime == nil || !again.EndTime.Equal(firstEnd) {
		t.Fatalf("end_time rewritten on repeat finalize: %v -> %v", firstEnd, again.EndTime)
	}
}

func TestListJobs_MostRecentFirst(t *testing.T) {
	repo := NewRepo(openTestDB(t))

	a := createRunningJob(t, repo, KindKeywordSearch, "one")
	b := createRunningJob(t, repo, KindKeywordSearch, "two")
	c := createRunningJob(t, repo, KindKeywordSearch, "three")

	jobs, err := repo.ListJobs(context.Background())
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(jobs))
	}
	if jobs[0].ID != c.ID || jobs[1].ID != b.ID || jobs[2].ID != a.ID {
		t.Fatalf("jobs out of order: %d, %d, %d", jobs[0].ID, jobs[1].ID, jobs[2].ID)
	}
}

func TestGetJobWithTweets_NewestPublicationFirst(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	job := createRunningJob(t, repo, KindUserTimeline, "gopher")

	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mid := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	fresh := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	if _, err := repo.UpsertTweets(ctx, job.ID, []provider.Tweet{
		{ID: "t-old", CreatedAt: &old},
		{ID: "t-new", CreatedAt: &fresh},
		{ID: "t-mid", CreatedAt: &mid},
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, tweets, err := repo.GetJobWithTweets(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job with tweets: %v", err)
	}
	if got.ID != job.ID {
		t.Fatalf("wrong job returned: %d", got.ID)
	}
	if len(tweets) != 3 {
		t.Fatalf("expected 3 tweets, got %d", len(tweets))
	}
	if tweets[0].ID != "t-new" || tweets[1].ID != "t-mid" || tweets[2].ID != "t-old" {
		t.Fatalf("tweets out of order: %s, %s, %s", tweets[0].ID, tweets[1].ID, tweets[2].ID)
	}
}

func TestGetJobWithTweets_MissingJob(t *testing.T) {
	repo := NewRepo(openTestDB(t))

	_, _, err := repo.GetJobWithTweets(context.Background(), 424242)
	if err != gorm.ErrRecordNotFound {
		t.Fatalf("expected gorm.ErrRecordNotFound, got %v", err)
	}
}
