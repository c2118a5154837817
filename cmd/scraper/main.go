package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/zlin-x/scrape-platform/internal/config"
	"github.com/zlin-x/scrape-platform/internal/db"
	"github.com/zlin-x/scrape-platform/internal/provider"
	"github.com/zlin-x/scrape-platform/internal/scraper"
	"github.com/zlin-x/scrape-platform/internal/store/redisstore"
)

// The scraper CLI takes an operation name plus one JSON parameter document
// and prints exactly one JSON document to stdout, so callers can shell out
// to it and parse the result.

func emit(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		fmt.Println(`{"error": "failed to encode result"}`)
		return
	}
	fmt.Println(string(b))
}

func emitError(msg string) {
	emit(map[string]string{"error": msg})
}

func main() {
	if len(os.Args) < 2 {
		emitError("Operation is required")
		return
	}
	operation := os.Args[1]

	params := json.RawMessage(`{}`)
	if len(os.Args) > 2 {
		if !json.Valid([]byte(os.Args[2])) {
			emitError("Invalid JSON parameters")
			return
		}
		params = json.RawMessage(os.Args[2])
	}

	cfg := config.Load()
	gdb, err := db.Open(cfg.DBDSN)
	if err != nil {
		emitError("Error connecting to database: " + err.Error())
		os.Exit(1)
	}

	limits := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer limits.Close()

	client := provider.NewTwitterClient(cfg.TwitterBaseURL, cfg.TwitterAuthToken, cfg.TwitterCSRFToken)
	client.Record = limits.RecordFetch
	svc := scraper.NewService(scraper.NewRepo(gdb), client)
	ctx := context.Background()

	switch operation {
	case scraper.TypeSearch, scraper.TypeHashtagTop, scraper.TypeHashtagLatest,
		scraper.TypeDateRange, scraper.TypeUserTweets:
		result, err := svc.Dispatch(ctx, operation, params)
		if err != nil {
			emitError(err.Error())
			return
		}
		emit(map[string]any{
			"success":    true,
			"jobId":      result.JobID,
			"tweetCount": result.TweetCount,
		})

	case "get_all_jobs":
		jobs, err := svc.ListJobs(ctx)
		if err != nil {
			emitError("Database error: " + err.Error())
			return
		}
		emit(map[string]any{"success": true, "jobs": jobs})

	case "get_job_with_tweets":
		var p struct {
			JobID uint64 `json:"jobId"`
		}
		if err := json.Unmarshal(params, &p); err != nil || p.JobID == 0 {
			emitError("Job ID is required")
			return
		}
		job, tweets, err := svc.GetJobWithTweets(ctx, p.JobID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				emitError("Job not found")
				return
			}
			emitError("Database error: " + err.Error())
			return
		}
		emit(map[string]any{"success": true, "job": job, "tweets": tweets})

	default:
		emitError("Unknown operation")
	}
}
