package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/zlin-x/scrape-platform/internal/config"
	"github.com/zlin-x/scrape-platform/internal/db"
	"github.com/zlin-x/scrape-platform/internal/provider"
	"github.com/zlin-x/scrape-platform/internal/scraper"
	"github.com/zlin-x/scrape-platform/internal/store/rabbitmq"
	"github.com/zlin-x/scrape-platform/internal/store/redisstore"
)

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func main() {
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)

	limits := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer limits.Close()

	client := provider.NewTwitterClient(cfg.TwitterBaseURL, cfg.TwitterAuthToken, cfg.TwitterCSRFToken)
	client.Record = limits.RecordFetch
	svc := scraper.NewService(scraper.NewRepo(gdb), client)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("rabbit dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbit channel: %v", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(cfg.RabbitQueue, true, false, false, false, nil)
	if err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	concurrency := workerConcurrency()

	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	consumerTag := "scrape-worker-" + uuid.NewString()
	msgs, err := ch.Consume(cfg.RabbitQueue, consumerTag, false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("worker started queue=%s concurrency=%d tag=%s", cfg.RabbitQueue, concurrency, consumerTag)

	// worker pool
	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				var m rabbitmq.ScrapeMessage
				if err := json.Unmarshal(d.Body, &m); err != nil || m.Type == "" {
					log.Printf("worker=%d bad message: %v", workerID, err)
					_ = d.Nack(false, false)
					continue
				}

				start := time.Now()
				if err := handleScrape(ctx, svc, m); err != nil {
					log.Printf("worker=%d scrape type=%s failed cost=%s err=%v", workerID, m.Type, time.Since(start), err)
					_ = d.Nack(false, false)
					continue
				}

				if err := d.Ack(false); err != nil {
					log.Printf("worker=%d ack failed type=%s err=%v", workerID, m.Type, err)
				}
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			log.Printf("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Printf("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}
			jobs <- d
		}
	}
}

func handleScrape(ctx context.Context, svc *scraper.Service, m rabbitmq.ScrapeMessage) error {
	start := time.Now()
	result, err := svc.Dispatch(ctx, m.Type, m.Params)
	if err != nil {
		return err
	}

	log.Printf("scrape_done type=%s job=%d tweets=%d cost=%s", m.Type, result.JobID, result.TweetCount, time.Since(start))
	return nil
}
