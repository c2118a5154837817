package main

import (
	"log"

	"github.com/zlin-x/scrape-platform/internal/config"
	"github.com/zlin-x/scrape-platform/internal/db"
	"github.com/zlin-x/scrape-platform/internal/httpapi"
	"github.com/zlin-x/scrape-platform/internal/provider"
	"github.com/zlin-x/scrape-platform/internal/scraper"
	"github.com/zlin-x/scrape-platform/internal/store/rabbitmq"
	"github.com/zlin-x/scrape-platform/internal/store/redisstore"
)

func main() {
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)

	limits := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer limits.Close()

	client := provider.NewTwitterClient(cfg.TwitterBaseURL, cfg.TwitterAuthToken, cfg.TwitterCSRFToken)
	client.Record = limits.RecordFetch
	svc := scraper.NewService(scraper.NewRepo(gdb), client)

	var rabbit *rabbitmq.Publisher
	if pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue); err != nil {
		log.Printf("rabbit unavailable, async scrapes disabled: %v", err)
	} else {
		rabbit = pub
		defer pub.Close()
	}

	r := httpapi.NewRouter(svc, cfg, limits, rabbit)

	log.Printf("server started addr=%s", cfg.HTTPAddr)
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
