package db

import (
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/zlin-x/scrape-platform/internal/scraper"
)

// Open connects to MySQL and migrates the scrape schema.
func Open(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := gdb.AutoMigrate(&scraper.Job{}, &scraper.Tweet{}); err != nil {
		return nil, err
	}
	return gdb, nil
}

// Connect is Open for long-lived processes: any failure is fatal.
func Connect(dsn string) *gorm.DB {
	gdb, err := Open(dsn)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	return gdb
}
