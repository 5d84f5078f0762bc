package scheduler

import (
	"context"
	"log"

	"pricepilot/pipeline"

	"github.com/robfig/cron/v3"
)

// DailyScraper re-scrapes every tracked product once a day through the
// orchestrator.
type DailyScraper struct {
	cron         *cron.Cron
	orchestrator *pipeline.Orchestrator
}

func NewDailyScraper(orchestrator *pipeline.Orchestrator) *DailyScraper {
	return &DailyScraper{
		cron:         cron.New(),
		orchestrator: orchestrator,
	}
}

// Start schedules the daily run at 02:00 and kicks one off immediately.
func (ds *DailyScraper) Start() {
	_, err := ds.cron.AddFunc("0 2 * * *", ds.run)
	if err != nil {
		log.Printf("Failed to schedule daily scraper: %v", err)
		return
	}

	go ds.run()

	ds.cron.Start()
	log.Println("Daily scraper scheduled for 02:00")
}

// Stop stops the scheduled runs
func (ds *DailyScraper) Stop() {
	if ds.cron != nil {
		ds.cron.Stop()
	}
}

func (ds *DailyScraper) run() {
	log.Println("Starting daily price refresh for all tracked products")
	result := ds.orchestrator.RunDaily(context.Background())
	if result.ErrorCount > 0 {
		log.Printf("⚠️ Daily run finished with errors: %s", result.Message)
	}
}
