package main

import (
	"context"
	"log"
	"os"
	"time"

	"tripdesk/internal/database"
	"tripdesk/internal/repository"
)

// One-shot maintenance job: expires negotiations past their deadline
// and drops workflow rows past their 24h expiry. Run from cron.
func main() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := database.Connect(databaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	ctx := context.Background()
	now := time.Now()

	expired, err := repository.NewNegotiationRepository(db).ExpirePastDeadline(ctx, now)
	if err != nil {
		log.Fatalf("expire negotiations failed: %v", err)
	}

	dropped, err := repository.NewWorkflowRepository(db).DeleteExpired(ctx, now)
	if err != nil {
		log.Fatalf("delete workflows failed: %v", err)
	}

	log.Printf("sweep completed: negotiations_expired=%d workflows_dropped=%d", expired, dropped)
}
