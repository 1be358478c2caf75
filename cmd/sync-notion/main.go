package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/bootstrap"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/config"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/logger"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/notionsync"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	notionToken := flag.String("notion-token", cfg.NotionToken, "Notion API token (or set NOTION_TOKEN)")
	notionDBID := flag.String("notion-db-id", cfg.NotionDBID, "Notion database ID (or set NOTION_DB_ID)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id is required")
	}

	log = logger.NewWithLevel(cfg.Log.Level, cfg.Log.JSON())

	// Create context with timeout so the CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	st, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open category store")
	}
	defer st.Close()

	notionClient := notionsync.NewNotionClient(*notionToken)

	res, err := notionsync.SyncCategories(ctx, st, notionClient, *notionDBID, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Printf("Mirror completed: %d created, %d updated, %d archived, %d failed.\n",
		res.Created, res.Updated, res.Archived, res.Failed)
}
