// Package notionsync mirrors the category table into a Notion database so
// merchandisers can browse the hierarchy. The store is the source of truth;
// pages are matched to rows by their "Source ID" property.
package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/domain"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/logger"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/store"
)

// pageSize is the Notion query page size (the API maximum).
const pageSize = 100

// Result counts what a mirror run did, or would do in dry-run mode.
type Result struct {
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Archived int `json:"archived"`
	Failed   int `json:"failed"`
}

// SyncCategories makes the Notion database match the category store:
// missing rows get a page, existing pages are updated, and pages whose
// Source ID is unknown, missing or duplicated are archived. Per-page API
// failures are logged, counted and skipped.
func SyncCategories(ctx context.Context, reader store.CategoryReader, notionClient NotionService, notionDBID string, dryRun bool) (Result, error) {
	log := logger.FromContext(ctx)
	var res Result

	log.Info().Bool("dry_run", dryRun).Msg("Starting category mirror to Notion")

	categories, err := reader.ListCategories(ctx, store.Filter{})
	if err != nil {
		return res, fmt.Errorf("SyncCategories: list categories: %w", err)
	}
	log.Info().Int("category_count", len(categories)).Msg("Retrieved categories from store")

	valid := make(map[int64]bool, len(categories))
	for _, c := range categories {
		valid[c.SourceID] = true
	}

	pages, err := queryAllNotionPages(ctx, notionClient, notionDBID)
	if err != nil {
		return res, fmt.Errorf("SyncCategories: %w", err)
	}
	log.Info().Int("notion_page_count", len(pages)).Msg("Retrieved existing Notion pages")

	// First page per id wins; the rest are archived with the stale ones.
	existing := make(map[int64]string, len(pages))
	var stale []notionapi.Page
	for _, page := range pages {
		id := sourceIDFromPage(page)
		if id == 0 || !valid[id] {
			stale = append(stale, page)
			continue
		}
		if _, dup := existing[id]; dup {
			stale = append(stale, page)
			continue
		}
		existing[id] = string(page.ID)
	}

	for _, page := range stale {
		pageLog := log.With().Int64("source_id", sourceIDFromPage(page)).Str("page_id", string(page.ID)).Logger()
		if dryRun {
			pageLog.Info().Msg("[DRY RUN] Would archive stale Notion page")
			res.Archived++
			continue
		}
		if err := notionClient.ArchivePage(ctx, string(page.ID)); err != nil {
			pageLog.Warn().Err(err).Msg("Failed to archive stale Notion page")
			res.Failed++
			continue
		}
		res.Archived++
	}

	for _, c := range categories {
		pageID, found := existing[c.SourceID]
		if dryRun {
			if found {
				res.Updated++
			} else {
				res.Created++
			}
			continue
		}

		if err := mirrorOne(ctx, notionClient, notionDBID, pageID, c); err != nil {
			log.Warn().Err(err).Int64("source_id", c.SourceID).Msg("Failed to mirror category")
			res.Failed++
			continue
		}
		if found {
			res.Updated++
		} else {
			res.Created++
		}
	}

	log.Info().
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("archived", res.Archived).
		Int("failed", res.Failed).
		Int("total", len(categories)).
		Msg("Category mirror completed")

	return res, nil
}

func mirrorOne(ctx context.Context, notionClient NotionService, dbID, pageID string, c domain.NormalizedCategory) error {
	props := CategoryToNotionProperties(c)
	if pageID != "" {
		_, err := notionClient.UpdatePage(ctx, pageID, props)
		return err
	}
	_, err := notionClient.CreatePage(ctx, dbID, props)
	return err
}

// queryAllNotionPages follows the cursor until the database is exhausted.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: pageSize}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}
