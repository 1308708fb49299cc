package notionsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/finance-reports/internal/logger"
	"github.com/dvloznov/finance-reports/internal/runs"
)

// PageSize is the number of rows requested per database query.
const PageSize = 100

// Publisher mirrors run summaries into a Notion database, one page per run.
type Publisher struct {
	svc        NotionService
	databaseID string
}

// NewPublisher creates a publisher writing to databaseID.
func NewPublisher(svc NotionService, databaseID string) *Publisher {
	return &Publisher{svc: svc, databaseID: databaseID}
}

// PublishRun creates the page for run, or updates it when a page with the
// same Run ID already exists. It returns the page ID.
func (p *Publisher) PublishRun(ctx context.Context, run *runs.Run) (string, error) {
	if run == nil || run.RunID == "" {
		return "", errors.New("PublishRun: run has no ID")
	}

	log := logger.FromContext(ctx).With().Str("run_id", run.RunID).Logger()

	pages, err := queryAllNotionPages(ctx, p.svc, p.databaseID)
	if err != nil {
		return "", fmt.Errorf("PublishRun: %w", err)
	}

	props := RunToNotionProperties(run)

	for _, page := range pages {
		if extractRunID(page) != run.RunID {
			continue
		}
		pageID := string(page.ID)
		if _, err := p.svc.UpdatePage(ctx, pageID, props); err != nil {
			return "", fmt.Errorf("PublishRun: %w", err)
		}
		log.Info().Str("page_id", pageID).Msg("Updated Notion run page")
		return pageID, nil
	}

	page, err := p.svc.CreatePage(ctx, p.databaseID, props)
	if err != nil {
		return "", fmt.Errorf("PublishRun: %w", err)
	}
	log.Info().Str("page_id", string(page.ID)).Msg("Created Notion run page")
	return string(page.ID), nil
}

// queryAllNotionPages follows cursors until the database is exhausted.
func queryAllNotionPages(ctx context.Context, svc NotionService, databaseID string) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: PageSize}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := svc.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}
		all = append(all, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return all, nil
}
