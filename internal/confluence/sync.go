package confluence

import (
	"context"
	"fmt"
	"time"

	"confluencekb/internal/confluence/parser"
	"confluencekb/internal/domain/kb"
	applog "confluencekb/internal/platform/log"
)

// Syncer pulls pages (and parseable attachments) from Confluence into the
// corpus store. Chunking and embedding happen later, in the training run.
type Syncer struct {
	client  *Client
	store   kb.ChunkStore
	parsers *parser.Registry
}

func NewSyncer(client *Client, store kb.ChunkStore) *Syncer {
	return &Syncer{
		client:  client,
		store:   store,
		parsers: parser.NewRegistry(),
	}
}

// SyncResult summarizes one sync run.
type SyncResult struct {
	Pages       int
	Attachments int
	Skipped     int
}

// Sync upserts every page of the configured space. Per-page failures are
// logged and counted, not fatal.
func (s *Syncer) Sync(ctx context.Context) (*SyncResult, error) {
	start := time.Now()

	remote, err := s.client.GetAllPages(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("fetch pages: %w", err)
	}

	result := &SyncResult{}
	for _, rp := range remote {
		if err := s.syncPage(ctx, rp); err != nil {
			applog.Warn("[Sync] Page failed, skipping", "page", rp.Title, "error", err)
			result.Skipped++
			continue
		}
		result.Pages++

		n := s.syncAttachments(ctx, rp)
		result.Attachments += n
	}

	applog.Info("[Sync] Sync complete",
		"pages", result.Pages,
		"attachments", result.Attachments,
		"skipped", result.Skipped,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (s *Syncer) syncPage(ctx context.Context, rp RemotePage) error {
	text := ExtractText(rp.BodyHTML)

	return s.store.UpsertPage(ctx, &kb.Page{
		PageID:       rp.ID,
		Title:        rp.Title,
		SpaceKey:     rp.SpaceKey,
		Content:      text,
		URL:          rp.WebURL,
		LastModified: rp.LastModified,
	})
}

// syncAttachments stores each parseable attachment as its own page record so
// the training run picks it up like any other document.
func (s *Syncer) syncAttachments(ctx context.Context, rp RemotePage) int {
	attachments, err := s.client.GetAttachments(ctx, rp.ID)
	if err != nil {
		applog.Warn("[Sync] Failed to list attachments", "page", rp.Title, "error", err)
		return 0
	}

	synced := 0
	for _, att := range attachments {
		p, err := s.parsers.Get(att.Title)
		if err != nil {
			applog.Debug("[Sync] Skipping attachment", "file", att.Title, "reason", err)
			continue
		}

		body, err := s.client.DownloadAttachment(ctx, att)
		if err != nil {
			applog.Warn("[Sync] Attachment download failed", "file", att.Title, "error", err)
			continue
		}

		parsed, err := p.Parse(body, att.Title)
		body.Close()
		if err != nil {
			applog.Warn("[Sync] Attachment parse failed", "file", att.Title, "error", err)
			continue
		}
		if parsed.Content == "" {
			continue
		}

		err = s.store.UpsertPage(ctx, &kb.Page{
			PageID:       att.ID,
			Title:        fmt.Sprintf("%s (attachment of %s)", att.Title, rp.Title),
			SpaceKey:     rp.SpaceKey,
			Content:      parsed.Content,
			URL:          rp.WebURL,
			LastModified: rp.LastModified,
		})
		if err != nil {
			applog.Warn("[Sync] Attachment upsert failed", "file", att.Title, "error", err)
			continue
		}
		synced++
	}
	return synced
}
