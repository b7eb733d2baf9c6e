package confluence

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Attachment describes a file attached to a Confluence page.
type Attachment struct {
	ID        string
	Title     string
	MediaType string
	Download  string // download path relative to the base URL
}

type attachmentResponse struct {
	Results []attachmentEntity `json:"results"`
}

type attachmentEntity struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Metadata struct {
		MediaType string `json:"mediaType"`
	} `json:"metadata"`
	Links struct {
		Download string `json:"download"`
	} `json:"_links"`
}

// GetAttachments lists the attachments of a page.
func (c *Client) GetAttachments(ctx context.Context, pageID string) ([]Attachment, error) {
	endpoint := fmt.Sprintf("%s/rest/api/content/%s/child/attachment", c.config.BaseURL, pageID)

	var resp attachmentResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("list attachments for page %s: %w", pageID, err)
	}

	attachments := make([]Attachment, 0, len(resp.Results))
	for _, entity := range resp.Results {
		attachments = append(attachments, Attachment{
			ID:        entity.ID,
			Title:     entity.Title,
			MediaType: entity.Metadata.MediaType,
			Download:  entity.Links.Download,
		})
	}
	return attachments, nil
}

// DownloadAttachment streams an attachment body. The caller closes it.
func (c *Client) DownloadAttachment(ctx context.Context, att Attachment) (io.ReadCloser, error) {
	download := att.Download
	if !strings.HasPrefix(download, "http") {
		download = c.config.BaseURL + download
	}

	req, err := http.NewRequestWithContext(ctx, "GET", download, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.config.Username, c.config.APIToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", att.Title, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download %s: status %d", att.Title, resp.StatusCode)
	}
	return resp.Body, nil
}
