package confluence

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	applog "confluencekb/internal/platform/log"
)

// Config for the Confluence Cloud REST API.
type Config struct {
	BaseURL  string // e.g. https://example.atlassian.net/wiki
	Username string
	APIToken string
	SpaceKey string
}

// Client is a thin wrapper over the Confluence content API. It only knows how
// to page through a space with storage-format bodies expanded.
type Client struct {
	config Config
	client *http.Client
}

func NewClient(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		config: cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// RemotePage is the subset of a Confluence content entity we consume.
type RemotePage struct {
	ID           string
	Title        string
	SpaceKey     string
	BodyHTML     string
	WebURL       string
	LastModified time.Time
}

type contentResponse struct {
	Results []contentEntity `json:"results"`
	Size    int             `json:"size"`
}

type contentEntity struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Space struct {
		Key string `json:"key"`
	} `json:"space"`
	Body struct {
		Storage struct {
			Value string `json:"value"`
		} `json:"storage"`
	} `json:"body"`
	Version struct {
		When time.Time `json:"when"`
	} `json:"version"`
	Links struct {
		WebUI string `json:"webui"`
	} `json:"_links"`
}

// GetAllPages pages through the configured space, 50 entities per request.
// A limit of 0 means no limit.
func (c *Client) GetAllPages(ctx context.Context, limit int) ([]RemotePage, error) {
	const perRequest = 50

	var pages []RemotePage
	start := 0
	for {
		batch, err := c.fetchBatch(ctx, start, perRequest)
		if err != nil {
			return nil, err
		}
		pages = append(pages, batch...)

		if len(batch) < perRequest {
			break
		}
		if limit > 0 && len(pages) >= limit {
			pages = pages[:limit]
			break
		}
		start += perRequest
	}

	applog.Info("[Sync] Retrieved pages from Confluence", "count", len(pages), "space", c.config.SpaceKey)
	return pages, nil
}

// GetPage fetches a single content entity by id.
func (c *Client) GetPage(ctx context.Context, pageID string) (*RemotePage, error) {
	endpoint := fmt.Sprintf("%s/rest/api/content/%s?expand=body.storage,version,space", c.config.BaseURL, pageID)

	var entity contentEntity
	if err := c.getJSON(ctx, endpoint, &entity); err != nil {
		return nil, fmt.Errorf("get page %s: %w", pageID, err)
	}
	page := c.toRemotePage(entity)
	return &page, nil
}

func (c *Client) fetchBatch(ctx context.Context, start, limit int) ([]RemotePage, error) {
	params := url.Values{}
	params.Set("spaceKey", c.config.SpaceKey)
	params.Set("type", "page")
	params.Set("start", fmt.Sprintf("%d", start))
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("expand", "body.storage,version,space")

	endpoint := fmt.Sprintf("%s/rest/api/content?%s", c.config.BaseURL, params.Encode())

	var resp contentResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("fetch pages (start=%d): %w", start, err)
	}

	pages := make([]RemotePage, 0, len(resp.Results))
	for _, entity := range resp.Results {
		pages = append(pages, c.toRemotePage(entity))
	}
	return pages, nil
}

func (c *Client) toRemotePage(entity contentEntity) RemotePage {
	webURL := entity.Links.WebUI
	if webURL != "" && !strings.HasPrefix(webURL, "http") {
		webURL = c.config.BaseURL + webURL
	}

	spaceKey := entity.Space.Key
	if spaceKey == "" {
		spaceKey = c.config.SpaceKey
	}

	return RemotePage{
		ID:           entity.ID,
		Title:        entity.Title,
		SpaceKey:     spaceKey,
		BodyHTML:     entity.Body.Storage.Value,
		WebURL:       webURL,
		LastModified: entity.Version.When,
	}
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.config.Username, c.config.APIToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("confluence API error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
