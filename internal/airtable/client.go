// Package airtable fetches rule records from an Airtable base. It is a thin
// read-only client: one table, fetched in full once per session, paged
// through with the offset cursor until exhausted.
package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/inklinks/inkbot/internal/bot"
)

const defaultBaseURL = "https://api.airtable.com/v0"

// Config identifies the table holding the rules.
type Config struct {
	APIKey string
	BaseID string
	Table  string

	// APIVersion 4 prefers the scanned-page attachment as a rule's target;
	// older data only carries the direct image address.
	APIVersion int

	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string

	Timeout time.Duration
}

// Client implements bot.RuleSource against the Airtable REST API.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// New constructs a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type attachment struct {
	URL string `json:"url"`
}

type recordFields struct {
	Name        string       `json:"Name"`
	Pattern     string       `json:"Brand+ink regex"`
	ImgurURL    string       `json:"Imgur Address"`
	ScannedPage []attachment `json:"Scanned Page"`
}

type record struct {
	ID     string       `json:"id"`
	Fields recordFields `json:"fields"`
}

type tablePage struct {
	Records []record `json:"records"`
	Offset  string   `json:"offset"`
}

// FetchAllRules downloads every row of the table, following offset cursors,
// and maps each row to a raw rule record. Rows with unresolvable fields come
// through empty and are dropped later, at rule load.
func (c *Client) FetchAllRules(ctx context.Context) ([]bot.RuleRecord, error) {
	var records []bot.RuleRecord
	offset := ""
	for {
		page, err := c.fetchPage(ctx, offset)
		if err != nil {
			return nil, err
		}
		for _, rec := range page.Records {
			records = append(records, bot.RuleRecord{
				Name:    rec.Fields.Name,
				Pattern: rec.Fields.Pattern,
				Target:  c.resolveTarget(rec.Fields),
			})
		}
		if page.Offset == "" {
			break
		}
		offset = page.Offset
	}
	c.logger.Debug("airtable table downloaded", zap.Int("records", len(records)))
	return records, nil
}

// resolveTarget picks a rule's link target. API version 4 bases store the
// reference as a page-scan attachment list; earlier ones hold a direct URL.
func (c *Client) resolveTarget(f recordFields) string {
	if c.cfg.APIVersion == 4 && len(f.ScannedPage) > 0 {
		return f.ScannedPage[0].URL
	}
	return f.ImgurURL
}

func (c *Client) fetchPage(ctx context.Context, offset string) (tablePage, error) {
	endpoint := fmt.Sprintf("%s/%s/%s", c.cfg.BaseURL, c.cfg.BaseID, url.PathEscape(c.cfg.Table))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return tablePage{}, fmt.Errorf("build airtable request: %w", err)
	}
	if offset != "" {
		q := req.URL.Query()
		q.Set("offset", offset)
		req.URL.RawQuery = q.Encode()
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return tablePage{}, fmt.Errorf("fetch airtable page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return tablePage{}, fmt.Errorf("airtable returned %d: %s", resp.StatusCode, body)
	}

	var page tablePage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return tablePage{}, fmt.Errorf("decode airtable page: %w", err)
	}
	return page, nil
}
