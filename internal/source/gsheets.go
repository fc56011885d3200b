package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ashureev/vocabook/internal/sheet"
	"golang.org/x/sync/errgroup"
)

// DefaultSheetsBaseURL is the public Google Sheets API endpoint.
const DefaultSheetsBaseURL = "https://sheets.googleapis.com"

// GoogleSheetsConfig configures a GoogleSheets source.
type GoogleSheetsConfig struct {
	BaseURL       string
	SpreadsheetID string
	APIKey        string
	Timeout       time.Duration // per sheet request
	Concurrency   int
	HTTPClient    *http.Client
	Logger        *slog.Logger
}

// GoogleSheets reads sheet ranges through the Sheets v4 values endpoint
// using an API key.
type GoogleSheets struct {
	cfg     GoogleSheetsConfig
	catalog *sheet.Catalog
	client  *http.Client
	logger  *slog.Logger
}

// NewGoogleSheets creates a Sheets-backed source. Ranges come from catalog;
// ids outside the catalogue are never requested.
func NewGoogleSheets(cfg GoogleSheetsConfig, catalog *sheet.Catalog) *GoogleSheets {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultSheetsBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &GoogleSheets{cfg: cfg, catalog: catalog, client: client, logger: logger}
}

type valueRange struct {
	Range  string     `json:"range"`
	Values [][]string `json:"values"`
}

// Fetch requests every sheet concurrently. Failed sheets yield empty rows.
func (g *GoogleSheets) Fetch(ctx context.Context, ids []sheet.ID) []sheet.Table {
	tables := make([]sheet.Table, len(ids))

	var eg errgroup.Group
	eg.SetLimit(g.cfg.Concurrency)
	for i, id := range ids {
		tables[i].Sheet = id
		eg.Go(func() error {
			rows, err := g.fetchOne(ctx, id)
			if err != nil {
				g.logger.Warn("Sheet fetch failed", "sheet", id, "error", err)
				return nil
			}
			tables[i].Rows = rows
			return nil
		})
	}
	_ = eg.Wait()

	if ctx.Err() != nil {
		g.logger.Info("Sheet fetch cancelled", "sheets", len(ids), "reason", ctx.Err())
		return nil
	}
	return tables
}

func (g *GoogleSheets) fetchOne(ctx context.Context, id sheet.ID) ([][]string, error) {
	entry, ok := g.catalog.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", sheet.ErrUnknownSheet, id)
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.valuesURL(entry.Range), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			g.logger.Debug("Failed to close sheets response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrSourceUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var vr valueRange
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSourceUnavailable, err)
	}
	if vr.Values == nil {
		g.logger.Warn("Sheet returned no values", "sheet", id, "range", entry.Range)
		return nil, nil
	}
	return vr.Values, nil
}

func (g *GoogleSheets) valuesURL(a1Range string) string {
	return g.cfg.BaseURL + "/v4/spreadsheets/" + url.PathEscape(g.cfg.SpreadsheetID) +
		"/values/" + url.PathEscape(a1Range) + "?key=" + url.QueryEscape(g.cfg.APIKey)
}
