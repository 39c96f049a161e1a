package adapter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/evgeniytob14/table/internal/models"
)

// defaultRowSelector matches the price-table layout most marketplaces render.
const defaultRowSelector = ".table-bordered tbody tr"

// HTMLTable fetches a marketplace page and extracts items from an HTML
// price table: one row per item with name, price and stock cells.
type HTMLTable struct {
	log         *slog.Logger
	client      *http.Client
	destURL     string
	rowSelector string
}

// NewHTMLTable creates an adapter scraping the table at destinationURL.
// An empty rowSelector falls back to the default table layout.
func NewHTMLTable(log *slog.Logger, destinationURL, rowSelector string) *HTMLTable {
	if rowSelector == "" {
		rowSelector = defaultRowSelector
	}
	return &HTMLTable{
		log:         log,
		client:      &http.Client{Timeout: 30 * time.Second},
		destURL:     destinationURL,
		rowSelector: rowSelector,
	}
}

// Fetch downloads the page and parses every table row into an item.
func (h *HTMLTable) Fetch(ctx context.Context) ([]models.Item, error) {
	resp, err := h.getHTMLResponse(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get html response: %w", err)
	}
	defer resp.Body.Close()

	return h.parseTableResponse(ctx, resp.Body)
}

func (h *HTMLTable) getHTMLResponse(ctx context.Context) (*http.Response, error) {
	reqURL, err := url.Parse(h.destURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse destination URL %s: %w", h.destURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create new request %s: %w", reqURL.String(), err)
	}

	req.Header.Add("User-Agent", "Mozilla/5.0 (compatible; GoHttpClient/1.0)")

	h.log.DebugContext(ctx, "Send request", "method", req.Method, "URL", req.URL)

	res, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request %s: %w", h.destURL, err)
	}

	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		return nil, fmt.Errorf("status code error: [%d] %s", res.StatusCode, res.Status)
	}

	return res, nil
}

func (h *HTMLTable) parseTableResponse(ctx context.Context, inp io.Reader) ([]models.Item, error) {
	doc, err := goquery.NewDocumentFromReader(inp)
	if err != nil {
		return nil, fmt.Errorf("data cannot be parsed as HTML: %w", err)
	}

	var items []models.Item
	numberOfCells := 3
	nameIdx := 0
	priceIdx := 1
	stockIdx := 2

	doc.Find(h.rowSelector).Each(func(idx int, s *goquery.Selection) {
		cells := s.Find("td")

		if cells.Length() < numberOfCells {
			h.log.WarnContext(ctx, "table row has insufficient cells", "index", idx, "length", cells.Length())
			return
		}

		name := strings.TrimSpace(cells.Eq(nameIdx).Text())
		if name == "" {
			h.log.WarnContext(ctx, "table row has empty item name", "index", idx)
			return
		}

		price, err := ParsePrice(cells.Eq(priceIdx).Text())
		if err != nil {
			h.log.WarnContext(ctx, "table row has unparseable price", "index", idx, "error", err)
			return
		}

		items = append(items, models.Item{
			Name:  name,
			Price: price,
			Stock: strings.TrimSpace(cells.Eq(stockIdx).Text()),
		})
	})

	return items, nil
}

// ParsePrice converts a display price like "$5.70" or "12.34" into minor
// currency units.
func ParsePrice(raw string) (int64, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", raw, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("negative price %q", raw)
	}

	return int64(math.Round(value * 100)), nil
}
