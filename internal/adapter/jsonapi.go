package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/evgeniytob14/table/internal/models"
)

// JSONAPI fetches a marketplace price list published as a JSON array of
// {name, price, stock} objects, with price already in minor units.
type JSONAPI struct {
	log     *slog.Logger
	client  *http.Client
	destURL string
}

// NewJSONAPI creates an adapter reading the price list at destinationURL.
func NewJSONAPI(log *slog.Logger, destinationURL string) *JSONAPI {
	return &JSONAPI{
		log:     log,
		client:  &http.Client{Timeout: 30 * time.Second},
		destURL: destinationURL,
	}
}

type jsonPriceEntry struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
	Stock string `json:"stock"`
}

// Fetch downloads and decodes the price list.
func (j *JSONAPI) Fetch(ctx context.Context) ([]models.Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.destURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create new request %s: %w", j.destURL, err)
	}
	req.Header.Add("Accept", "application/json")

	res, err := j.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request %s: %w", j.destURL, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status code error: [%d] %s", res.StatusCode, res.Status)
	}

	var entries []jsonPriceEntry
	if err = json.NewDecoder(res.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode price list: %w", err)
	}

	items := make([]models.Item, 0, len(entries))
	for idx, entry := range entries {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			j.log.WarnContext(ctx, "price entry has empty item name", "index", idx)
			continue
		}
		if entry.Price < 0 {
			j.log.WarnContext(ctx, "price entry has negative price", "index", idx, "name", name)
			continue
		}
		items = append(items, models.Item{
			Name:  name,
			Price: entry.Price,
			Stock: strings.TrimSpace(entry.Stock),
		})
	}

	return items, nil
}
