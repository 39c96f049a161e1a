package models

import "time"

// Profile is a saved alerting configuration comparing two sources.
type Profile struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	SourceA          string  `json:"sourceA"`
	SourceB          string  `json:"sourceB"`
	MinProfitPercent float64 `json:"minProfitPercent"`
	HideOverstock    bool    `json:"hideOverstock"`
	IsActive         bool    `json:"isActive"`
	AlertsEnabled    bool    `json:"alertsEnabled"`
}

// ComparisonResult is one item priced on both sides of a comparison.
// Prices stay in minor units; PriceBAfterCommission keeps the fractional
// remainder of the commission division; Profit is in major units and
// ProfitPercent is rounded to two decimals. Derived, never persisted.
type ComparisonResult struct {
	Name                  string  `json:"name"`
	PriceA                int64   `json:"priceA"`
	PriceB                int64   `json:"priceB"`
	PriceBAfterCommission float64 `json:"priceBAfterCommission"`
	Profit                float64 `json:"profit"`
	ProfitPercent         float64 `json:"profitPercent"`
	StockA                string  `json:"stockA"`
	StockB                string  `json:"stockB"`
}

// NotificationRecord is one row of the append-only alert log. The latest
// record per (profile, item) drives the dedup decision.
type NotificationRecord struct {
	ProfileID      int64
	ItemName       string
	ProfitPercent  float64
	WasUnavailable bool
	Timestamp      time.Time
}

// ItemPrice is the price of one item on one source, with the commission
// already applied to the after value.
type ItemPrice struct {
	SourceID             string    `json:"source"`
	Name                 string    `json:"name"`
	Price                int64     `json:"price"`
	PriceAfterCommission float64   `json:"priceAfterCommission"`
	Stock                string    `json:"stock"`
	ObservedAt           time.Time `json:"timestamp"`
}
