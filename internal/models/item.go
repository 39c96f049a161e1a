package models

import "time"

// SourceStatus describes the health of one marketplace poller.
type SourceStatus string

const (
	StatusActive   SourceStatus = "Active"
	StatusError    SourceStatus = "Error"
	StatusInactive SourceStatus = "Inactive"
)

// Item is one tradable item as reported by a marketplace, normalized into
// the common schema. Price is in minor currency units (cents). Stock is
// either a bare count ("7") or a "have/max" pair ("3/10").
type Item struct {
	Name       string
	Price      int64
	Stock      string
	SourceID   string
	ObservedAt time.Time
}

// Snapshot is the complete item set last successfully fetched from one
// source, keyed by trimmed item name. A Snapshot is immutable once
// published: readers share it, writers build a new one and swap.
type Snapshot struct {
	SourceID      string
	Items         map[string]Item
	LastSuccessAt time.Time
	LastError     string
	Status        SourceStatus
}

// SourceInfo is the externally visible state of one source.
type SourceInfo struct {
	ID            string       `json:"id"`
	DisplayName   string       `json:"displayName"`
	Status        SourceStatus `json:"status"`
	LastSuccessAt time.Time    `json:"lastSuccessAt"`
	LastError     string       `json:"lastError,omitempty"`
	ItemCount     int          `json:"itemCount"`
	Interval      string       `json:"interval"`
}
