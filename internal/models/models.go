package models

import (
	"time"
)

// Availability is the stock signal extracted for one store.
type Availability string

const (
	AvailabilityAvailable  Availability = "AVAILABLE"
	AvailabilityOutOfStock Availability = "OUT_OF_STOCK"
	AvailabilityUnknown    Availability = "UNKNOWN"
	AvailabilityError      Availability = "ERROR"
)

// Position is the market standing of the home store for one product,
// computed once after all store results are final.
type Position string

const (
	PositionWinning        Position = "WINNING"
	PositionLosing         Position = "LOSING"
	PositionTied           Position = "TIED"
	PositionOutOfStockSelf Position = "OUT_OF_STOCK_SELF"
	PositionIncomparable   Position = "INCOMPARABLE"
)

// StoreResult is the outcome of one (product, store) fetch. It is produced
// whole; a retry replaces it wholesale, never field by field.
//
// Price 0 never means "free": it is only valid together with an UNKNOWN or
// ERROR availability and must be excluded from price comparisons.
type StoreResult struct {
	StoreID      string       `json:"store_id"`
	Price        float64      `json:"price"`
	Availability Availability `json:"availability"`
	SourceURL    string       `json:"source_url,omitempty"`
	ErrorDetail  string       `json:"error_detail,omitempty"`
}

// Comparable reports whether this result carries a real price that may
// participate in a market comparison.
func (r StoreResult) Comparable() bool {
	return r.Price > 0
}

// ProductRecord holds every store's result for one product plus the derived
// market position.
type ProductRecord struct {
	ProductID   string                 `json:"product_id"`
	DisplayName string                 `json:"display_name"`
	Results     map[string]StoreResult `json:"results"`
	Position    Position               `json:"position"`
}

// Snapshot is one complete, timestamped run over the whole catalog. A new
// run always produces a brand-new Snapshot.
type Snapshot struct {
	ID      string          `json:"id"`
	TakenAt time.Time       `json:"taken_at"`
	Records []ProductRecord `json:"records"`
}

// Summary are the dashboard KPI counters over one snapshot.
type Summary struct {
	Winning      int `json:"winning"`
	Tied         int `json:"tied"`
	Losing       int `json:"losing"`
	Stockouts    int `json:"stockouts"`
	Incomparable int `json:"incomparable"`
}

// Summarize counts records per position.
func (s *Snapshot) Summarize() Summary {
	var sum Summary
	for _, rec := range s.Records {
		switch rec.Position {
		case PositionWinning:
			sum.Winning++
		case PositionTied:
			sum.Tied++
		case PositionLosing:
			sum.Losing++
		case PositionOutOfStockSelf:
			sum.Stockouts++
		default:
			sum.Incomparable++
		}
	}
	return sum
}
