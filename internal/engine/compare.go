package engine

import (
	"math"

	"github.com/EdreyFreitas/monitor-dental/internal/models"
)

// Classify computes the home store's market position for one completed
// product record. Only competitor results with a real price participate;
// UNKNOWN and ERROR cells are excluded from the comparison set, never
// counted as zero.
func Classify(rec models.ProductRecord, homeStore string, tolerance float64) models.Position {
	home, ok := rec.Results[homeStore]
	if !ok {
		return models.PositionIncomparable
	}

	// A stockout at the home store overrides any price standing.
	if home.Availability == models.AvailabilityOutOfStock {
		return models.PositionOutOfStockSelf
	}

	minCompetitor := 0.0
	for storeID, res := range rec.Results {
		if storeID == homeStore || !res.Comparable() {
			continue
		}
		if minCompetitor == 0 || res.Price < minCompetitor {
			minCompetitor = res.Price
		}
	}

	if !home.Comparable() || minCompetitor == 0 {
		return models.PositionIncomparable
	}

	switch {
	case home.Price < minCompetitor:
		return models.PositionWinning
	case math.Abs(home.Price-minCompetitor) < tolerance:
		return models.PositionTied
	default:
		return models.PositionLosing
	}
}
