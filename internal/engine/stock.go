package engine

import (
	"strings"

	"github.com/EdreyFreitas/monitor-dental/internal/models"
)

// Keyword sets for the Brazilian storefronts this monitor watches.
var (
	// A visible buy affordance.
	positiveKeywords = []string{"comprar", "adicionar"}

	// An explicit unavailability signal.
	negativeKeywords = []string{
		"esgotado",
		"indisponível",
		"indisponivel",
		"sem estoque",
		"fora de estoque",
		"avise-me",
		"avise me quando chegar",
	}
)

// ClassifyStock derives an availability signal from the full page text.
// It never returns UNKNOWN or ERROR; those belong to the caller, for pages
// that could not be fetched at all.
//
// The rule is asymmetric. The home store fails closed: it is AVAILABLE
// only when a buy affordance is present and no stockout wording is. A
// false "available" there would hide a real stockout from the merchant.
// Competitor pages fail open: they are OUT_OF_STOCK only on an explicit
// unavailability signal, since missing a competitor stockout merely makes
// the comparison conservative.
func ClassifyStock(pageText string, home bool) models.Availability {
	text := strings.ToLower(pageText)

	if home {
		if containsAny(text, positiveKeywords) && !containsAny(text, negativeKeywords) {
			return models.AvailabilityAvailable
		}
		return models.AvailabilityOutOfStock
	}

	if containsAny(text, negativeKeywords) {
		return models.AvailabilityOutOfStock
	}
	return models.AvailabilityAvailable
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
