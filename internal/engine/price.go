package engine

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/EdreyFreitas/monitor-dental/internal/catalog"
)

// priceToken matches a Brazilian currency-formatted amount: up to three
// digits, optional dot-grouped thousands, comma and exactly two cents.
var priceToken = regexp.MustCompile(`\d{1,3}(?:\.\d{3})*,\d{2}`)

// Amounts at or below this are quantity counters or unit noise, never a
// currency value worth comparing.
const minSignificantPrice = 1.0

// ParsePrices scans a price region for currency-shaped tokens and returns
// their numeric values in order of appearance. An empty result means "no
// price found", which callers must treat as unknown, never as zero.
func ParsePrices(text string) []float64 {
	text = strings.ReplaceAll(text, " ", " ")

	var values []float64
	for _, tok := range priceToken.FindAllString(text, -1) {
		normalized := strings.ReplaceAll(tok, ".", "")
		normalized = strings.ReplaceAll(normalized, ",", ".")

		v, err := strconv.ParseFloat(normalized, 64)
		if err != nil || v <= minSignificantPrice {
			continue
		}
		values = append(values, v)
	}

	return values
}

// PickPrice applies the store's disambiguation policy to the parsed values.
// MAX keeps the full price on pages that also show a per-installment
// figure; MIN keeps the effective price on pages that also show a
// struck-through list price. ok is false when there is nothing to pick.
func PickPrice(values []float64, policy catalog.PricePolicy) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}

	picked := values[0]
	for _, v := range values[1:] {
		switch policy {
		case catalog.PolicyMax:
			if v > picked {
				picked = v
			}
		default:
			if v < picked {
				picked = v
			}
		}
	}

	return picked, true
}
