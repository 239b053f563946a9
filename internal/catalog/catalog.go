package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// PricePolicy picks the intended price among multiple currency-shaped
// numbers found in one price region.
type PricePolicy string

const (
	// PolicyMax selects the largest value. For stores that print the full
	// price next to a smaller per-installment figure.
	PolicyMax PricePolicy = "MAX"
	// PolicyMin selects the smallest value. For stores that print a
	// struck-through list price next to the effective price.
	PolicyMin PricePolicy = "MIN"
)

// StoreRule is the extraction rule for one store: where the price lives,
// how to disambiguate it, and how long the store gets to render it. Rules
// are read-only after load and safe for concurrent use.
type StoreRule struct {
	Selector      string      `json:"selector"`
	PricePolicy   PricePolicy `json:"price_policy"`
	WaitTimeoutMS int         `json:"wait_timeout_ms"`
}

// WaitTimeout returns the selector wait budget for this store.
func (r StoreRule) WaitTimeout() time.Duration {
	if r.WaitTimeoutMS <= 0 {
		return 12 * time.Second
	}
	return time.Duration(r.WaitTimeoutMS) * time.Millisecond
}

// Policy returns the configured disambiguation policy, defaulting to MIN.
func (r StoreRule) Policy() PricePolicy {
	if r.PricePolicy == PolicyMax {
		return PolicyMax
	}
	return PolicyMin
}

// Product is one monitored catalog entry. StoreURLs maps store id to the
// product page URL at that store; an empty URL means the store does not
// carry the product (or the URL is not known yet).
type Product struct {
	ID          string            `json:"id"`
	DisplayName string            `json:"display_name"`
	StoreURLs   map[string]string `json:"store_urls"`
}

// Catalog is the full monitoring configuration: the home store, the rule
// table, and the product list. Immutable during a run.
type Catalog struct {
	HomeStore string               `json:"home_store"`
	Stores    map[string]StoreRule `json:"stores"`
	Products  []Product            `json:"products"`
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var cat Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	if err := cat.Validate(); err != nil {
		return nil, err
	}

	return &cat, nil
}

func (c *Catalog) Validate() error {
	if c.HomeStore == "" {
		return fmt.Errorf("catalog: home_store is required")
	}

	if _, ok := c.Stores[c.HomeStore]; !ok {
		return fmt.Errorf("catalog: home store %q has no extraction rule", c.HomeStore)
	}

	if len(c.Products) == 0 {
		return fmt.Errorf("catalog: no products configured")
	}

	seen := make(map[string]bool, len(c.Products))
	for _, p := range c.Products {
		if p.ID == "" {
			return fmt.Errorf("catalog: product %q has no id", p.DisplayName)
		}
		if seen[p.ID] {
			return fmt.Errorf("catalog: duplicate product id %q", p.ID)
		}
		seen[p.ID] = true

		if _, ok := p.StoreURLs[c.HomeStore]; !ok {
			return fmt.Errorf("catalog: product %q has no home store entry", p.ID)
		}

		for storeID := range p.StoreURLs {
			if _, ok := c.Stores[storeID]; !ok {
				return fmt.Errorf("catalog: product %q references unknown store %q", p.ID, storeID)
			}
		}
	}

	return nil
}

// Rule resolves the extraction rule for a store id. Resolution happens by
// store identity, never by inspecting the URL.
func (c *Catalog) Rule(storeID string) (StoreRule, bool) {
	rule, ok := c.Stores[storeID]
	return rule, ok
}

// IsHome reports whether storeID is the monitored merchant.
func (c *Catalog) IsHome(storeID string) bool {
	return storeID == c.HomeStore
}
