package catalog

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"orderbot/internal/pricing"
)

// ErrNotFound is returned by Region and Product lookups for unknown ids.
var ErrNotFound = errors.New("catalog: not found")

// Region is a selectable region with its display language and currency.
type Region struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Language string `yaml:"language"`
	Currency string `yaml:"currency"`
}

// Product is a purchasable item. Prices are tiers in the reference currency.
type Product struct {
	ID             string    `yaml:"id"`
	Name           string    `yaml:"name"`
	Prices         []float64 `yaml:"prices"`
	DepositPercent float64   `yaml:"deposit_percent"`
}

// Catalog is the read-only shop configuration: regions, products and the
// static currency rates relative to the reference currency.
type Catalog struct {
	ReferenceCurrency string             `yaml:"reference_currency"`
	Rates             map[string]float64 `yaml:"rates"`
	Regions           []Region           `yaml:"regions"`
	Products          []Product          `yaml:"products"`

	regionByID  map[string]Region
	productByID map[string]Product
}

// Load reads and validates a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse builds a catalog from YAML bytes.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	c.regionByID = make(map[string]Region, len(c.Regions))
	for _, r := range c.Regions {
		c.regionByID[r.ID] = r
	}
	c.productByID = make(map[string]Product, len(c.Products))
	for _, p := range c.Products {
		c.productByID[p.ID] = p
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if c.ReferenceCurrency == "" {
		return fmt.Errorf("reference_currency is required")
	}
	if _, ok := c.Rates[c.ReferenceCurrency]; !ok {
		return fmt.Errorf("no rate for reference currency %q", c.ReferenceCurrency)
	}
	for code, rate := range c.Rates {
		if rate <= 0 {
			return fmt.Errorf("rate for %q must be positive, got %v", code, rate)
		}
	}
	if len(c.Regions) == 0 {
		return fmt.Errorf("at least one region is required")
	}

	seenRegions := make(map[string]bool, len(c.Regions))
	for _, r := range c.Regions {
		if r.ID == "" {
			return fmt.Errorf("region with empty id")
		}
		if seenRegions[r.ID] {
			return fmt.Errorf("duplicate region id %q", r.ID)
		}
		seenRegions[r.ID] = true
		// Every reachable session currency must have a rate; this keeps
		// the neutral conversion fallback out of configured deployments.
		if _, ok := c.Rates[r.Currency]; !ok {
			return fmt.Errorf("region %q uses currency %q with no configured rate", r.ID, r.Currency)
		}
		if r.Language == "" {
			return fmt.Errorf("region %q has no language", r.ID)
		}
	}

	seenProducts := make(map[string]bool, len(c.Products))
	for _, p := range c.Products {
		if p.ID == "" {
			return fmt.Errorf("product with empty id")
		}
		if seenProducts[p.ID] {
			return fmt.Errorf("duplicate product id %q", p.ID)
		}
		seenProducts[p.ID] = true
		if len(p.Prices) == 0 {
			return fmt.Errorf("product %q has no price tiers", p.ID)
		}
		for i, price := range p.Prices {
			if price <= 0 {
				return fmt.Errorf("product %q tier %d must be positive, got %v", p.ID, i, price)
			}
		}
		if p.DepositPercent < 0 || p.DepositPercent > 100 {
			return fmt.Errorf("product %q deposit_percent must be within 0-100, got %v", p.ID, p.DepositPercent)
		}
	}
	return nil
}

// Region looks up a region by id.
func (c *Catalog) Region(id string) (Region, error) {
	r, ok := c.regionByID[id]
	if !ok {
		return Region{}, fmt.Errorf("region %q: %w", id, ErrNotFound)
	}
	return r, nil
}

// Product looks up a product by id.
func (c *Catalog) Product(id string) (Product, error) {
	p, ok := c.productByID[id]
	if !ok {
		return Product{}, fmt.Errorf("product %q: %w", id, ErrNotFound)
	}
	return p, nil
}

// Converter returns the pricing converter backed by the catalog rates.
func (c *Catalog) Converter() pricing.Converter {
	return pricing.Converter{
		Reference: c.ReferenceCurrency,
		Rates:     c.Rates,
	}
}
