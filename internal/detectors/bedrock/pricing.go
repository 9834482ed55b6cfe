package bedrock

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Pricing holds the per-1K-token prices and request-volume assumption used by
// the Nova caching saving estimate. The defaults are illustrative figures from
// the Bedrock pricing page; deployments can override them from a YAML file.
type Pricing struct {
	NovaBaseUSDPer1K       float64 `yaml:"nova_base_usd_per_1k"`
	NovaCachedReadUSDPer1K float64 `yaml:"nova_cached_read_usd_per_1k"`
	NovaCacheWriteUSDPer1K float64 `yaml:"nova_cache_write_usd_per_1k"`
	MonthlyRequests        int     `yaml:"monthly_requests"`
}

// DefaultPricing returns the built-in price assumptions.
func DefaultPricing() Pricing {
	return Pricing{
		NovaBaseUSDPer1K:       0.00006,
		NovaCachedReadUSDPer1K: 0.000006,
		NovaCacheWriteUSDPer1K: 0.00009,
		MonthlyRequests:        1000,
	}
}

// LoadPricing reads a pricing override file. A missing file is not an error:
// the defaults are returned unchanged.
func LoadPricing(path string) (Pricing, error) {
	pricing := DefaultPricing()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return pricing, nil
		}
		return pricing, fmt.Errorf("failed to read pricing file: %w", err)
	}

	if err := yaml.Unmarshal(data, &pricing); err != nil {
		return DefaultPricing(), fmt.Errorf("failed to parse pricing file %s: %w", path, err)
	}
	return pricing, nil
}

// monthlySavings estimates the monthly saving from caching a static prompt of
// estimatedTokens: full price for every request versus one cache write plus
// discounted reads for the remainder.
func (p Pricing) monthlySavings(estimatedTokens int) float64 {
	requests := float64(p.MonthlyRequests)
	tokens := float64(estimatedTokens)

	withoutCaching := requests * tokens * p.NovaBaseUSDPer1K / 1000
	withCaching := tokens*p.NovaCacheWriteUSDPer1K/1000 +
		(requests-1)*tokens*p.NovaCachedReadUSDPer1K/1000
	return withoutCaching - withCaching
}
