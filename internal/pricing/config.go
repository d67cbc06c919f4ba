package pricing

import (
	"context"
	"sort"
)

// PublicConfig is the pricing sheet exposed to booking clients so they can
// render category pickers and explain fees before asking for an estimate.
type PublicConfig struct {
	Categories      map[string]map[string]float64 `json:"categories"`
	VolumeTiers     []Tier                        `json:"volume_tiers"`
	ServiceFeeRate  float64                       `json:"service_fee_rate"`
	MinimumJobPrice float64                       `json:"minimum_job_price"`
	SameDaySurge    float64                       `json:"same_day_surge"`
	NextDaySurge    float64                       `json:"next_day_surge"`
	WeekendSurge    float64                       `json:"weekend_surge"`
}

// PublicConfig returns the effective pricing sheet with database overrides
// applied on top of the defaults.
func (c *Calculator) PublicConfig(ctx context.Context) PublicConfig {
	settings := c.settings(ctx)

	categories := make(map[string]map[string]float64, len(categoryPrices))
	for category, sizes := range categoryPrices {
		out := make(map[string]float64, len(sizes))
		for size, price := range sizes {
			out[size] = price
			if c.src == nil {
				continue
			}
			if size == "default" {
				if override, ok := c.src.UnitPrice(ctx, category); ok {
					out[size] = override
				}
				continue
			}
			if override, ok := c.src.UnitPrice(ctx, category+":"+size); ok {
				out[size] = override
			}
		}
		categories[category] = out
	}

	return PublicConfig{
		Categories:      categories,
		VolumeTiers:     settings.Tiers,
		ServiceFeeRate:  settings.ServiceFeeRate,
		MinimumJobPrice: settings.MinimumJobPrice,
		SameDaySurge:    settings.SameDaySurge,
		NextDaySurge:    settings.NextDaySurge,
		WeekendSurge:    settings.WeekendSurge,
	}
}

// CategoryNames lists the bookable categories.
func CategoryNames() []string {
	names := make([]string, 0, len(categoryPrices))
	for name := range categoryPrices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
