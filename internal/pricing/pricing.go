// Package pricing implements the booking price engine: per-item category
// pricing with size variants, volume discount tiers, time- and zone-based
// surge, service fee, and the minimum job price floor.
package pricing

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/umuve/dispatch-engine/internal/geo"
	"github.com/umuve/dispatch-engine/internal/model"
)

const (
	defaultServiceFeeRate  = 0.08
	defaultMinimumJobPrice = 89.00

	defaultSameDaySurge = 0.25
	defaultNextDaySurge = 0.10
	defaultWeekendSurge = 0.15

	baseDurationMinutes = 30
	minutesPerItem      = 8

	fallbackUnitPrice = 30.00
)

// categoryPrices is the default category -> size -> unit price table.
// Flat-rate categories only carry "default". Admin PricingRules override
// these when present.
var categoryPrices = map[string]map[string]float64{
	"furniture": {
		"small": 45.00, "medium": 65.00, "large": 85.00, "default": 65.00,
	},
	"appliances": {
		"small": 60.00, "medium": 90.00, "large": 120.00, "default": 90.00,
	},
	"electronics": {
		"small": 25.00, "medium": 35.00, "large": 50.00, "default": 35.00,
	},
	"yard_waste":   {"default": 35.00}, // per cubic yard
	"construction": {"default": 55.00}, // per cubic yard
	"general":      {"default": 30.00},
	"mattress":     {"default": 50.00},
	"hot_tub": {
		"small": 250.00, "medium": 325.00, "large": 400.00, "default": 325.00,
	},
	"other": {"default": 30.00},
}

// Tier is one volume discount band. MaxQty nil means unbounded.
type Tier struct {
	MinQty int     `json:"min_qty"`
	MaxQty *int    `json:"max_qty"`
	Rate   float64 `json:"discount_rate"`
}

func intPtr(v int) *int { return &v }

func defaultTiers() []Tier {
	return []Tier{
		{MinQty: 1, MaxQty: intPtr(3), Rate: 0.00},
		{MinQty: 4, MaxQty: intPtr(7), Rate: 0.10},
		{MinQty: 8, MaxQty: intPtr(15), Rate: 0.15},
		{MinQty: 16, MaxQty: nil, Rate: 0.20},
	}
}

// truckBand classifies total quantity into a truck-size label.
type truckBand struct {
	minQty int
	maxQty *int
	label  string
}

var truckBands = []truckBand{
	{1, intPtr(5), "Standard Pickup"},
	{6, intPtr(12), "Large Truck"},
	{13, nil, "Extra-Large Truck / Multiple Loads"},
}

// Settings are the tunable pricing knobs, admin-overridable via the
// pricing_config table.
type Settings struct {
	MinimumJobPrice float64
	ServiceFeeRate  float64
	SameDaySurge    float64
	NextDaySurge    float64
	WeekendSurge    float64
	Tiers           []Tier
}

func DefaultSettings() Settings {
	return Settings{
		MinimumJobPrice: defaultMinimumJobPrice,
		ServiceFeeRate:  defaultServiceFeeRate,
		SameDaySurge:    defaultSameDaySurge,
		NextDaySurge:    defaultNextDaySurge,
		WeekendSurge:    defaultWeekendSurge,
		Tiers:           defaultTiers(),
	}
}

// Overrides supplies database-backed overrides. Implementations fall back to
// zero values: UnitPrice returns ok=false when no rule exists, Settings
// returns DefaultSettings-merged values, ActiveZones may return nil.
type Overrides interface {
	UnitPrice(ctx context.Context, itemType string) (float64, bool)
	Settings(ctx context.Context) Settings
	ActiveZones(ctx context.Context) []model.SurgeZone
}

// ItemInput is one line of a booking request.
type ItemInput struct {
	Category string `json:"category"`
	Quantity int    `json:"quantity"`
	Size     string `json:"size,omitempty"`
}

// LineBreakdown reports the resolved price of one input line.
type LineBreakdown struct {
	Category  string  `json:"category"`
	Size      string  `json:"size,omitempty"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	LineTotal float64 `json:"line_total"`
}

// Result is the full pricing breakdown. Downstream callers (quote display,
// invoice, payment-intent creation) rely on every intermediate value, not
// just Total.
type Result struct {
	ItemsSubtotal       float64         `json:"items_subtotal"`
	Items               []LineBreakdown `json:"items"`
	VolumeDiscount      float64         `json:"volume_discount"`
	VolumeDiscountRate  float64         `json:"volume_discount_rate"`
	VolumeDiscountLabel string          `json:"volume_discount_label,omitempty"`
	SurgeMultiplier     float64         `json:"surge_multiplier"`
	SurgeAmount         float64         `json:"surge_amount"`
	SurgeReasons        []string        `json:"surge_reasons"`
	BasePrice           float64         `json:"base_price"`
	ServiceFee          float64         `json:"service_fee"`
	Total               float64         `json:"total"`
	MinimumApplied      bool            `json:"minimum_applied"`
	MinimumJobPrice     float64         `json:"minimum_job_price"`
	EstimatedDuration   int             `json:"estimated_duration"`
	TruckSize           string          `json:"truck_size"`
	TotalQuantity       int             `json:"total_quantity"`
}

// Input carries everything CalculateEstimate needs. ScheduledAt drives the
// time-based surge; Lat/Lng drive zone surge.
type Input struct {
	Items       []ItemInput
	ScheduledAt *time.Time
	Lat         *float64
	Lng         *float64
}

// Calculator computes estimates. A nil Overrides source yields pure-default
// pricing, which keeps the math deterministic for a given input.
type Calculator struct {
	src Overrides
	now func() time.Time
}

func NewCalculator(src Overrides) *Calculator {
	return &Calculator{src: src, now: time.Now}
}

// WithClock replaces the time source. Test hook.
func (c *Calculator) WithClock(now func() time.Time) *Calculator {
	c.now = now
	return c
}

// CalculateEstimate runs the pricing pipeline: items, volume discount, time
// and zone surge, service fee, minimum floor, duration and truck size.
func (c *Calculator) CalculateEstimate(ctx context.Context, in Input) Result {
	settings := c.settings(ctx)

	itemTotal := 0.0
	totalQuantity := 0
	breakdown := make([]LineBreakdown, 0, len(in.Items))

	for _, item := range in.Items {
		category := item.Category
		if category == "" {
			category = "other"
		}
		if item.Quantity <= 0 {
			continue
		}

		unitPrice := c.unitPrice(ctx, category, item.Size)
		lineTotal := unitPrice * float64(item.Quantity)
		itemTotal += lineTotal
		totalQuantity += item.Quantity

		breakdown = append(breakdown, LineBreakdown{
			Category:  category,
			Size:      item.Size,
			Quantity:  item.Quantity,
			UnitPrice: round2(unitPrice),
			LineTotal: round2(lineTotal),
		})
	}

	discountRate := discountRate(settings.Tiers, totalQuantity)
	volumeDiscount := round2(itemTotal * discountRate)
	itemsSubtotal := round2(itemTotal - volumeDiscount)

	zoneSurge := c.zoneMultiplier(ctx, in.Lat, in.Lng)
	timeSurge, surgeReasons := c.timeSurge(settings, in.ScheduledAt)

	// Zone multiplier is multiplicative, time surge additive on top.
	combined := zoneSurge * (1.0 + timeSurge)
	surgedSubtotal := round2(itemsSubtotal * combined)
	surgeAmount := round2(surgedSubtotal - itemsSubtotal)

	if zoneSurge > 1.0 {
		surgeReasons = append(
			[]string{fmt.Sprintf("High-demand zone (x%.2f)", zoneSurge)},
			surgeReasons...,
		)
	}

	serviceFee := round2(surgedSubtotal * settings.ServiceFeeRate)

	rawTotal := round2(surgedSubtotal + serviceFee)
	total := math.Max(rawTotal, settings.MinimumJobPrice)
	minimumApplied := total > rawTotal

	return Result{
		ItemsSubtotal:       round2(itemTotal),
		Items:               breakdown,
		VolumeDiscount:      volumeDiscount,
		VolumeDiscountRate:  discountRate,
		VolumeDiscountLabel: discountLabel(discountRate, totalQuantity),
		SurgeMultiplier:     round4(combined),
		SurgeAmount:         surgeAmount,
		SurgeReasons:        surgeReasons,
		BasePrice:           itemsSubtotal,
		ServiceFee:          serviceFee,
		Total:               total,
		MinimumApplied:      minimumApplied,
		MinimumJobPrice:     settings.MinimumJobPrice,
		EstimatedDuration:   baseDurationMinutes + totalQuantity*minutesPerItem,
		TruckSize:           truckSize(totalQuantity),
		TotalQuantity:       totalQuantity,
	}
}

// VolumeToQuantity maps an on-site cubic-yard measurement to the equivalent
// item quantity used when re-pricing a volume renegotiation.
func VolumeToQuantity(volume float64) int {
	switch {
	case volume <= 4:
		return 2
	case volume <= 8:
		return 5
	case volume <= 12:
		return 10
	default:
		return 16
	}
}

func (c *Calculator) settings(ctx context.Context) Settings {
	if c.src == nil {
		return DefaultSettings()
	}
	return c.src.Settings(ctx)
}

// unitPrice resolves a (category, size) pair: DB rule "<category>:<size>",
// then DB rule "<category>", then the static table, then the flat fallback.
func (c *Calculator) unitPrice(ctx context.Context, category, size string) float64 {
	if c.src != nil {
		if size != "" {
			if price, ok := c.src.UnitPrice(ctx, category+":"+size); ok {
				return price
			}
		}
		if price, ok := c.src.UnitPrice(ctx, category); ok {
			return price
		}
	}

	if sizes, ok := categoryPrices[category]; ok {
		if size != "" {
			if price, ok := sizes[size]; ok {
				return price
			}
		}
		if price, ok := sizes["default"]; ok {
			return price
		}
	}
	return fallbackUnitPrice
}

func (c *Calculator) timeSurge(settings Settings, scheduledAt *time.Time) (float64, []string) {
	if scheduledAt == nil {
		return 0, nil
	}

	sched := scheduledAt.UTC()
	today := c.now().UTC()
	deltaDays := int(dateOnly(sched).Sub(dateOnly(today)).Hours() / 24)

	surge := 0.0
	var reasons []string

	switch {
	case deltaDays <= 0:
		surge += settings.SameDaySurge
		reasons = append(reasons, fmt.Sprintf("Same-day pickup (+%d%%)", int(settings.SameDaySurge*100)))
	case deltaDays == 1:
		surge += settings.NextDaySurge
		reasons = append(reasons, fmt.Sprintf("Next-day pickup (+%d%%)", int(settings.NextDaySurge*100)))
	}

	if wd := sched.Weekday(); wd == time.Saturday || wd == time.Sunday {
		surge += settings.WeekendSurge
		reasons = append(reasons, fmt.Sprintf("Weekend pickup (+%d%%)", int(settings.WeekendSurge*100)))
	}

	return surge, reasons
}

// zoneMultiplier returns the highest multiplier among zones active right now
// that contain the point. A zone without a boundary applies city-wide; a
// zone with a boundary needs known coordinates inside it.
func (c *Calculator) zoneMultiplier(ctx context.Context, lat, lng *float64) float64 {
	if c.src == nil {
		return 1.0
	}

	now := c.now().UTC()
	// 0=Monday..6=Sunday, matching the stored days_of_week convention.
	currentDay := (int(now.Weekday()) + 6) % 7
	currentTime := now.Format("15:04")

	maxSurge := 1.0
	for _, zone := range c.src.ActiveZones(ctx) {
		if !zoneWindowActive(zone, currentDay, currentTime) {
			continue
		}
		if len(zone.Boundary) > 0 {
			if lat == nil || lng == nil {
				continue
			}
			if !geo.PointInPolygon(*lat, *lng, boundaryPoints(zone.Boundary)) {
				continue
			}
		}
		if zone.SurgeMultiplier > maxSurge {
			maxSurge = zone.SurgeMultiplier
		}
	}
	return maxSurge
}

func zoneWindowActive(zone model.SurgeZone, currentDay int, currentTime string) bool {
	if len(zone.DaysOfWeek) > 0 {
		found := false
		for _, d := range zone.DaysOfWeek {
			if d == currentDay {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if zone.StartTime != nil && currentTime < *zone.StartTime {
		return false
	}
	if zone.EndTime != nil && currentTime > *zone.EndTime {
		return false
	}
	return true
}

func boundaryPoints(boundary []model.LatLng) []geo.Point {
	points := make([]geo.Point, len(boundary))
	for i, v := range boundary {
		points[i] = geo.Point{Lat: v.Lat, Lng: v.Lng}
	}
	return points
}

func discountRate(tiers []Tier, totalQuantity int) float64 {
	for _, tier := range tiers {
		if tier.MaxQty == nil && totalQuantity >= tier.MinQty {
			return tier.Rate
		}
		if tier.MaxQty != nil && totalQuantity >= tier.MinQty && totalQuantity <= *tier.MaxQty {
			return tier.Rate
		}
	}
	return 0
}

func discountLabel(rate float64, totalQuantity int) string {
	if rate <= 0 {
		return ""
	}
	return fmt.Sprintf("%d%% volume discount (%d items)", int(rate*100), totalQuantity)
}

func truckSize(totalQuantity int) string {
	for _, band := range truckBands {
		if band.maxQty == nil && totalQuantity >= band.minQty {
			return band.label
		}
		if band.maxQty != nil && totalQuantity >= band.minQty && totalQuantity <= *band.maxQty {
			return band.label
		}
	}
	return "Standard Pickup"
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
