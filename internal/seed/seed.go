// Package seed generates deterministic synthetic e-commerce data for the
// warehouse: daily product sales, ad performance, and eligibility snapshots.
package seed

import (
	"math"
	"math/rand"
	"time"
)

type Params struct {
	// Days of history to generate, ending yesterday.
	Days int
	// Items is the number of distinct item IDs.
	Items int
	// Seed makes generation reproducible.
	Seed int64
	// Start overrides the first day. Zero means Days ago from today.
	Start time.Time
}

func (p Params) withDefaults() Params {
	if p.Days <= 0 {
		p.Days = 30
	}
	if p.Items <= 0 {
		p.Items = 12
	}
	if p.Start.IsZero() {
		today := time.Now().UTC().Truncate(24 * time.Hour)
		p.Start = today.AddDate(0, 0, -p.Days)
	} else {
		p.Start = p.Start.UTC().Truncate(24 * time.Hour)
	}
	return p
}

type SalesRow struct {
	Date              time.Time
	ItemID            int64
	TotalSales        float64
	TotalUnitsOrdered int64
}

type AdRow struct {
	Date        time.Time
	ItemID      int64
	AdSales     float64
	Impressions int64
	AdSpend     float64
	Clicks      int64
	UnitsSold   int64
}

type EligibilityRow struct {
	At       time.Time
	ItemID   int64
	Eligible bool
	Message  string
}

type Dataset struct {
	Sales       []SalesRow
	Ads         []AdRow
	Eligibility []EligibilityRow
}

var ineligibilityMessages = []string{
	"Listing suppressed: missing product images",
	"Ineligible: pricing above category ceiling",
	"Ineligible: stock below advertising threshold",
	"Listing under review for policy compliance",
}

// Generate builds one row per item per day for sales and ads, plus one
// eligibility snapshot per item. The same params always produce the same
// dataset.
func Generate(p Params) Dataset {
	p = p.withDefaults()
	rnd := rand.New(rand.NewSource(p.Seed))

	// Stable per-item unit price so day-over-day revenue moves with units,
	// not price noise.
	prices := make([]float64, p.Items)
	for i := range prices {
		prices[i] = round2(8 + rnd.Float64()*90)
	}

	ds := Dataset{
		Sales:       make([]SalesRow, 0, p.Days*p.Items),
		Ads:         make([]AdRow, 0, p.Days*p.Items),
		Eligibility: make([]EligibilityRow, 0, p.Items),
	}

	for day := 0; day < p.Days; day++ {
		date := p.Start.AddDate(0, 0, day)
		for item := 0; item < p.Items; item++ {
			itemID := int64(item + 1)
			price := prices[item]

			units := int64(rnd.Intn(40))
			ds.Sales = append(ds.Sales, SalesRow{
				Date:              date,
				ItemID:            itemID,
				TotalSales:        round2(float64(units) * price),
				TotalUnitsOrdered: units,
			})

			impressions := int64(500 + rnd.Intn(19500))
			clicks := int64(float64(impressions) * (0.01 + rnd.Float64()*0.07))
			unitsSold := int64(float64(clicks) * (0.02 + rnd.Float64()*0.10))
			costPerClick := 0.2 + rnd.Float64()*1.3
			ds.Ads = append(ds.Ads, AdRow{
				Date:        date,
				ItemID:      itemID,
				AdSales:     round2(float64(unitsSold) * price),
				Impressions: impressions,
				AdSpend:     round2(float64(clicks) * costPerClick),
				Clicks:      clicks,
				UnitsSold:   unitsSold,
			})
		}
	}

	for item := 0; item < p.Items; item++ {
		eligible := rnd.Intn(100) < 85
		message := ""
		if !eligible {
			message = ineligibilityMessages[rnd.Intn(len(ineligibilityMessages))]
		}
		ds.Eligibility = append(ds.Eligibility, EligibilityRow{
			At:       p.Start.AddDate(0, 0, p.Days-1).Add(time.Duration(rnd.Intn(24)) * time.Hour),
			ItemID:   int64(item + 1),
			Eligible: eligible,
			Message:  message,
		})
	}

	return ds
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
