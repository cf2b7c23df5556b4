// Package offer holds the package catalog and the effort/price calculator.
package offer

import (
	"errors"

	"seo-offers/internal/models"
)

// ErrNoKeywords is returned for an empty selection.
var ErrNoKeywords = errors.New("at least one keyword must be selected")

// Calculate derives the estimate for a tier and keyword selection:
//
//	pages     = ceil(1.5 * n)
//	backlinks = ceil(n * mean(weight) * 2) = 2 * sum(weight)
//	months    = max(time_estimate_months)
//	price     = catalog price, bas for unknown tiers
func Calculate(tier models.PackageTier, selected []models.Keyword) (models.Estimate, error) {
	n := len(selected)
	if n == 0 {
		return models.Estimate{}, ErrNoKeywords
	}

	weightSum := 0
	months := 0
	for _, kw := range selected {
		weightSum += kw.Competition.Weight()
		months = max(months, kw.TimeEstimateMonths)
	}

	return models.Estimate{
		PagesNeeded:     (3*n + 1) / 2,
		BacklinksNeeded: 2 * weightSum,
		MonthsNeeded:    months,
		MonthlyPrice:    PriceOf(tier),
	}, nil
}
