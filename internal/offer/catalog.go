package offer

import (
	"strings"

	"seo-offers/internal/models"
)

// Package is a catalog entry. Prices are whole kronor per month.
type Package struct {
	Tier         models.PackageTier `json:"id"`
	Name         string             `json:"name"`
	MonthlyPrice int                `json:"price"`
	Description  string             `json:"description"`
	Recommended  bool               `json:"recommended,omitempty"`
}

// Features splits the description on commas.
func (p Package) Features() []string {
	parts := strings.Split(p.Description, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if f := strings.TrimSpace(part); f != "" {
			out = append(out, f)
		}
	}
	return out
}

var catalog = []Package{
	{
		Tier:         models.PackageBas,
		Name:         "Bas",
		MonthlyPrice: 1995,
		Description:  "On-page optimering, 1 nytt sökord/månad, Hastighetsfix, Grundläggande rapporter",
	},
	{
		Tier:         models.PackagePro,
		Name:         "Pro",
		MonthlyPrice: 3995,
		Description:  "Allt i Bas + 2-4 nya sidor/månad, 2 backlinks/månad, Google My Maps, Veckovisa rapporter",
		Recommended:  true,
	},
	{
		Tier:         models.PackageElite,
		Name:         "Elite",
		MonthlyPrice: 6995,
		Description:  "Allt i Pro + 4-8 backlinks/månad, Expansion till nya städer, EAT-uppbyggnad, Dedicerad support",
	},
	{
		Tier:         models.PackageEmpire,
		Name:         "Empire",
		MonthlyPrice: 12000,
		Description:  "Dominans i regionen, 10+ backlinks/månad, Full webbyggnation, Content-strategi, VIP-support",
	},
}

// Catalog returns a copy of every package in display order.
func Catalog() []Package {
	out := make([]Package, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a package by tier.
func Lookup(tier models.PackageTier) (Package, bool) {
	for _, p := range catalog {
		if p.Tier == tier {
			return p, true
		}
	}
	return Package{}, false
}

// PriceOf returns the monthly price, falling back to the bas price for
// unknown tiers.
func PriceOf(tier models.PackageTier) int {
	if p, ok := Lookup(tier); ok {
		return p.MonthlyPrice
	}
	return catalog[0].MonthlyPrice
}
