package offer

import (
	"math"
	"testing"

	"seo-offers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func kw(comp models.Competition, months int) models.Keyword {
	return models.Keyword{ID: "kw", Text: "städ luleå", Competition: comp, TimeEstimateMonths: months}
}

func repeat(k models.Keyword, n int) []models.Keyword {
	out := make([]models.Keyword, n)
	for i := range out {
		out[i] = k
	}
	return out
}

// ==========================
// Calculate
// ==========================

func TestCalculate_EmptySelection(t *testing.T) {
	_, err := Calculate(models.PackagePro, nil)
	assert.ErrorIs(t, err, ErrNoKeywords)
}

func TestCalculate_PagesAreCeilingAndMonotonic(t *testing.T) {
	prev := 0
	for n := 1; n <= 50; n++ {
		est, err := Calculate(models.PackageBas, repeat(kw(models.CompetitionLow, 3), n))
		require.NoError(t, err)
		assert.Equal(t, int(math.Ceil(1.5*float64(n))), est.PagesNeeded, "n=%d", n)
		assert.GreaterOrEqual(t, est.PagesNeeded, prev)
		prev = est.PagesNeeded
	}
}

func TestCalculate_Backlinks(t *testing.T) {
	tests := []struct {
		name     string
		selected []models.Keyword
		want     int
	}{
		{"four high", repeat(kw(models.CompetitionHigh, 3), 4), 24},
		{"one low", repeat(kw(models.CompetitionLow, 3), 1), 2},
		{
			name: "mixed",
			selected: []models.Keyword{
				kw(models.CompetitionLow, 3),
				kw(models.CompetitionMedium, 3),
				kw(models.CompetitionHigh, 3),
			},
			// ceil(3 * 2 * 2)
			want: 12,
		},
		{
			name: "uneven mean",
			selected: []models.Keyword{
				kw(models.CompetitionHigh, 3),
				kw(models.CompetitionLow, 3),
				kw(models.CompetitionLow, 3),
			},
			// ceil(3 * 5/3 * 2) = 10
			want: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est, err := Calculate(models.PackagePro, tt.selected)
			require.NoError(t, err)
			assert.Equal(t, tt.want, est.BacklinksNeeded)
		})
	}
}

func TestCalculate_MonthsIsMax(t *testing.T) {
	est, err := Calculate(models.PackagePro, []models.Keyword{
		kw(models.CompetitionLow, 5),
		kw(models.CompetitionLow, 9),
		kw(models.CompetitionLow, 3),
	})
	require.NoError(t, err)
	assert.Equal(t, 9, est.MonthsNeeded)
}

func TestCalculate_Price(t *testing.T) {
	tests := []struct {
		tier models.PackageTier
		want int
	}{
		{models.PackageBas, 1995},
		{models.PackagePro, 3995},
		{models.PackageElite, 6995},
		{models.PackageEmpire, 12000},
		{"platinum", 1995},
		{"", 1995},
	}

	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			est, err := Calculate(tt.tier, repeat(kw(models.CompetitionMedium, 4), 2))
			require.NoError(t, err)
			assert.Equal(t, tt.want, est.MonthlyPrice)
		})
	}
}

func TestCalculate_ThreeKeywordsPro(t *testing.T) {
	est, err := Calculate(models.PackagePro, []models.Keyword{
		kw(models.CompetitionHigh, 12),
		kw(models.CompetitionLow, 4),
		kw(models.CompetitionMedium, 20),
	})
	require.NoError(t, err)
	assert.Equal(t, models.Estimate{PagesNeeded: 5, BacklinksNeeded: 12, MonthsNeeded: 20, MonthlyPrice: 3995}, est)
}

// ==========================
// Catalog
// ==========================

func TestCatalog(t *testing.T) {
	pkgs := Catalog()
	require.Len(t, pkgs, 4)

	recommended := 0
	for i, p := range pkgs {
		assert.Equal(t, models.PackageTiers[i], p.Tier)
		assert.NotEmpty(t, p.Features())
		if p.Recommended {
			recommended++
			assert.Equal(t, models.PackagePro, p.Tier)
		}
	}
	assert.Equal(t, 1, recommended)

	pkgs[0].MonthlyPrice = 1
	assert.Equal(t, 1995, PriceOf(models.PackageBas), "Catalog must return a copy")
}

func TestPackage_Features(t *testing.T) {
	p, ok := Lookup(models.PackageBas)
	require.True(t, ok)
	assert.Equal(t, []string{
		"On-page optimering",
		"1 nytt sökord/månad",
		"Hastighetsfix",
		"Grundläggande rapporter",
	}, p.Features())

	_, ok = Lookup("gold")
	assert.False(t, ok)
}
