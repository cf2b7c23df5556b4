package inference

import (
	"fmt"
	"sync"
	"testing"

	"seo-offers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectIndustry(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://stadbolaget-städ.se", IndustryCleaning},
		{"https://CLEANING-co.com", IndustryCleaning},
		{"https://byggfirman.se", IndustryConstruction},
		{"https://best-restaurant.se", IndustryRestaurant},
		{"https://frisörsalong.se", IndustryHairdresser},
		{"https://hairsalon.se", IndustryHairdresser},
		{"https://mitt-gym.se", IndustryFitness},
		{"https://exempel.se", IndustryGeneral},
		{"", IndustryGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectIndustry(tt.url))
		})
	}
}

func TestInfer(t *testing.T) {
	e := NewEngine(WithSeed(1))

	res := e.Infer("https://exempel.se")
	assert.Contains(t, Industries, res.Industry)
	assert.Equal(t, []string{"Stockholm", "Göteborg", "Malmö"}, res.Cities)
	assert.True(t, res.CompetitorsArePlaceholders)
	require.Len(t, res.Competitors, 9)
	assert.Equal(t, "allmänt-stockholm.se", res.Competitors[0])
	assert.Equal(t, "bästa-allmänt-stockholm.se", res.Competitors[1])
	assert.Equal(t, "stockholm-allmänt.com", res.Competitors[2])
}

func TestInfer_CityCountClamped(t *testing.T) {
	tests := []struct {
		name  string
		count int
		want  int
	}{
		{"zero becomes one", 0, 1},
		{"five kept", 5, 5},
		{"above max clamped", 9, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewEngine(WithCityCount(tt.count)).Infer("https://städfirma.se")
			assert.Len(t, res.Cities, tt.want)
			assert.Equal(t, "Luleå", res.Cities[0])
		})
	}

	// the list itself is shorter than the requested count
	res := NewEngine(WithCityCount(5)).Infer("https://gym.se")
	assert.Len(t, res.Cities, 3)
}

func TestInfer_RandomIndustryStaysInCatalog(t *testing.T) {
	e := NewEngine(WithSeed(42), WithRandomIndustry(true))
	for i := 0; i < 200; i++ {
		res := e.Infer("https://exempel.se")
		assert.Contains(t, Industries, res.Industry)
		assert.NotEmpty(t, res.Cities)
		assert.LessOrEqual(t, len(res.Cities), MaxCities)
	}
}

func TestCompetitors_MultiWordNames(t *testing.T) {
	got := Competitors(IndustryFitness, "Västra Skellefteå")
	assert.Equal(t, []string{
		"träning-&-hälsa-västra-skellefteå.se",
		"bästa-träning-&-hälsa-västra-skellefteå.se",
		"västra-skellefteå-träning-&-hälsa.com",
	}, got)
}

func TestGenerateKeywords(t *testing.T) {
	e := NewEngine(WithSeed(7))

	industries := append([]string{"Okänd bransch"}, Industries...)
	for _, industry := range industries {
		t.Run(industry, func(t *testing.T) {
			kws := e.GenerateKeywords(industry)
			require.Len(t, kws, KeywordCount)

			ids := map[string]bool{}
			for i, kw := range kws {
				assert.Equal(t, fmt.Sprintf("kw-%d", i), kw.ID)
				ids[kw.ID] = true
				assert.GreaterOrEqual(t, kw.MonthlyVolume, 100)
				assert.Less(t, kw.MonthlyVolume, 5100)
				assert.True(t, kw.Competition.IsValid())
				assert.GreaterOrEqual(t, kw.RankingPotential, 60)
				assert.Less(t, kw.RankingPotential, 100)
				assert.GreaterOrEqual(t, kw.TimeEstimateMonths, 3)
				assert.Less(t, kw.TimeEstimateMonths, 43)
			}
			assert.Len(t, ids, KeywordCount)
		})
	}
}

func TestGenerateKeywords_Texts(t *testing.T) {
	kws := NewEngine(WithSeed(1)).GenerateKeywords(IndustryCleaning)

	assert.Equal(t, "Städtjänster Luleå", kws[0].Text)
	assert.Equal(t, "Städtjänster Västra Skellefteå", kws[1].Text)
	assert.Equal(t, "Billig Städtjänster", kws[2].Text)
	assert.Equal(t, "Städtjänster offert", kws[9].Text)
}

func TestGenerateKeywords_SeedIsReproducible(t *testing.T) {
	a := NewEngine(WithSeed(99)).GenerateKeywords(IndustryConstruction)
	b := NewEngine(WithSeed(99)).GenerateKeywords(IndustryConstruction)
	assert.Equal(t, a, b)
}

func TestGenerateKeywords_CompetitionCoversAllTiers(t *testing.T) {
	e := NewEngine(WithSeed(3))
	seen := map[models.Competition]bool{}
	for i := 0; i < 20; i++ {
		for _, kw := range e.GenerateKeywords(IndustryGeneral) {
			seen[kw.Competition] = true
		}
	}
	assert.Len(t, seen, 3)
}

func TestEngine_ConcurrentUse(t *testing.T) {
	e := NewEngine(WithRandomIndustry(true))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := e.Infer("https://exempel.se")
			_ = e.GenerateKeywords(res.Industry)
		}()
	}
	wg.Wait()
}
