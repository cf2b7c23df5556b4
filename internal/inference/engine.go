// Package inference derives industry, focus cities, placeholder competitors
// and keyword candidates from a submitted domain.
package inference

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"seo-offers/internal/models"
)

// Result is what the auto-detect step shows.
type Result struct {
	Industry    string   `json:"industry"`
	Cities      []string `json:"cities"`
	Competitors []string `json:"competitors"`
	// CompetitorsArePlaceholders is always true: the competitor list is
	// synthesised from industry and city names, not looked up.
	CompetitorsArePlaceholders bool `json:"competitors_are_placeholders"`
}

// Engine is safe for concurrent use.
type Engine struct {
	mu             sync.Mutex
	rng            *rand.Rand
	cityCount      int
	randomIndustry bool
}

type Option func(*Engine)

// WithSeed makes keyword metrics and random industries reproducible.
func WithSeed(seed uint64) Option {
	return func(e *Engine) {
		e.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithCityCount sets how many cities Infer returns, clamped to [1, MaxCities].
func WithCityCount(n int) Option {
	return func(e *Engine) {
		e.cityCount = min(max(n, 1), MaxCities)
	}
}

// WithRandomIndustry picks a uniformly random catalog industry instead of
// matching the URL. Intended for demo data.
func WithRandomIndustry(enabled bool) Option {
	return func(e *Engine) {
		e.randomIndustry = enabled
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		cityCount: 3,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Infer maps a URL to catalog data. It never fails and never returns an
// empty city list.
func (e *Engine) Infer(url string) Result {
	industry := e.industryFor(url)
	cities := SuggestCities(industry, e.cityCount)

	competitors := make([]string, 0, len(cities)*3)
	for _, city := range cities {
		competitors = append(competitors, Competitors(industry, city)...)
	}

	return Result{
		Industry:                   industry,
		Cities:                     cities,
		Competitors:                competitors,
		CompetitorsArePlaceholders: true,
	}
}

func (e *Engine) industryFor(url string) string {
	if e.randomIndustry {
		e.mu.Lock()
		defer e.mu.Unlock()
		return Industries[e.rng.IntN(len(Industries))]
	}
	return DetectIndustry(url)
}

// GenerateKeywords returns exactly KeywordCount candidates with synthetic
// metrics. Unknown industries use the general city list.
func (e *Engine) GenerateKeywords(industry string) []models.Keyword {
	cities := SuggestCities(industry, 2)
	second := cities[0]
	if len(cities) > 1 {
		second = cities[1]
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]models.Keyword, KeywordCount)
	for i, tmpl := range keywordTemplates {
		out[i] = models.Keyword{
			ID:                 fmt.Sprintf("kw-%d", i),
			Text:               fmt.Sprintf(tmpl, industry, cities[0], second),
			MonthlyVolume:      e.rng.IntN(5000) + 100,
			Competition:        models.Competitions[e.rng.IntN(len(models.Competitions))],
			RankingPotential:   e.rng.IntN(40) + 60,
			TimeEstimateMonths: e.rng.IntN(40) + 3,
		}
	}
	return out
}

// DetectIndustry applies the substring rules to the lower-cased URL.
func DetectIndustry(url string) string {
	lower := strings.ToLower(url)
	for _, rule := range industryRules {
		for _, frag := range rule.fragments {
			if strings.Contains(lower, frag) {
				return rule.industry
			}
		}
	}
	return IndustryGeneral
}

// SuggestCities returns up to n cities for the industry.
func SuggestCities(industry string, n int) []string {
	list, ok := cityLists[industry]
	if !ok {
		list = cityLists[IndustryGeneral]
	}
	n = min(max(n, 1), len(list))
	out := make([]string, n)
	copy(out, list[:n])
	return out
}

// Competitors synthesises three placeholder domains for an industry and city.
func Competitors(industry, city string) []string {
	ind := slug(industry)
	c := slug(city)
	return []string{
		fmt.Sprintf("%s-%s.se", ind, c),
		fmt.Sprintf("bästa-%s-%s.se", ind, c),
		fmt.Sprintf("%s-%s.com", c, ind),
	}
}

func slug(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "-")
}
