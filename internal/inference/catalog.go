package inference

// Industry catalog. Detection only ever yields one of these.
const (
	IndustryCleaning     = "Städtjänster"
	IndustryConstruction = "Bygg"
	IndustryRestaurant   = "Restaurang"
	IndustryHairdresser  = "Frisör"
	IndustryFitness      = "Träning & Hälsa"
	IndustryGeneral      = "Allmänt"
)

// Industries lists the catalog in detection order.
var Industries = []string{
	IndustryCleaning,
	IndustryConstruction,
	IndustryRestaurant,
	IndustryHairdresser,
	IndustryFitness,
	IndustryGeneral,
}

// MaxCities bounds every city list.
const MaxCities = 5

// industryRules map lower-cased URL fragments to an industry, first match wins.
var industryRules = []struct {
	industry  string
	fragments []string
}{
	{IndustryCleaning, []string{"städ", "cleaning"}},
	{IndustryConstruction, []string{"bygg", "construction"}},
	{IndustryRestaurant, []string{"restaurang", "restaurant"}},
	{IndustryHairdresser, []string{"frisör", "salon"}},
	{IndustryFitness, []string{"träning", "gym"}},
}

var cityLists = map[string][]string{
	IndustryCleaning:     {"Luleå", "Västra Skellefteå", "Arvidsjaur", "Piteå", "Boden"},
	IndustryConstruction: {"Stockholm", "Göteborg", "Malmö", "Uppsala", "Linköping"},
	IndustryRestaurant:   {"Stockholm", "Göteborg", "Malmö", "Uppsala"},
	IndustryHairdresser:  {"Stockholm", "Göteborg", "Malmö", "Uppsala", "Linköping"},
	IndustryFitness:      {"Stockholm", "Göteborg", "Malmö"},
	IndustryGeneral:      {"Stockholm", "Göteborg", "Malmö"},
}

// keywordTemplates expand with %[1]s = industry, %[2]s and %[3]s = the first two cities.
var keywordTemplates = []string{
	"%[1]s %[2]s",
	"%[1]s %[3]s",
	"Billig %[1]s",
	"%[1]s snabbt",
	"%[1]s tjänst",
	"Professionell %[1]s",
	"%[1]s pris",
	"%[1]s online",
	"%[1]s städer",
	"%[1]s offert",
}

// KeywordCount is the number of candidates generated per industry.
const KeywordCount = 10
