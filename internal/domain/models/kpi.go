package models

// Species is the coarse classification used by the sales dashboard.
type Species string

const (
	SpeciesPoultry      Species = "poultry"
	SpeciesSwine        Species = "swine"
	SpeciesUnclassified Species = "unclassified"
)

// AllSpecies lists the buckets in display order.
var AllSpecies = []Species{SpeciesPoultry, SpeciesSwine, SpeciesUnclassified}

// SalesKPI holds per-species and overall sales figures for one period.
type SalesKPI struct {
	CountBySpecies  map[Species]int     `json:"count_by_species"`
	AmountBySpecies map[Species]float64 `json:"amount_by_species"`
	TotalCount      int                 `json:"total_count"`
	TotalAmount     float64             `json:"total_amount"`
}
