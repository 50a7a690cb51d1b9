package reporting

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/farmsales/internal/domain/models"
)

// Sale records carry no species id, so species is guessed from the animal name.
// "ave" also matches words such as "nave"; the heuristic is kept as is.
var (
	poultryKeywords = []string{"pollo", "ave", "gallina"}
	swineKeywords   = []string{"chancho", "cerdo", "puerco"}
)

// ClassifySpecies buckets a sale by keywords found in its animal name. Poultry wins ties.
func ClassifySpecies(record models.SaleRecord) models.Species {
	name := strings.ToLower(record.AnimalName)
	switch {
	case containsAny(name, poultryKeywords):
		return models.SpeciesPoultry
	case containsAny(name, swineKeywords):
		return models.SpeciesSwine
	default:
		return models.SpeciesUnclassified
	}
}

// Aggregate sums quantities and totals per species and overall in one pass.
func Aggregate(records []models.SaleRecord) models.SalesKPI {
	kpi := models.SalesKPI{
		CountBySpecies:  make(map[models.Species]int, len(models.AllSpecies)),
		AmountBySpecies: make(map[models.Species]float64, len(models.AllSpecies)),
	}
	amounts := make(map[models.Species]decimal.Decimal, len(models.AllSpecies))
	grand := decimal.Zero

	for _, species := range models.AllSpecies {
		kpi.CountBySpecies[species] = 0
		amounts[species] = decimal.Zero
	}

	for _, record := range records {
		species := ClassifySpecies(record)
		total := decimal.NewFromFloat(record.Total)

		kpi.CountBySpecies[species] += record.Quantity
		kpi.TotalCount += record.Quantity
		amounts[species] = amounts[species].Add(total)
		grand = grand.Add(total)
	}

	for species, amount := range amounts {
		kpi.AmountBySpecies[species] = amount.Round(2).InexactFloat64()
	}
	kpi.TotalAmount = grand.Round(2).InexactFloat64()
	return kpi
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
