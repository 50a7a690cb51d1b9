package reporting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/farmsales/internal/domain/models"
)

// SalesSource lists committed sales within an inclusive range.
type SalesSource interface {
	ListSales(ctx context.Context, rng models.DateRange) ([]models.SaleRecord, error)
}

// Dashboard is the KPI view for one resolved period.
type Dashboard struct {
	Filter  models.PeriodFilter `json:"filter"`
	Range   models.DateRange    `json:"range"`
	KPI     models.SalesKPI     `json:"kpi"`
	Records []models.SaleRecord `json:"records,omitempty"`
}

// Service resolves periods against the ledger and aggregates what it returns.
type Service struct {
	sales    SalesSource
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires a reporting service. A nil location means UTC.
func NewService(sales SalesSource, location *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	return &Service{sales: sales, location: location, logger: logger, now: time.Now}
}

// ListSales returns the resolved range and the records it contains.
func (s *Service) ListSales(ctx context.Context, filter models.PeriodFilter) (models.DateRange, []models.SaleRecord, error) {
	rng := ResolveRange(filter, s.now().In(s.location))
	records, err := s.sales.ListSales(ctx, rng)
	if err != nil {
		return rng, nil, &models.PersistenceError{Op: "list sales", Err: err}
	}
	return rng, records, nil
}

// Dashboard recomputes the KPIs for filter from scratch.
func (s *Service) Dashboard(ctx context.Context, filter models.PeriodFilter, withRecords bool) (Dashboard, error) {
	rng, records, err := s.ListSales(ctx, filter)
	if err != nil {
		return Dashboard{}, err
	}

	s.logger.Debug("dashboard computed",
		zap.String("period", string(filter.Kind)),
		zap.String("from", rng.From),
		zap.String("to", rng.To),
		zap.Int("records", len(records)))

	d := Dashboard{Filter: filter, Range: rng, KPI: Aggregate(records)}
	if withRecords {
		d.Records = records
	}
	return d, nil
}

// WeeklySummary renders the current ISO week's KPIs as a short text message.
func (s *Service) WeeklySummary(ctx context.Context) (string, error) {
	d, err := s.Dashboard(ctx, models.PeriodFilter{Kind: models.PeriodThisWeek}, false)
	if err != nil {
		return "", fmt.Errorf("weekly summary: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Ventas %s a %s\n", d.Range.From, d.Range.To)
	if d.KPI.TotalCount == 0 {
		b.WriteString("Sin ventas registradas.")
		return b.String(), nil
	}
	for _, species := range models.AllSpecies {
		count := d.KPI.CountBySpecies[species]
		if count == 0 {
			continue
		}
		fmt.Fprintf(&b, "- %s: %d animales, %.2f\n", speciesLabel(species), count, d.KPI.AmountBySpecies[species])
	}
	fmt.Fprintf(&b, "Total: %d animales, %.2f", d.KPI.TotalCount, d.KPI.TotalAmount)
	return b.String(), nil
}

// DailySnapshot aggregates the sales of the day before now.
func (s *Service) DailySnapshot(ctx context.Context) (models.SalesSnapshot, error) {
	filter := models.PeriodFilter{Kind: models.PeriodYesterday}
	rng, records, err := s.ListSales(ctx, filter)
	if err != nil {
		return models.SalesSnapshot{}, fmt.Errorf("daily snapshot: %w", err)
	}

	kpi := Aggregate(records)
	snapshot := models.SalesSnapshot{
		Date:            rng.From,
		RecordCount:     len(records),
		CountBySpecies:  make(map[string]int, len(kpi.CountBySpecies)),
		AmountBySpecies: make(map[string]float64, len(kpi.AmountBySpecies)),
		TotalCount:      kpi.TotalCount,
		TotalAmount:     kpi.TotalAmount,
		CreatedAt:       s.now().UTC(),
	}
	for species, count := range kpi.CountBySpecies {
		snapshot.CountBySpecies[string(species)] = count
	}
	for species, amount := range kpi.AmountBySpecies {
		snapshot.AmountBySpecies[string(species)] = amount
	}
	return snapshot, nil
}

func speciesLabel(species models.Species) string {
	switch species {
	case models.SpeciesPoultry:
		return "Aves"
	case models.SpeciesSwine:
		return "Cerdos"
	default:
		return "Otros"
	}
}
