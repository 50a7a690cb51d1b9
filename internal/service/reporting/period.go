package reporting

import (
	"strings"
	"time"

	"github.com/mamadbah2/farmsales/internal/domain/models"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
	yearLayout  = "2006"
)

// ResolveRange turns a period filter into inclusive YYYY-MM-DD bounds relative to ref.
// PeriodAll resolves to an unbounded range.
func ResolveRange(filter models.PeriodFilter, ref time.Time) models.DateRange {
	day := startOfDay(ref)

	switch filter.Kind {
	case models.PeriodToday:
		return singleDay(day)
	case models.PeriodYesterday:
		return singleDay(day.AddDate(0, 0, -1))
	case models.PeriodThisWeek:
		return models.DateRange{From: mondayStart(day).Format(dateLayout), To: day.Format(dateLayout)}
	case models.PeriodMonth:
		first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
		if month, err := time.ParseInLocation(monthLayout, strings.TrimSpace(filter.Month), day.Location()); err == nil {
			first = month
		}
		last := first.AddDate(0, 1, -1)
		return models.DateRange{From: first.Format(dateLayout), To: last.Format(dateLayout)}
	case models.PeriodYear:
		year := day.Year()
		if parsed, err := time.ParseInLocation(yearLayout, strings.TrimSpace(filter.Year), day.Location()); err == nil {
			year = parsed.Year()
		}
		return models.DateRange{
			From: time.Date(year, time.January, 1, 0, 0, 0, 0, day.Location()).Format(dateLayout),
			To:   time.Date(year, time.December, 31, 0, 0, 0, 0, day.Location()).Format(dateLayout),
		}
	case models.PeriodCustom:
		return models.DateRange{From: filter.From, To: filter.To}
	default:
		return models.DateRange{}
	}
}

func singleDay(day time.Time) models.DateRange {
	d := day.Format(dateLayout)
	return models.DateRange{From: d, To: d}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// mondayStart returns the Monday of the ISO week containing t.
func mondayStart(t time.Time) time.Time {
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	return startOfDay(t.AddDate(0, 0, -daysSinceMonday))
}
