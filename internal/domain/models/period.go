package models

// PeriodKind enumerates the calendar periods the sales dashboard can filter by.
type PeriodKind string

const (
	PeriodAll       PeriodKind = "all"
	PeriodToday     PeriodKind = "today"
	PeriodYesterday PeriodKind = "yesterday"
	PeriodThisWeek  PeriodKind = "week"
	PeriodMonth     PeriodKind = "month"
	PeriodYear      PeriodKind = "year"
	PeriodCustom    PeriodKind = "custom"
)

// PeriodFilter selects a calendar period. Month ("2006-01") is read only for PeriodMonth,
// Year ("2006") only for PeriodYear, From/To only for PeriodCustom.
type PeriodFilter struct {
	Kind  PeriodKind `json:"kind"`
	Month string     `json:"month,omitempty"`
	Year  string     `json:"year,omitempty"`
	From  string     `json:"from,omitempty"`
	To    string     `json:"to,omitempty"`
}

// ParsePeriodKind maps user input onto a PeriodKind, falling back to PeriodAll.
func ParsePeriodKind(value string) PeriodKind {
	switch kind := PeriodKind(value); kind {
	case PeriodToday, PeriodYesterday, PeriodThisWeek, PeriodMonth, PeriodYear, PeriodCustom:
		return kind
	default:
		return PeriodAll
	}
}

// DateRange is an inclusive pair of YYYY-MM-DD dates. An empty bound is unbounded.
type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}
