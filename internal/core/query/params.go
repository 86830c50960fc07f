package query

type DateFilter string

const (
	DateFilterOverdue   DateFilter = "overdue"
	DateFilterToday     DateFilter = "today"
	DateFilterTomorrow  DateFilter = "tomorrow"
	DateFilterThisWeek  DateFilter = "this_week"
	DateFilterThisMonth DateFilter = "this_month"
	DateFilterNoDueDate DateFilter = "no_due_date"
)

type SortBy string

const (
	SortByDueDate  SortBy = "due_date"
	SortByPriority SortBy = "priority"
	// SortByCreatedAt is not special-cased; like any other value it orders newest first.
	SortByCreatedAt SortBy = "created_at"
)

const (
	thisWeekDays  = 7
	thisMonthDays = 30
)

// Params is the full parameter set of a list request. Zero values mean the
// dimension was not supplied.
type Params struct {
	IsCompleted *bool
	Category    *string
	Search      string
	DateFilter  DateFilter
	SortBy      SortBy
}
