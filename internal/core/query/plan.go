package query

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"taskapp/internal/core/domain"
)

type Predicate func(t *domain.Task) bool

// Comparator orders two tasks; negative when a sorts first.
type Comparator func(a, b *domain.Task) int

type Plan struct {
	Predicates []Predicate
	Compare    Comparator
}

// Compile turns a parameter set into a predicate chain and a total order.
// today is fixed for the whole plan.
func Compile(p Params, today domain.Date) Plan {
	return Plan{
		Predicates: compact(
			completionFilter(p.IsCompleted),
			categoryFilter(p.Category),
			dateFilter(p.DateFilter, today),
			searchFilter(p.Search),
		),
		Compare: chain(append(sortKeys(p.SortBy), byIDDesc)...),
	}
}

// Less reports whether a sorts strictly before b.
func (pl Plan) Less(a, b *domain.Task) bool {
	return pl.Compare(a, b) < 0
}

func (pl Plan) Match(t *domain.Task) bool {
	for _, pred := range pl.Predicates {
		if !pred(t) {
			return false
		}
	}

	return true
}

// Apply filters first and then sorts the survivors. The input is not modified.
func (pl Plan) Apply(tasks []domain.Task) []domain.Task {
	out := make([]domain.Task, 0, len(tasks))

	for i := range tasks {
		if pl.Match(&tasks[i]) {
			out = append(out, tasks[i])
		}
	}

	slices.SortStableFunc(out, func(a, b domain.Task) int {
		return pl.Compare(&a, &b)
	})

	return out
}

func Resolve(tasks []domain.Task, p Params, today domain.Date) []domain.Task {
	return Compile(p, today).Apply(tasks)
}

func compact(preds ...Predicate) []Predicate {
	return slices.DeleteFunc(preds, func(p Predicate) bool { return p == nil })
}

func completionFilter(want *bool) Predicate {
	if want == nil {
		return nil
	}

	v := *want
	return func(t *domain.Task) bool { return t.IsCompleted == v }
}

func categoryFilter(want *string) Predicate {
	if want == nil {
		return nil
	}

	v := *want
	return func(t *domain.Task) bool { return t.Category == v }
}

func dateFilter(f DateFilter, today domain.Date) Predicate {
	between := func(from, to domain.Date) Predicate {
		return func(t *domain.Task) bool {
			return t.DueDate != nil && !t.DueDate.Before(from) && !t.DueDate.After(to)
		}
	}

	switch f {
	case DateFilterOverdue:
		return func(t *domain.Task) bool { return t.DueDate != nil && t.DueDate.Before(today) }
	case DateFilterToday:
		return between(today, today)
	case DateFilterTomorrow:
		tomorrow := today.AddDays(1)
		return between(tomorrow, tomorrow)
	case DateFilterThisWeek:
		return between(today, today.AddDays(thisWeekDays))
	case DateFilterThisMonth:
		return between(today, today.AddDays(thisMonthDays))
	case DateFilterNoDueDate:
		return func(t *domain.Task) bool { return t.DueDate == nil }
	default:
		return nil
	}
}

// searchFilter matches the term against title, description and category
// under Unicode case folding, so "ΛΌΓΟΣ" finds "λόγος".
func searchFilter(term string) Predicate {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(term))

	if needle == "" {
		return nil
	}

	return func(t *domain.Task) bool {
		for _, field := range [...]string{t.Title, t.DescriptionOrEmpty(), t.Category} {
			if strings.Contains(fold.String(field), needle) {
				return true
			}
		}

		return false
	}
}

func sortKeys(by SortBy) []Comparator {
	switch by {
	case SortByPriority:
		return []Comparator{byPriority, byCreatedDesc}
	case SortByDueDate, "":
		return []Comparator{dueDateFirst, byDueDate, byPriority, byCreatedDesc}
	default:
		return []Comparator{byCreatedDesc}
	}
}

func chain(keys ...Comparator) Comparator {
	return func(a, b *domain.Task) int {
		for _, key := range keys {
			if c := key(a, b); c != 0 {
				return c
			}
		}

		return 0
	}
}

func dueDateFirst(a, b *domain.Task) int {
	switch {
	case a.HasDueDate() == b.HasDueDate():
		return 0
	case a.HasDueDate():
		return -1
	default:
		return 1
	}
}

func byDueDate(a, b *domain.Task) int {
	if a.DueDate == nil || b.DueDate == nil {
		return 0
	}

	return a.DueDate.Compare(*b.DueDate)
}

func byPriority(a, b *domain.Task) int {
	return cmp.Compare(a.Priority, b.Priority)
}

func byCreatedDesc(a, b *domain.Task) int {
	return b.CreatedAt.Compare(a.CreatedAt)
}

func byIDDesc(a, b *domain.Task) int {
	return cmp.Compare(b.ID, a.ID)
}
