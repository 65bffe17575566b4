// Package history содержит чистые функции над журналом оборудования:
// фильтрацию, проекцию статуса и правила переходов активностей.
package history

import (
	"sort"
	"strings"
	"time"

	"field-equipment/internal/entities"
	"field-equipment/pkg/constants"
)

// FilterSpec описывает представление журнала для одной единицы оборудования.
type FilterSpec struct {
	Type       string
	DateFilter string
	From       *time.Time
	To         *time.Time
	SearchTerm string
}

// Bounds возвращает границы по from_date в днях часового пояса now.
// nil означает отсутствие ограничения с этой стороны.
func Bounds(spec FilterSpec, now time.Time) (lower, upper *time.Time) {
	today := startOfDay(now, now.Location())

	switch spec.DateFilter {
	case constants.DateFilterPastMonth:
		l := today.AddDate(0, -1, 0)
		return &l, &today
	case constants.DateFilterPastSixMonth:
		l := today.AddDate(0, -6, 0)
		return &l, &today
	case constants.DateFilterPastYear:
		l := today.AddDate(-1, 0, 0)
		return &l, &today
	case constants.DateFilterCustom:
		if spec.From != nil {
			l := startOfDay(*spec.From, now.Location())
			lower = &l
		}
		if spec.To != nil {
			u := startOfDay(*spec.To, now.Location())
			upper = &u
		} else if lower != nil {
			upper = &today
		}
		return lower, upper
	}
	return nil, nil
}

// Apply фильтрует по типу, диапазону дат и строке поиска, затем сортирует
// по from_date от новых к старым. Равные даты сохраняют входной порядок.
// Исходный срез не изменяется.
func Apply(entries []entities.EquipmentHistoryEntry, spec FilterSpec, now time.Time) []entities.EquipmentHistoryEntry {
	lower, upper := Bounds(spec, now)
	term := strings.ToLower(strings.TrimSpace(spec.SearchTerm))
	loc := now.Location()

	out := make([]entities.EquipmentHistoryEntry, 0, len(entries))
	for _, e := range entries {
		if spec.Type != "" && e.Type != spec.Type {
			continue
		}
		day := startOfDay(e.FromDate, loc)
		if lower != nil && day.Before(*lower) {
			continue
		}
		if upper != nil && day.After(*upper) {
			continue
		}
		if term != "" && !MatchesSearch(e, term) {
			continue
		}
		out = append(out, e)
	}

	SortNewestFirst(out)
	return out
}

// MatchesSearch - регистронезависимый поиск подстроки по текстовым полям записи.
func MatchesSearch(e entities.EquipmentHistoryEntry, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}

	fields := []string{e.Description, deref(e.Location), deref(e.Reason), deref(e.FromStatus), deref(e.ToStatus)}
	if e.ResponsiblePerson != nil {
		fields = append(fields, e.ResponsiblePerson.Name)
	}
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// SortNewestFirst - стабильная сортировка по from_date по убыванию.
func SortNewestFirst(entries []entities.EquipmentHistoryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].FromDate.After(entries[j].FromDate)
	})
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
