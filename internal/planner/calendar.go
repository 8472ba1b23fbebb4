package planner

import "time"

// CalendarCells is the size of a month grid: six Monday-first weeks.
const CalendarCells = 42

// CalendarDay is one cell of a month grid.
type CalendarDay struct {
	Date         string   `json:"date"`
	Day          int      `json:"day"`
	CurrentMonth bool     `json:"isCurrentMonth"`
	Today        bool     `json:"isToday"`
	Past         bool     `json:"isPast"`
	Meals        []string `json:"meals"`
}

// CalendarMonth lays out the month containing anchor as a Monday-first grid,
// padded with days of the neighbouring months. Meals are read from plan,
// which may be nil.
func CalendarMonth(anchor, today time.Time, plan *WeekPlan) []CalendarDay {
	first := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, anchor.Location())
	start := WeekStart(first)
	todayStr := FormatDate(today)

	days := make([]CalendarDay, CalendarCells)
	for i := range days {
		d := start.AddDate(0, 0, i)
		date := FormatDate(d)
		cell := CalendarDay{
			Date:         date,
			Day:          d.Day(),
			CurrentMonth: d.Month() == anchor.Month(),
			Today:        date == todayStr,
			Past:         date < todayStr,
		}
		if plan != nil {
			cell.Meals = plan.Meals[date]
		}
		days[i] = cell
	}
	return days
}
