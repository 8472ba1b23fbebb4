package planner

import (
	"testing"
	"time"
)

func TestWeekStart(t *testing.T) {
	tests := []struct {
		day  string
		want string
	}{
		{"2024-01-08", "2024-01-08"}, // Monday
		{"2024-01-10", "2024-01-08"}, // Wednesday
		{"2024-01-14", "2024-01-08"}, // Sunday belongs to the week before it
		{"2024-01-01", "2024-01-01"},
		{"2024-03-03", "2024-02-26"}, // across a month boundary
	}
	for _, tt := range tests {
		t.Run(tt.day, func(t *testing.T) {
			d, err := ParseDate(tt.day)
			if err != nil {
				t.Fatalf("Failed to parse date: %v", err)
			}
			if got := FormatDate(WeekStart(d)); got != tt.want {
				t.Errorf("Expected week start %s, got %s", tt.want, got)
			}
		})
	}
}

func TestWeekEndAndDates(t *testing.T) {
	d := time.Date(2024, 1, 10, 18, 0, 0, 0, time.UTC)

	if got := FormatDate(WeekEnd(d)); got != "2024-01-14" {
		t.Errorf("Expected week end 2024-01-14, got %s", got)
	}

	dates := WeekDates(d)
	if len(dates) != 7 {
		t.Fatalf("Expected 7 dates, got %d", len(dates))
	}
	if dates[0] != "2024-01-08" || dates[6] != "2024-01-14" {
		t.Errorf("Unexpected week dates: %v", dates)
	}
}

func TestCalendarMonth(t *testing.T) {
	anchor := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	today := time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC)
	plan := &WeekPlan{Meals: map[string][]string{"2024-02-12": {"r1"}}}

	days := CalendarMonth(anchor, today, plan)

	if len(days) != CalendarCells {
		t.Fatalf("Expected %d cells, got %d", CalendarCells, len(days))
	}
	// February 2024 starts on a Thursday; the grid opens on Monday 2024-01-29.
	if days[0].Date != "2024-01-29" || days[0].CurrentMonth {
		t.Errorf("Unexpected first cell: %+v", days[0])
	}
	if days[3].Date != "2024-02-01" || !days[3].CurrentMonth {
		t.Errorf("Unexpected cell for Feb 1: %+v", days[3])
	}

	var todayCells, pastCells int
	for _, d := range days {
		if d.Today {
			todayCells++
			if d.Date != "2024-02-10" {
				t.Errorf("Expected today to be 2024-02-10, got %s", d.Date)
			}
		}
		if d.Past {
			pastCells++
		}
		if d.Date == "2024-02-12" && len(d.Meals) != 1 {
			t.Errorf("Expected planned meal on 2024-02-12, got %v", d.Meals)
		}
	}
	if todayCells != 1 {
		t.Errorf("Expected exactly one today cell, got %d", todayCells)
	}
	// 2024-01-29 through 2024-02-09.
	if pastCells != 12 {
		t.Errorf("Expected 12 past cells, got %d", pastCells)
	}

	if empty := CalendarMonth(anchor, today, nil); empty[0].Meals != nil {
		t.Error("Expected no meals without a plan")
	}
}
