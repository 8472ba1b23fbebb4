package profile

import (
	"fmt"
	"time"
)

// AgeInMonths returns whole months elapsed between an ISO birthday and now.
// A month only counts once its day-of-month is reached. An empty or invalid
// birthday, or one in the future, yields 0.
func AgeInMonths(birthday string, now time.Time) int {
	if birthday == "" {
		return 0
	}
	born, err := time.Parse(BirthdayLayout, birthday)
	if err != nil {
		return 0
	}
	months := (now.Year()-born.Year())*12 + int(now.Month()) - int(born.Month())
	if now.Day() < born.Day() {
		months--
	}
	return max(0, months)
}

// FormatAge renders an age in months for display.
func FormatAge(months int) string {
	if months <= 0 {
		return "not set"
	}
	if months < 12 {
		return plural(months, "month")
	}
	years, rest := months/12, months%12
	if rest == 0 {
		return plural(years, "year")
	}
	return plural(years, "year") + " " + plural(rest, "month")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
