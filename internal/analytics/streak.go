package analytics

import (
	"time"

	"ofuq-backend/internal/models"
)

// Streak counts consecutive study days ending today. Today not having been
// studied yet does not break the streak; counting then starts at yesterday.
// Any other day without study ends it.
func Streak(minutesByDay map[string]int, today string) int {
	if _, err := time.Parse(models.DayLayout, today); err != nil {
		return 0
	}

	day := today
	if minutesByDay[day] <= 0 {
		day = models.AddDays(day, -1)
	}

	n := 0
	for minutesByDay[day] > 0 {
		n++
		day = models.AddDays(day, -1)
	}
	return n
}
