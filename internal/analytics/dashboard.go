// Package analytics aggregates a user's sessions and quiz results within a
// workspace into dashboard figures.
package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"ofuq-backend/internal/models"
)

type Period string

const (
	Period7D  Period = "7D"
	Period30D Period = "30D"
	Period90D Period = "90D"
)

func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "":
		return Period7D, nil
	case Period7D, Period30D, Period90D:
		return Period(s), nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}

type DayMinutes struct {
	Date    string `json:"date"`
	Minutes int    `json:"minutes"`
}

type SubjectMinutes struct {
	SubjectID uuid.UUID `json:"subject_id"`
	Subject   string    `json:"subject"`
	Minutes   int       `json:"minutes"`
}

type SubjectScore struct {
	SubjectID uuid.UUID `json:"subject_id"`
	Subject   string    `json:"subject"`
	Score     int       `json:"score"`
	Attempts  int       `json:"attempts"`
}

type DailyGoal struct {
	GoalMinutes     int `json:"goal_minutes"`
	StudiedMinutes  int `json:"studied_minutes"`
	AchievedPercent int `json:"achieved_percent"`
}

type Dashboard struct {
	Period          Period           `json:"period"`
	Activity        []DayMinutes     `json:"activity"`
	SubjectTime     []SubjectMinutes `json:"subject_time"`
	QuizPerformance []SubjectScore   `json:"quiz_performance"`
	DailyGoal       DailyGoal        `json:"daily_goal"`
	TotalHours      float64          `json:"total_hours"`
	Streak          int              `json:"streak"`
}

// Input is everything the dashboard is computed from.
type Input struct {
	Sessions    []*models.StudySession
	QuizResults []*models.QuizResult
	Subjects    []*models.Subject
	Today       string
	GoalMinutes int
}

// Build computes all dashboard figures for a period. Totals other than
// Activity cover the user's whole history in the workspace.
func Build(in Input, period Period) Dashboard {
	names := make(map[uuid.UUID]string, len(in.Subjects))
	for _, s := range in.Subjects {
		names[s.ID] = s.Name
	}

	minutesByDay := make(map[string]int)
	totalMinutes := 0
	for _, s := range in.Sessions {
		minutesByDay[s.Date] += s.DurationMinutes
		totalMinutes += s.DurationMinutes
	}

	return Dashboard{
		Period:          period,
		Activity:        activity(minutesByDay, in.Today, period),
		SubjectTime:     subjectTime(in.Sessions, names),
		QuizPerformance: quizPerformance(in.QuizResults, names),
		DailyGoal:       dailyGoal(minutesByDay[in.Today], in.GoalMinutes),
		TotalHours:      math.Round(float64(totalMinutes)/60*10) / 10,
		Streak:          Streak(minutesByDay, in.Today),
	}
}

// DateRange lists the days a period's activity chart covers. 7D is the
// Saturday-started week containing today; longer periods trail today.
func DateRange(today string, period Period) []string {
	t, err := time.Parse(models.DayLayout, today)
	if err != nil {
		return nil
	}

	if period == Period7D {
		back := (int(t.Weekday()) + 1) % 7
		start := t.AddDate(0, 0, -back)
		days := make([]string, 7)
		for i := range days {
			days[i] = models.DayString(start.AddDate(0, 0, i))
		}
		return days
	}

	n := 30
	if period == Period90D {
		n = 90
	}
	days := make([]string, n)
	for i := range days {
		days[i] = models.DayString(t.AddDate(0, 0, i-(n-1)))
	}
	return days
}

func activity(minutesByDay map[string]int, today string, period Period) []DayMinutes {
	days := DateRange(today, period)
	out := make([]DayMinutes, len(days))
	for i, d := range days {
		out[i] = DayMinutes{Date: d, Minutes: minutesByDay[d]}
	}
	return out
}

func subjectName(names map[uuid.UUID]string, id uuid.UUID) string {
	if n, ok := names[id]; ok {
		return n
	}
	return id.String()
}

func subjectTime(sessions []*models.StudySession, names map[uuid.UUID]string) []SubjectMinutes {
	totals := make(map[uuid.UUID]int)
	for _, s := range sessions {
		totals[s.SubjectID] += s.DurationMinutes
	}

	out := make([]SubjectMinutes, 0, len(totals))
	for id, m := range totals {
		out = append(out, SubjectMinutes{SubjectID: id, Subject: subjectName(names, id), Minutes: m})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Minutes != out[j].Minutes {
			return out[i].Minutes > out[j].Minutes
		}
		return out[i].Subject < out[j].Subject
	})
	return out
}

func quizPerformance(results []*models.QuizResult, names map[uuid.UUID]string) []SubjectScore {
	type agg struct{ sum, n int }
	stats := make(map[uuid.UUID]*agg)
	for _, r := range results {
		a, ok := stats[r.SubjectID]
		if !ok {
			a = &agg{}
			stats[r.SubjectID] = a
		}
		a.sum += r.ScorePercent
		a.n++
	}

	out := make([]SubjectScore, 0, len(stats))
	for id, a := range stats {
		out = append(out, SubjectScore{
			SubjectID: id,
			Subject:   subjectName(names, id),
			Score:     int(math.Floor(float64(a.sum)/float64(a.n) + 0.5)),
			Attempts:  a.n,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Subject < out[j].Subject })
	return out
}

func dailyGoal(studied, goal int) DailyGoal {
	if goal <= 0 {
		goal = 120
	}
	pct := int(math.Floor(100*float64(studied)/float64(goal) + 0.5))
	if pct > 100 {
		pct = 100
	}
	return DailyGoal{GoalMinutes: goal, StudiedMinutes: studied, AchievedPercent: pct}
}
