// Package schedule materializes a monthly plan template into one row per
// calendar day.
package schedule

import (
	"time"

	"gymdesk/platform/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// DaysPerPlan is the number of rows produced by Expand.
	DaysPerPlan = 365
	// DefaultBatchSize matches the remote insert limit the rows are written under.
	DefaultBatchSize = 50

	dateLayout = "2006-01-02"
)

// Keying selects which template bucket a date reads from.
type Keying int

const (
	// KeyByCalendarMonth reads bucket time.Month-1 of the date, whatever
	// month the plan started in.
	KeyByCalendarMonth Keying = iota
	// KeyByPlanMonth reads bucket (months elapsed since the start month) % 12.
	KeyByPlanMonth
)

// Input is everything Expand needs.
type Input struct {
	Months   []domain.MonthTemplate
	Start    time.Time
	MemberID primitive.ObjectID
	PlanID   primitive.ObjectID
	Keying   Keying
}

// Expand returns exactly DaysPerPlan rows, one per day from the start
// date. Each day copies the first template of its month bucket whose
// weekday matches, or becomes a rest day.
func Expand(in Input) []domain.PlanDay {
	start := DateOf(in.Start)
	days := make([]domain.PlanDay, 0, DaysPerPlan)

	for i := 0; i < DaysPerPlan; i++ {
		date := start.AddDate(0, 0, i)
		weekday := int(date.Weekday())

		day := domain.PlanDay{
			PlanID:      in.PlanID,
			MemberID:    in.MemberID,
			Date:        date.Format(dateLayout),
			DayIndex:    i,
			WeekNumber:  i/7 + 1,
			MonthNumber: int(date.Month()),
			DayOfWeek:   weekday,
		}

		if tmpl, ok := lookup(in.Months, bucketIndex(in.Keying, start, date), weekday); ok {
			fill(&day, tmpl)
		} else {
			rest(&day)
		}
		days = append(days, day)
	}
	return days
}

// DateOf truncates t to its calendar date in UTC. The calendar date of t
// is taken in t's own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a yyyy-mm-dd date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// FormatDate renders t as yyyy-mm-dd.
func FormatDate(t time.Time) string {
	return DateOf(t).Format(dateLayout)
}

// EndDate is the last day covered by a plan starting on start.
func EndDate(start time.Time) time.Time {
	return DateOf(start).AddDate(0, 0, DaysPerPlan-1)
}

func bucketIndex(k Keying, start, date time.Time) int {
	if k == KeyByPlanMonth {
		elapsed := (date.Year()-start.Year())*12 + int(date.Month()) - int(start.Month())
		return elapsed % 12
	}
	return int(date.Month()) - 1
}

func lookup(months []domain.MonthTemplate, idx, weekday int) (domain.DayTemplate, bool) {
	if idx < 0 || idx >= len(months) {
		return domain.DayTemplate{}, false
	}
	for _, d := range months[idx].Days {
		if d.DayOfWeek == weekday {
			return d, true
		}
	}
	return domain.DayTemplate{}, false
}

func fill(day *domain.PlanDay, t domain.DayTemplate) {
	day.SessionType = t.SessionType
	day.Title = t.Title
	day.Description = t.Description
	day.EstimatedDurationMin = t.EstimatedDurationMin
	day.Exercises = t.Exercises
	if day.Exercises == nil {
		day.Exercises = []domain.Exercise{}
	}
	day.Meals = t.Meals
	day.TargetCalories = t.TargetCalories
	day.IsRest = t.SessionType == domain.SessionTypeRest
}

func rest(day *domain.PlanDay) {
	day.SessionType = domain.SessionTypeRest
	day.Title = "Rest Day"
	day.Description = "Recovery and rest"
	day.EstimatedDurationMin = 0
	day.Exercises = []domain.Exercise{}
	day.IsRest = true
}

// Chunk splits days into consecutive batches of at most size rows.
func Chunk(days []domain.PlanDay, size int) [][]domain.PlanDay {
	if size <= 0 {
		size = DefaultBatchSize
	}
	batches := make([][]domain.PlanDay, 0, (len(days)+size-1)/size)
	for start := 0; start < len(days); start += size {
		end := start + size
		if end > len(days) {
			end = len(days)
		}
		batches = append(batches, days[start:end])
	}
	return batches
}
