package ai

import (
	"fmt"
	"strings"

	"gymdesk/platform/internal/domain"
)

// Phases cycle through the year in three month blocks.
var phases = []struct {
	name  string
	focus string
}{
	{"Foundation", "Technique and general conditioning"},
	{"Hypertrophy", "Volume and muscle endurance"},
	{"Strength", "Heavier loads, lower reps"},
	{"Peak", "Intensity and conditioning"},
}

// trainingDays picks weekdays for n sessions, spread across the week.
func trainingDays(n int) []int {
	switch {
	case n <= 2:
		return []int{2, 5}
	case n == 3:
		return []int{1, 3, 5}
	case n == 4:
		return []int{1, 2, 4, 5}
	case n == 5:
		return []int{1, 2, 3, 4, 5}
	default:
		return []int{1, 2, 3, 4, 5, 6}
	}
}

var fallbackSessions = []domain.DayTemplate{
	{
		SessionType: "strength", Title: "Full Body A", EstimatedDurationMin: 50,
		Exercises: []domain.Exercise{
			{Name: "Goblet Squat", Sets: 3, Reps: "10", RestSeconds: 90},
			{Name: "Push-up", Sets: 3, Reps: "8-12", RestSeconds: 60},
			{Name: "Dumbbell Row", Sets: 3, Reps: "10", RestSeconds: 60},
			{Name: "Plank", Sets: 3, Reps: "30s", RestSeconds: 45},
		},
	},
	{
		SessionType: "cardio", Title: "Conditioning", EstimatedDurationMin: 35,
		Exercises: []domain.Exercise{
			{Name: "Brisk Walk or Easy Run", Sets: 1, Reps: "20 min"},
			{Name: "Kettlebell Swing", Sets: 4, Reps: "15", RestSeconds: 45},
			{Name: "Mountain Climber", Sets: 3, Reps: "30s", RestSeconds: 30},
		},
	},
	{
		SessionType: "strength", Title: "Full Body B", EstimatedDurationMin: 50,
		Exercises: []domain.Exercise{
			{Name: "Romanian Deadlift", Sets: 3, Reps: "10", RestSeconds: 90},
			{Name: "Overhead Press", Sets: 3, Reps: "8-10", RestSeconds: 90},
			{Name: "Lat Pulldown", Sets: 3, Reps: "10-12", RestSeconds: 60},
			{Name: "Walking Lunge", Sets: 3, Reps: "12 each", RestSeconds: 60},
		},
	},
}

// FallbackWorkout is the static year served when generation fails.
func FallbackWorkout(mc MemberContext) Template {
	days := trainingDays(mc.DaysPerWeek)
	months := make([]domain.MonthTemplate, monthsPerYear)
	for m := range months {
		phase := phases[(m/3)%len(phases)]
		month := domain.MonthTemplate{Month: m, Phase: phase.name, Focus: phase.focus}
		for i, dow := range days {
			session := fallbackSessions[i%len(fallbackSessions)]
			session.DayOfWeek = dow
			session.Description = phase.focus
			month.Days = append(month.Days, session)
		}
		months[m] = month
	}
	return Template{Title: fmt.Sprintf("%s program", titleGoal(mc.Goal)), Months: months}
}

// FallbackNutrition repeats one balanced week through the year.
func FallbackNutrition(mc MemberContext) Template {
	calories := mc.TargetCalories
	if calories <= 0 {
		calories = estimateCalories(mc)
	}
	meals := []domain.Meal{
		{Type: "breakfast", Name: "Oatmeal with berries and Greek yogurt", Calories: calories * 25 / 100, ProteinG: 25, CarbsG: 55, FatG: 10},
		{Type: "lunch", Name: "Grilled chicken, rice and vegetables", Calories: calories * 35 / 100, ProteinG: 40, CarbsG: 70, FatG: 15},
		{Type: "snack", Name: "Apple with peanut butter", Calories: calories * 10 / 100, ProteinG: 6, CarbsG: 25, FatG: 9},
		{Type: "dinner", Name: "Salmon, sweet potato and greens", Calories: calories * 30 / 100, ProteinG: 35, CarbsG: 45, FatG: 20},
	}
	months := make([]domain.MonthTemplate, monthsPerYear)
	for m := range months {
		month := domain.MonthTemplate{Month: m, Phase: "Balanced", Focus: "Consistent whole food intake"}
		for dow := 0; dow < 7; dow++ {
			month.Days = append(month.Days, domain.DayTemplate{
				DayOfWeek:      dow,
				SessionType:    "nutrition",
				Title:          "Balanced Day",
				TargetCalories: calories,
				Meals:          meals,
			})
		}
		months[m] = month
	}
	return Template{Title: fmt.Sprintf("%s nutrition", titleGoal(mc.Goal)), Months: months}
}

// estimateCalories uses bodyweight x 30 kcal, adjusted for the goal.
func estimateCalories(mc MemberContext) int {
	base := 2200
	if mc.WeightKg > 0 {
		base = int(mc.WeightKg * 30)
	}
	switch mc.Goal {
	case "lose weight", "fat loss":
		base -= 400
	case "build muscle", "muscle gain":
		base += 300
	}
	if base < 1400 {
		base = 1400
	}
	return base
}

func titleGoal(goal string) string {
	if goal == "" {
		return "General fitness"
	}
	return strings.ToUpper(goal[:1]) + goal[1:]
}
