package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gymdesk/platform/internal/domain"
	"gymdesk/platform/internal/metrics"

	"go.uber.org/zap"
)

const monthsPerYear = 12

var ErrInvalidTemplate = errors.New("ai: template failed validation")

// MemberContext is what the prompts are built from.
type MemberContext struct {
	Name              string
	Goal              string
	Level             string
	DaysPerWeek       int
	Equipment         []string
	DietaryPreference string
	Allergies         []string
	WeightKg          float64
	HeightCm          float64
	BodyFatPct        float64
	TargetCalories    int
}

// NewMemberContext collects the prompt inputs from a profile and its
// latest biometrics, which may be nil.
func NewMemberContext(p *domain.Profile, b *domain.Biometrics) MemberContext {
	mc := MemberContext{
		Name:              p.Name,
		Goal:              p.FitnessGoal,
		Level:             p.FitnessLevel,
		DaysPerWeek:       p.DaysPerWeek,
		Equipment:         p.Equipment,
		DietaryPreference: p.DietaryPreference,
		Allergies:         p.Allergies,
	}
	if b != nil {
		mc.WeightKg = b.WeightKg
		mc.HeightCm = b.HeightCm
		mc.BodyFatPct = b.BodyFatPct
	}
	if mc.DaysPerWeek <= 0 || mc.DaysPerWeek > 7 {
		mc.DaysPerWeek = 3
	}
	if mc.Level == "" {
		mc.Level = "beginner"
	}
	if mc.Goal == "" {
		mc.Goal = "general fitness"
	}
	return mc
}

// Template is a generated year of month buckets.
type Template struct {
	Title  string                 `json:"title"`
	Months []domain.MonthTemplate `json:"months"`
}

// Generator asks the Completer for plan templates and falls back to a
// static template when it can't get a valid one.
type Generator struct {
	completer Completer
	log       *zap.SugaredLogger
}

func NewGenerator(completer Completer, log *zap.SugaredLogger) *Generator {
	return &Generator{completer: completer, log: log}
}

// WorkoutTemplate returns a template and whether it is the fallback. The
// only error returned is a cancelled context.
func (g *Generator) WorkoutTemplate(ctx context.Context, mc MemberContext) (Template, bool, error) {
	return g.generate(ctx, domain.PlanWorkout, workoutSystemPrompt, WorkoutPrompt(mc), func() Template {
		return FallbackWorkout(mc)
	})
}

func (g *Generator) NutritionTemplate(ctx context.Context, mc MemberContext) (Template, bool, error) {
	return g.generate(ctx, domain.PlanNutrition, nutritionSystemPrompt, NutritionPrompt(mc), func() Template {
		return FallbackNutrition(mc)
	})
}

func (g *Generator) generate(ctx context.Context, kind domain.PlanKind, system, prompt string, fallback func() Template) (Template, bool, error) {
	var t Template
	err := g.completer.CompleteJSON(ctx, system, prompt, &t)
	if err == nil {
		err = Validate(kind, t)
	}
	if err == nil {
		return t, false, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Template{}, false, ctxErr
	}
	g.log.Warnw("plan generation failed, using fallback template", "kind", kind, "error", err)
	metrics.IncAIFallback(string(kind))
	return fallback(), true, nil
}

// Validate checks a generated template can be expanded.
func Validate(kind domain.PlanKind, t Template) error {
	if len(t.Months) == 0 || len(t.Months) > monthsPerYear {
		return fmt.Errorf("%w: %d months", ErrInvalidTemplate, len(t.Months))
	}
	for i, m := range t.Months {
		for _, d := range m.Days {
			if d.DayOfWeek < 0 || d.DayOfWeek > 6 {
				return fmt.Errorf("%w: month %d has dayOfWeek %d", ErrInvalidTemplate, i, d.DayOfWeek)
			}
			if d.SessionType == "" {
				return fmt.Errorf("%w: month %d has a day without sessionType", ErrInvalidTemplate, i)
			}
			if kind == domain.PlanNutrition && d.SessionType != domain.SessionTypeRest && len(d.Meals) == 0 {
				return fmt.Errorf("%w: month %d has a nutrition day without meals", ErrInvalidTemplate, i)
			}
		}
	}
	return nil
}

const workoutSystemPrompt = "You are a certified strength and conditioning coach. Answer with JSON only."

const nutritionSystemPrompt = "You are a registered dietitian. Answer with JSON only."

const templateShape = `{"title": string, "months": [ {"month": 0-11, "phase": string, "focus": string, "days": [ %s ] } ] }`

// WorkoutPrompt builds the user prompt for a workout year.
func WorkoutPrompt(mc MemberContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a 12 month progressive workout program for %s.\n", nameOr(mc.Name))
	fmt.Fprintf(&b, "Goal: %s. Level: %s. Training days per week: %d.\n", mc.Goal, mc.Level, mc.DaysPerWeek)
	if len(mc.Equipment) > 0 {
		fmt.Fprintf(&b, "Available equipment: %s.\n", strings.Join(mc.Equipment, ", "))
	} else {
		b.WriteString("Available equipment: bodyweight only.\n")
	}
	writeBiometrics(&b, mc)
	b.WriteString("Return exactly 12 months, index 0 is January. Each month lists one entry per weekday (dayOfWeek 0=Sunday..6=Saturday); ")
	b.WriteString("non training days use sessionType \"rest\".\n")
	fmt.Fprintf(&b, templateShape, `{"dayOfWeek": int, "sessionType": string, "title": string, "description": string, "estimatedDurationMin": int, "exercises": [ {"name": string, "sets": int, "reps": string, "restSeconds": int} ] }`)
	return b.String()
}

// NutritionPrompt builds the user prompt for a nutrition year.
func NutritionPrompt(mc MemberContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a 12 month nutrition plan for %s.\n", nameOr(mc.Name))
	fmt.Fprintf(&b, "Goal: %s. Activity level: %s, training %d days per week.\n", mc.Goal, mc.Level, mc.DaysPerWeek)
	if mc.DietaryPreference != "" {
		fmt.Fprintf(&b, "Dietary preference: %s.\n", mc.DietaryPreference)
	}
	if len(mc.Allergies) > 0 {
		fmt.Fprintf(&b, "Never include: %s.\n", strings.Join(mc.Allergies, ", "))
	}
	writeBiometrics(&b, mc)
	b.WriteString("Return exactly 12 months, index 0 is January. Each month lists one entry per weekday (dayOfWeek 0=Sunday..6=Saturday) with sessionType \"nutrition\".\n")
	fmt.Fprintf(&b, templateShape, `{"dayOfWeek": int, "sessionType": "nutrition", "title": string, "targetCalories": int, "meals": [ {"type": string, "name": string, "calories": int, "proteinG": number, "carbsG": number, "fatG": number, "ingredients": [string]} ] }`)
	return b.String()
}

func writeBiometrics(b *strings.Builder, mc MemberContext) {
	if mc.WeightKg > 0 {
		fmt.Fprintf(b, "Weight: %.1f kg.", mc.WeightKg)
		if mc.HeightCm > 0 {
			fmt.Fprintf(b, " Height: %.0f cm.", mc.HeightCm)
		}
		if mc.BodyFatPct > 0 {
			fmt.Fprintf(b, " Body fat: %.1f%%.", mc.BodyFatPct)
		}
		b.WriteString("\n")
	}
}

func nameOr(name string) string {
	if name == "" {
		return "a gym member"
	}
	return name
}
