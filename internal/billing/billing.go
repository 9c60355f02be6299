// Package billing holds the date and money formulas used by memberships,
// accounting and SaaS upgrades. Amounts are integer minor units (cents).
package billing

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gymdesk/platform/internal/domain"
)

// CycleDays is the fixed month length used for proration.
const CycleDays = 30

var ErrInvalidDuration = errors.New("invalid membership duration")

// ExpiryDate adds duration units to start. Months and years use calendar
// addition, so Jan 31 + 1 month normalizes to early March.
func ExpiryDate(start time.Time, duration int, unit domain.DurationUnit) (time.Time, error) {
	if duration <= 0 {
		return time.Time{}, fmt.Errorf("%w: duration must be positive, got %d", ErrInvalidDuration, duration)
	}
	switch unit {
	case domain.UnitDay:
		return start.AddDate(0, 0, duration), nil
	case domain.UnitWeek:
		return start.AddDate(0, 0, 7*duration), nil
	case domain.UnitMonth:
		return start.AddDate(0, duration, 0), nil
	case domain.UnitYear:
		return start.AddDate(duration, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("%w: unknown unit %q", ErrInvalidDuration, unit)
	}
}

// ProrationCredit is the unused share of the current cycle's price.
func ProrationCredit(currentPriceCents int64, daysUsed int) int64 {
	remaining := CycleDays - clampDays(daysUsed)
	return roundCents(float64(currentPriceCents) * float64(remaining) / CycleDays)
}

// UpgradeAmount is what is due now when switching from the current price
// to the new one after daysUsed days of the cycle. Never negative.
func UpgradeAmount(currentPriceCents, newPriceCents int64, daysUsed int) int64 {
	due := newPriceCents - ProrationCredit(currentPriceCents, daysUsed)
	if due < 0 {
		return 0
	}
	return due
}

// DaysUsedInCycle counts whole days elapsed since cycleStart, wrapping
// every CycleDays.
func DaysUsedInCycle(cycleStart, now time.Time) int {
	used := DaysBetween(cycleStart, now)
	if used < 0 {
		return 0
	}
	return used % CycleDays
}

// AccruedRevenue recognizes fee evenly over the term [termStart, termEnd)
// and returns the share falling in the window [windowStart, windowEnd).
func AccruedRevenue(feeCents int64, termStart, termEnd, windowStart, windowEnd time.Time) int64 {
	termDays := DaysBetween(termStart, termEnd)
	if termDays < 1 {
		termDays = 1
	}
	from := later(dateOf(termStart), dateOf(windowStart))
	to := earlier(dateOf(termEnd), dateOf(windowEnd))
	overlap := DaysBetween(from, to)
	if overlap <= 0 {
		return 0
	}
	if overlap > termDays {
		overlap = termDays
	}
	return roundCents(float64(feeCents) * float64(overlap) / float64(termDays))
}

// CashRevenue sums succeeded payments paid inside [windowStart, windowEnd).
func CashRevenue(payments []domain.Payment, windowStart, windowEnd time.Time) int64 {
	var total int64
	for _, p := range payments {
		if p.Status != domain.PaymentSucceeded || p.PaidAt == nil {
			continue
		}
		if p.PaidAt.Before(windowStart) || !p.PaidAt.Before(windowEnd) {
			continue
		}
		total += p.AmountCents
	}
	return total
}

// DaysBetween counts calendar days from a to b (negative if b is before a).
func DaysBetween(a, b time.Time) int {
	return int(math.Round(dateOf(b).Sub(dateOf(a)).Hours() / 24))
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func clampDays(d int) int {
	if d < 0 {
		return 0
	}
	if d > CycleDays {
		return CycleDays
	}
	return d
}

func roundCents(v float64) int64 {
	return int64(math.Round(v))
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
