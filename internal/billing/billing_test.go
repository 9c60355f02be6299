package billing

import (
	"errors"
	"testing"
	"time"

	"gymdesk/platform/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestExpiryDate(t *testing.T) {
	start := date(2024, 1, 15)
	tests := []struct {
		name     string
		duration int
		unit     domain.DurationUnit
		want     time.Time
	}{
		{"days", 10, domain.UnitDay, date(2024, 1, 25)},
		{"weeks", 2, domain.UnitWeek, date(2024, 1, 29)},
		{"months", 1, domain.UnitMonth, date(2024, 2, 15)},
		{"quarter", 3, domain.UnitMonth, date(2024, 4, 15)},
		{"year", 1, domain.UnitYear, date(2025, 1, 15)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpiryDate(start, tt.duration, tt.unit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpiryDateMonthOverflowNormalizes(t *testing.T) {
	got, err := ExpiryDate(date(2024, 1, 31), 1, domain.UnitMonth)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 3, 2), got)
}

func TestExpiryDateRejectsBadInput(t *testing.T) {
	_, err := ExpiryDate(date(2024, 1, 1), 0, domain.UnitDay)
	assert.True(t, errors.Is(err, ErrInvalidDuration))

	_, err = ExpiryDate(date(2024, 1, 1), 1, "fortnight")
	assert.True(t, errors.Is(err, ErrInvalidDuration))
}

func TestProration(t *testing.T) {
	assert.Equal(t, int64(2000), ProrationCredit(3000, 10))
	assert.Equal(t, int64(3000), ProrationCredit(3000, 0))
	assert.Equal(t, int64(0), ProrationCredit(3000, 30))
	assert.Equal(t, int64(0), ProrationCredit(3000, 45))
	assert.Equal(t, int64(3000), ProrationCredit(3000, -3))

	assert.Equal(t, int64(3000), UpgradeAmount(3000, 5000, 10))
	assert.Equal(t, int64(0), UpgradeAmount(9000, 1000, 1))
	// 4999 * 29/30 = 4832.37
	assert.Equal(t, int64(4832), ProrationCredit(4999, 1))
}

func TestDaysUsedInCycle(t *testing.T) {
	cycle := date(2024, 1, 1)
	assert.Equal(t, 0, DaysUsedInCycle(cycle, date(2024, 1, 1)))
	assert.Equal(t, 10, DaysUsedInCycle(cycle, date(2024, 1, 11).Add(15*time.Hour)))
	assert.Equal(t, 5, DaysUsedInCycle(cycle, date(2024, 2, 5)))
	assert.Equal(t, 0, DaysUsedInCycle(cycle, date(2023, 12, 1)))
}

func TestAccruedRevenue(t *testing.T) {
	termStart, termEnd := date(2024, 1, 1), date(2024, 1, 31) // 30 days

	assert.Equal(t, int64(1500), AccruedRevenue(3000, termStart, termEnd, date(2024, 1, 1), date(2024, 1, 16)))
	assert.Equal(t, int64(3000), AccruedRevenue(3000, termStart, termEnd, date(2023, 12, 1), date(2024, 3, 1)))
	assert.Equal(t, int64(0), AccruedRevenue(3000, termStart, termEnd, date(2024, 2, 1), date(2024, 3, 1)))
	assert.Equal(t, int64(0), AccruedRevenue(3000, termStart, termEnd, date(2024, 1, 10), date(2024, 1, 10)))
	// window starting mid-term
	assert.Equal(t, int64(100), AccruedRevenue(3000, termStart, termEnd, date(2024, 1, 30), date(2024, 2, 28)))
}

func TestAccruedRevenueSumsToFee(t *testing.T) {
	termStart, termEnd := date(2024, 1, 15), date(2024, 4, 15)
	var total int64
	for m := time.January; m <= time.April; m++ {
		total += AccruedRevenue(9100, termStart, termEnd, date(2024, m, 1), date(2024, m+1, 1))
	}
	assert.InDelta(t, 9100, total, 2)
}

func TestCashRevenue(t *testing.T) {
	paid := func(d time.Time) *time.Time { return &d }
	payments := []domain.Payment{
		{AmountCents: 1000, Status: domain.PaymentSucceeded, PaidAt: paid(date(2024, 1, 5))},
		{AmountCents: 2000, Status: domain.PaymentSucceeded, PaidAt: paid(date(2024, 2, 1))},
		{AmountCents: 4000, Status: domain.PaymentPending},
		{AmountCents: 8000, Status: domain.PaymentFailed, PaidAt: paid(date(2024, 1, 6))},
	}
	assert.Equal(t, int64(1000), CashRevenue(payments, date(2024, 1, 1), date(2024, 2, 1)))
	assert.Equal(t, int64(3000), CashRevenue(payments, date(2024, 1, 1), date(2024, 3, 1)))
}
