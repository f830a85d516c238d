package billing

import (
	"errors"
	"testing"
	"time"

	"github.com/aliuyar1234/tasktally/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }
func strPtr(v string) *string { return &v }

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func hourlyTask(seconds, rate int64) models.Task {
	return models.Task{
		ID:              uuid.New(),
		ProjectID:       uuid.New(),
		PricingType:     models.PricingHourly,
		Currency:        "usd",
		HourlyRate:      int64Ptr(rate),
		DurationSeconds: int64Ptr(seconds),
	}
}

func TestComputeTaskAmount_HourlyExact(t *testing.T) {
	task := hourlyTask(9000, 10000) // 2.5h @ 100.00/h

	for i := 0; i < 1000; i++ {
		amount, err := ComputeTaskAmount(task)
		require.NoError(t, err)
		require.Equal(t, int64(25000), amount.AmountCents)
		require.Equal(t, "USD", amount.Currency)
		require.Equal(t, "2.50", amount.Hours)
	}
}

func TestComputeTaskAmount_HourlyRoundsHalfUp(t *testing.T) {
	// 1 minute @ 30 cents/h = 0.5 cents -> 1
	amount, err := ComputeTaskAmount(hourlyTask(60, 30))
	require.NoError(t, err)
	require.Equal(t, int64(1), amount.AmountCents)

	// 1 minute @ 29 cents/h = 0.4833 cents -> 0
	amount, err = ComputeTaskAmount(hourlyTask(60, 29))
	require.NoError(t, err)
	require.Equal(t, int64(0), amount.AmountCents)

	// 20 minutes @ 100 cents/h = 33.33 cents -> 33
	amount, err = ComputeTaskAmount(hourlyTask(1200, 100))
	require.NoError(t, err)
	require.Equal(t, int64(33), amount.AmountCents)
	require.Equal(t, "0.33", amount.Hours)
}

func TestComputeTaskAmount_HourlyFromSpan(t *testing.T) {
	task := hourlyTask(1, 5000)
	task.StartDate = datePtr(2024, time.March, 1)
	task.EndDate = datePtr(2024, time.March, 1)
	task.StartTime = strPtr("09:00")
	task.EndTime = strPtr("12:00")

	amount, err := ComputeTaskAmount(task)
	require.NoError(t, err)
	require.Equal(t, int64(15000), amount.AmountCents)
	require.Equal(t, int64(3*3600), amount.BillableSeconds)
	require.Equal(t, "3.00", amount.Hours)
}

func TestComputeTaskAmount_SpanAcrossMidnight(t *testing.T) {
	task := hourlyTask(0, 1000)
	task.StartDate = datePtr(2024, time.March, 1)
	task.EndDate = datePtr(2024, time.March, 2)
	task.StartTime = strPtr("22:30")
	task.EndTime = strPtr("01:00:00")

	amount, err := ComputeTaskAmount(task)
	require.NoError(t, err)
	require.Equal(t, int64(2500), amount.AmountCents)
}

func TestComputeTaskAmount_IncompleteSpanUsesStoredDuration(t *testing.T) {
	task := hourlyTask(3600, 1000)
	task.StartDate = datePtr(2024, time.March, 1)
	task.StartTime = strPtr("09:00")

	amount, err := ComputeTaskAmount(task)
	require.NoError(t, err)
	require.Equal(t, int64(1000), amount.AmountCents)
}

func TestComputeTaskAmount_FixedIgnoresHours(t *testing.T) {
	task := models.Task{
		ID:              uuid.New(),
		PricingType:     models.PricingFixed,
		Currency:        "PHP",
		FixedPrice:      int64Ptr(150000),
		HourlyRate:      int64Ptr(999),
		DurationSeconds: int64Ptr(123456),
	}

	amount, err := ComputeTaskAmount(task)
	require.NoError(t, err)
	require.Equal(t, int64(150000), amount.AmountCents)
	require.Equal(t, FixedHoursLabel, amount.Hours)
}

func TestComputeTaskAmount_MissingRatesAreZero(t *testing.T) {
	amount, err := ComputeTaskAmount(models.Task{PricingType: models.PricingFixed})
	require.NoError(t, err)
	require.Zero(t, amount.AmountCents)

	amount, err = ComputeTaskAmount(models.Task{PricingType: models.PricingHourly, DurationSeconds: int64Ptr(7200)})
	require.NoError(t, err)
	require.Zero(t, amount.AmountCents)
	require.Equal(t, "2.00", amount.Hours)

	amount, err = ComputeTaskAmount(models.Task{PricingType: models.PricingHourly})
	require.NoError(t, err)
	require.Zero(t, amount.AmountCents)

	amount, err = ComputeTaskAmount(models.Task{})
	require.NoError(t, err)
	require.Zero(t, amount.AmountCents)
}

func TestComputeTaskAmount_MalformedInputFails(t *testing.T) {
	cases := map[string]models.Task{
		"negative rate":     hourlyTask(60, -1),
		"negative duration": hourlyTask(-60, 100),
		"negative price":    {PricingType: models.PricingFixed, FixedPrice: int64Ptr(-5)},
		"unknown pricing":   {PricingType: models.PricingType("per_item")},
		"overflow":          hourlyTask(1<<40, 1<<40),
	}

	reversed := hourlyTask(0, 100)
	reversed.StartDate = datePtr(2024, time.March, 2)
	reversed.EndDate = datePtr(2024, time.March, 1)
	reversed.StartTime = strPtr("09:00")
	reversed.EndTime = strPtr("09:00")
	cases["end before start"] = reversed

	badClock := hourlyTask(0, 100)
	badClock.StartDate = datePtr(2024, time.March, 1)
	badClock.EndDate = datePtr(2024, time.March, 1)
	badClock.StartTime = strPtr("9am")
	badClock.EndTime = strPtr("10:00")
	cases["bad clock"] = badClock

	for name, task := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ComputeTaskAmount(task)
			require.Error(t, err)
			var compErr *ComputationError
			require.True(t, errors.As(err, &compErr))
		})
	}
}

func TestParseCents(t *testing.T) {
	valid := map[string]int64{
		"1,234.56": 123456,
		"100":      10000,
		"0.5":      50,
		".05":      5,
		" 12.3 ":   1230,
		"0":        0,
	}
	for in, want := range valid {
		got, err := ParseCents(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "-1.00", "1.005", "abc", ".", "1e3"} {
		_, err := ParseCents(in)
		require.Error(t, err, in)
	}
}

func TestParseHours(t *testing.T) {
	seconds, err := ParseHours("2.5")
	require.NoError(t, err)
	require.Equal(t, int64(9000), seconds)

	seconds, err = ParseHours("0.01")
	require.NoError(t, err)
	require.Equal(t, int64(36), seconds)

	_, err = ParseHours("1.333")
	require.Error(t, err)
}

func TestStartedAt(t *testing.T) {
	_, ok := StartedAt(models.Task{})
	require.False(t, ok)

	start, ok := StartedAt(models.Task{StartDate: datePtr(2024, 6, 2), StartTime: strPtr("09:30:15")})
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 6, 2, 9, 30, 15, 0, time.UTC), start)

	start, _ = StartedAt(models.Task{StartDate: datePtr(2024, 6, 2)})
	require.Equal(t, time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), start)

	start, _ = StartedAt(models.Task{StartDate: datePtr(2024, 6, 2), StartTime: strPtr("9am")})
	require.Equal(t, time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), start)
}

func TestStartedAt_MatchesBilledSpan(t *testing.T) {
	task := hourlyTask(0, 6000)
	task.DurationSeconds = nil
	task.StartDate, task.StartTime = datePtr(2024, 6, 2), strPtr("22:15")
	task.EndDate, task.EndTime = datePtr(2024, 6, 3), strPtr("00:45")

	amount, err := ComputeTaskAmount(task)
	require.NoError(t, err)

	start, _ := StartedAt(task)
	require.Equal(t, time.Date(2024, 6, 3, 0, 45, 0, 0, time.UTC).Sub(start), time.Duration(amount.BillableSeconds)*time.Second)
}
