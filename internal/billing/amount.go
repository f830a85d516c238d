// Package billing converts task pricing into integer-cent billable amounts
// and aggregates them into invoice reports. Nothing here touches floating
// point.
package billing

import (
	"fmt"
	"math"
	"time"

	"github.com/aliuyar1234/tasktally/internal/models"
)

// FixedHoursLabel is the hours display value of fixed-price tasks
const FixedHoursLabel = "Fixed"

const secondsPerHour = 3600

// Amount is the billable value of one task
type Amount struct {
	AmountCents     int64  `json:"amount_cents"`
	Currency        string `json:"currency"`
	Hours           string `json:"hours"`
	BillableSeconds int64  `json:"billable_seconds"`
}

// ComputeTaskAmount returns the billable amount of a task.
//
// Fixed tasks bill FixedPrice as is. Hourly tasks bill the worked span
// (start date/time to end date/time) or, when the span is incomplete, the
// stored duration, at HourlyRate cents per hour rounded half-up to the cent.
// A missing rate or price yields zero.
func ComputeTaskAmount(task models.Task) (Amount, error) {
	amount := Amount{Currency: normalizeCurrency(task.Currency)}

	switch task.PricingType {
	case models.PricingFixed:
		amount.Hours = FixedHoursLabel
		if task.FixedPrice == nil {
			return amount, nil
		}
		if *task.FixedPrice < 0 {
			return Amount{}, computationErr(task.ID, "fixed_price", "must not be negative")
		}
		amount.AmountCents = *task.FixedPrice
		return amount, nil

	case models.PricingHourly:
		seconds, err := billableSeconds(task)
		if err != nil {
			return Amount{}, err
		}
		amount.BillableSeconds = seconds
		amount.Hours = formatHours(seconds)

		if task.HourlyRate == nil {
			return amount, nil
		}
		if *task.HourlyRate < 0 {
			return Amount{}, computationErr(task.ID, "hourly_rate", "must not be negative")
		}
		cents, ok := hourlyCents(seconds, *task.HourlyRate)
		if !ok {
			return Amount{}, computationErr(task.ID, "hourly_rate", "amount overflows")
		}
		amount.AmountCents = cents
		return amount, nil

	case "":
		return amount, nil
	}

	return Amount{}, computationErr(task.ID, "pricing_type", fmt.Sprintf("unknown pricing type %q", task.PricingType))
}

// billableSeconds prefers the recorded span and falls back to the stored duration
func billableSeconds(task models.Task) (int64, error) {
	if task.StartDate != nil && task.EndDate != nil && task.StartTime != nil && task.EndTime != nil {
		start, err := combine(*task.StartDate, *task.StartTime)
		if err != nil {
			return 0, computationErr(task.ID, "start_time", err.Error())
		}
		end, err := combine(*task.EndDate, *task.EndTime)
		if err != nil {
			return 0, computationErr(task.ID, "end_time", err.Error())
		}
		if end.Before(start) {
			return 0, computationErr(task.ID, "end_time", "ends before it starts")
		}
		return int64(end.Sub(start) / time.Second), nil
	}

	if task.DurationSeconds != nil {
		if *task.DurationSeconds < 0 {
			return 0, computationErr(task.ID, "duration", "must not be negative")
		}
		return *task.DurationSeconds, nil
	}

	return 0, nil
}

// combine attaches a wall clock "HH:MM" or "HH:MM:SS" to a calendar date, in UTC
// StartedAt is the moment work on a task began: StartDate at StartTime, or
// midnight UTC when the time of day is missing or malformed. ok is false
// without a StartDate.
func StartedAt(task models.Task) (start time.Time, ok bool) {
	if task.StartDate == nil {
		return time.Time{}, false
	}
	y, m, d := task.StartDate.UTC().Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if task.StartTime == nil {
		return midnight, true
	}
	start, err := combine(*task.StartDate, *task.StartTime)
	if err != nil {
		return midnight, true
	}
	return start, true
}

func combine(date time.Time, clock string) (time.Time, error) {
	layout := "15:04"
	if len(clock) == len("15:04:05") {
		layout = "15:04:05"
	}
	t, err := time.Parse(layout, clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time of day %q", clock)
	}
	y, m, d := date.UTC().Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
}

// hourlyCents computes round_half_up(seconds * rate / 3600) on integers
func hourlyCents(seconds, rate int64) (int64, bool) {
	if seconds == 0 || rate == 0 {
		return 0, true
	}
	if rate > (math.MaxInt64-secondsPerHour)/2 || seconds > (math.MaxInt64-secondsPerHour)/(2*rate) {
		return 0, false
	}
	return (2*seconds*rate + secondsPerHour) / (2 * secondsPerHour), true
}

// formatHours renders seconds as decimal hours with two places, rounded half-up
func formatHours(seconds int64) string {
	hundredths := (seconds*100 + secondsPerHour/2) / secondsPerHour
	return fmt.Sprintf("%d.%02d", hundredths/100, hundredths%100)
}
