package utils

import (
	"time"

	"library-circulation/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	// DayDuration is the unit overdue time is counted in.
	DayDuration = 24 * time.Hour

	// MoneyPlaces is the scale every total fine is rounded to.
	MoneyPlaces = 2
)

// OverdueDays returns the number of started days between dueDate and at,
// or 0 when at is not after dueDate.
func OverdueDays(dueDate, at time.Time) int {
	elapsed := at.Sub(dueDate)
	if elapsed <= 0 {
		return 0
	}
	days := int(elapsed / DayDuration)
	if elapsed%DayDuration != 0 {
		days++
	}
	return days
}

// RoundMoney applies half-up rounding to two places. Fines are never
// negative, so decimal's half-away-from-zero rounding is the same thing.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// CalculateFine computes the settlement figures for a returned book.
//
// The overdue component is charged in full even when the loan crosses the
// lost threshold; the lost penalty only replaces the damage penalty.
func CalculateFine(bookPrice decimal.Decimal, dueDate, returnedAt time.Time, damage domain.DamageLevel, policy domain.FinePolicy) domain.FineBreakdown {
	fb := domain.FineBreakdown{
		OverdueFine: decimal.Zero,
		DamageFine:  decimal.Zero,
		LostFine:    decimal.Zero,
	}

	fb.IsOverdue = returnedAt.After(dueDate)
	if fb.IsOverdue {
		fb.OverdueDays = OverdueDays(dueDate, returnedAt)
		fb.OverdueFine = decimal.NewFromInt(int64(fb.OverdueDays)).Mul(policy.DailyRate)
	}

	fb.IsLost = fb.OverdueDays > policy.OverdueThresholdDays
	if fb.IsLost {
		fb.LostFine = bookPrice.Mul(policy.LostMultiplier)
	} else {
		fb.DamageFine = bookPrice.Mul(policy.DamagePercentage(damage))
	}

	fb.TotalFine = RoundMoney(fb.OverdueFine.Add(fb.DamageFine).Add(fb.LostFine))
	fb.OverdueFine = RoundMoney(fb.OverdueFine)
	fb.DamageFine = RoundMoney(fb.DamageFine)
	fb.LostFine = RoundMoney(fb.LostFine)
	return fb
}

// CalculateLostReportFine is the fine for a loss reported before any return
// attempt: the lost penalty alone, with no overdue component.
func CalculateLostReportFine(bookPrice decimal.Decimal, policy domain.FinePolicy) decimal.Decimal {
	return RoundMoney(bookPrice.Mul(policy.LostMultiplier))
}
