package utils

import (
	"testing"
	"time"

	"library-circulation/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestOverdueDays(t *testing.T) {
	due := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		at       time.Time
		expected int
	}{
		{"Before due date", due.Add(-48 * time.Hour), 0},
		{"Exactly at due date", due, 0},
		{"One second late", due.Add(time.Second), 1},
		{"Exactly one day late", due.Add(24 * time.Hour), 1},
		{"Partial second day", due.Add(25 * time.Hour), 2},
		{"Ten days late", due.Add(10 * 24 * time.Hour), 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, OverdueDays(due, tt.at))
		})
	}
}

func TestCalculateFine(t *testing.T) {
	policy := domain.DefaultFinePolicy()
	price := dec("1000")
	borrowed := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	t.Run("On-time return", func(t *testing.T) {
		due := addDays(borrowed, 14)
		fb := CalculateFine(price, due, addDays(borrowed, 5), domain.DamageNone, policy)
		assert.False(t, fb.IsOverdue)
		assert.False(t, fb.IsLost)
		assert.Equal(t, 0, fb.OverdueDays)
		assert.True(t, fb.TotalFine.IsZero())
	})

	t.Run("Overdue but not lost", func(t *testing.T) {
		fb := CalculateFine(price, borrowed, addDays(borrowed, 10), domain.DamageNone, policy)
		assert.True(t, fb.IsOverdue)
		assert.False(t, fb.IsLost)
		assert.Equal(t, 10, fb.OverdueDays)
		assert.True(t, dec("500").Equal(fb.OverdueFine), fb.OverdueFine.String())
		assert.True(t, dec("500").Equal(fb.TotalFine))
	})

	t.Run("Lost by lateness keeps the overdue component", func(t *testing.T) {
		fb := CalculateFine(price, borrowed, addDays(borrowed, 35), domain.DamageSmall, policy)
		assert.True(t, fb.IsLost)
		assert.Equal(t, 35, fb.OverdueDays)
		assert.True(t, dec("1750").Equal(fb.OverdueFine))
		assert.True(t, dec("2000").Equal(fb.LostFine))
		assert.True(t, fb.DamageFine.IsZero(), "lost penalty replaces damage")
		assert.True(t, dec("3750").Equal(fb.TotalFine))
	})

	t.Run("Threshold day itself is not lost", func(t *testing.T) {
		fb := CalculateFine(price, borrowed, addDays(borrowed, 30), domain.DamageNone, policy)
		assert.False(t, fb.IsLost)
		assert.True(t, dec("1500").Equal(fb.TotalFine))
	})

	t.Run("Small damage on time", func(t *testing.T) {
		due := addDays(borrowed, 14)
		fb := CalculateFine(price, due, addDays(borrowed, 1), domain.DamageSmall, policy)
		assert.True(t, dec("100").Equal(fb.DamageFine))
		assert.True(t, dec("100").Equal(fb.TotalFine))
	})

	t.Run("Large damage and overdue add up", func(t *testing.T) {
		fb := CalculateFine(price, borrowed, addDays(borrowed, 2), domain.DamageLarge, policy)
		assert.True(t, dec("100").Equal(fb.OverdueFine))
		assert.True(t, dec("500").Equal(fb.DamageFine))
		assert.True(t, dec("600").Equal(fb.TotalFine))
	})

	t.Run("Total is rounded half-up to cents", func(t *testing.T) {
		p := policy
		p.SmallDamagePct = dec("0.1")
		due := addDays(borrowed, 14)
		fb := CalculateFine(dec("12.345"), due, borrowed, domain.DamageSmall, p)
		assert.Equal(t, "1.23", fb.DamageFine.String())
		assert.Equal(t, "1.23", fb.TotalFine.StringFixed(2))

		fb = CalculateFine(dec("12.35"), due, borrowed, domain.DamageSmall, p)
		assert.Equal(t, "1.24", fb.TotalFine.StringFixed(2))
	})

	t.Run("Stored components are in cents", func(t *testing.T) {
		due := addDays(borrowed, 14)
		fb := CalculateFine(dec("24.99"), due, borrowed, domain.DamageSmall, policy)
		assert.Equal(t, "2.5", fb.DamageFine.String())
		assert.True(t, fb.DamageFine.Equal(fb.TotalFine))

		p := policy
		p.DailyRate = dec("0.125")
		fb = CalculateFine(dec("10"), borrowed, addDays(borrowed, 1), domain.DamageNone, p)
		assert.Equal(t, "0.13", fb.OverdueFine.String())
	})
}

func addDays(t time.Time, n int) time.Time {
	return t.Add(time.Duration(n) * DayDuration)
}

func TestCalculateLostReportFine(t *testing.T) {
	policy := domain.DefaultFinePolicy()
	assert.True(t, dec("2000").Equal(CalculateLostReportFine(dec("1000"), policy)))

	policy.LostMultiplier = dec("1.5")
	assert.Equal(t, "30.01", CalculateLostReportFine(dec("20.005"), policy).StringFixed(2))
}
