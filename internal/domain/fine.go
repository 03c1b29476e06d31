package domain

import "github.com/shopspring/decimal"

// FinePolicy is the rate table supplied by the configuration collaborator.
type FinePolicy struct {
	DailyRate            decimal.Decimal `json:"daily_rate" yaml:"daily_rate"`
	LostMultiplier       decimal.Decimal `json:"lost_multiplier" yaml:"lost_multiplier"`
	SmallDamagePct       decimal.Decimal `json:"small_damage_pct" yaml:"small_damage_pct"`
	LargeDamagePct       decimal.Decimal `json:"large_damage_pct" yaml:"large_damage_pct"`
	OverdueThresholdDays int             `json:"overdue_threshold_days" yaml:"overdue_threshold_days"`
}

func DefaultFinePolicy() FinePolicy {
	return FinePolicy{
		DailyRate:            decimal.NewFromInt(50),
		LostMultiplier:       decimal.RequireFromString("2.0"),
		SmallDamagePct:       decimal.RequireFromString("0.10"),
		LargeDamagePct:       decimal.RequireFromString("0.50"),
		OverdueThresholdDays: 30,
	}
}

func (p FinePolicy) DamagePercentage(level DamageLevel) decimal.Decimal {
	switch level {
	case DamageSmall:
		return p.SmallDamagePct
	case DamageLarge:
		return p.LargeDamagePct
	default:
		return decimal.Zero
	}
}

type FineBreakdown struct {
	OverdueDays int             `json:"overdue_days"`
	OverdueFine decimal.Decimal `json:"overdue_fine"`
	DamageFine  decimal.Decimal `json:"damage_fine"`
	LostFine    decimal.Decimal `json:"lost_fine"`
	TotalFine   decimal.Decimal `json:"total_fine"`
	IsLost      bool            `json:"is_lost"`
	IsOverdue   bool            `json:"is_overdue"`
}
