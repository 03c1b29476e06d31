package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newActiveLoan() *Loan {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l := NewLoan(7, []Participant{{UserID: 1, Email: "a@x.io"}, {UserID: 2, Email: "b@x.io"}},
		BorrowTypeGroup, now, now.AddDate(0, 0, 14))
	l.ID = 11
	return l
}

func TestNewLoan(t *testing.T) {
	l := newActiveLoan()
	assert.Equal(t, LoanStatusActive, l.Status)
	assert.Equal(t, DamageNone, l.Item.Damage)
	assert.False(t, l.Item.Returned)
	assert.True(t, l.TotalFine.IsZero())
	assert.Equal(t, []int32{1, 2}, l.ParticipantIDs())
	assert.True(t, l.HasParticipant(2))
	assert.False(t, l.HasParticipant(3))
}

func TestParseLoanStatus(t *testing.T) {
	st, err := ParseLoanStatus(" overdue ")
	require.NoError(t, err)
	assert.Equal(t, LoanStatusOverdue, st)

	_, err = ParseLoanStatus("PENDING")
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestParseDamageLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    DamageLevel
		wantErr bool
	}{
		{"", DamageNone, false},
		{"small", DamageSmall, false},
		{"LARGE", DamageLarge, false},
		{"total", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDamageLevel(tt.in)
		if tt.wantErr {
			assert.Equal(t, KindInvalidArgument, KindOf(err))
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestLoanStatusPredicates(t *testing.T) {
	assert.False(t, LoanStatusActive.IsTerminal())
	for _, st := range []LoanStatus{LoanStatusReturned, LoanStatusOverdue, LoanStatusLost} {
		assert.True(t, st.IsTerminal(), st)
	}
	assert.True(t, LoanStatusReturned.ReturnsToInventory())
	assert.True(t, LoanStatusOverdue.ReturnsToInventory())
	assert.False(t, LoanStatusLost.ReturnsToInventory())
	assert.False(t, LoanStatusActive.ReturnsToInventory())
}

func TestLoan_SettleReturn(t *testing.T) {
	at := time.Date(2026, 3, 20, 10, 0, 0, 0, time.UTC)

	t.Run("On time", func(t *testing.T) {
		l := newActiveLoan()
		err := l.SettleReturn(at, FineBreakdown{TotalFine: decimal.Zero, DamageFine: decimal.Zero}, DamageNone, "")
		require.NoError(t, err)
		assert.Equal(t, LoanStatusReturned, l.Status)
		assert.True(t, l.Item.Returned)
		require.NotNil(t, l.SettledOn)
		assert.Equal(t, at, *l.SettledOn)
	})

	t.Run("Overdue keeps caller damage", func(t *testing.T) {
		l := newActiveLoan()
		fine := FineBreakdown{OverdueDays: 3, IsOverdue: true, DamageFine: decimal.NewFromInt(100), TotalFine: decimal.NewFromInt(250)}
		require.NoError(t, l.SettleReturn(at, fine, DamageSmall, "torn cover"))
		assert.Equal(t, LoanStatusOverdue, l.Status)
		assert.Equal(t, DamageSmall, l.Item.Damage)
		assert.Equal(t, "torn cover", l.Item.DamageNotes)
		assert.True(t, l.TotalFine.Equal(decimal.NewFromInt(250)))
	})

	t.Run("Lost forces large damage", func(t *testing.T) {
		l := newActiveLoan()
		fine := FineBreakdown{OverdueDays: 35, IsOverdue: true, IsLost: true, TotalFine: decimal.NewFromInt(3750)}
		require.NoError(t, l.SettleReturn(at, fine, DamageNone, "looks fine"))
		assert.Equal(t, LoanStatusLost, l.Status)
		assert.Equal(t, DamageLarge, l.Item.Damage)
		assert.Equal(t, LostOverdueNote, l.Item.DamageNotes)
		assert.True(t, l.Item.Returned)
	})

	t.Run("Terminal loan is refused", func(t *testing.T) {
		l := newActiveLoan()
		require.NoError(t, l.SettleReturn(at, FineBreakdown{}, DamageNone, ""))
		err := l.SettleReturn(at, FineBreakdown{}, DamageNone, "")
		assert.True(t, errors.Is(err, ErrNotActive))
		var de *Error
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "RETURNED", de.Details["status"])
		assert.Equal(t, int32(11), de.Details["loan_id"])
	})
}

func TestLoan_SettleLost(t *testing.T) {
	at := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	l := newActiveLoan()

	require.NoError(t, l.SettleLost(at, decimal.RequireFromString("30.01")))
	assert.Equal(t, LoanStatusLost, l.Status)
	assert.False(t, l.Item.Returned)
	assert.Equal(t, DamageLarge, l.Item.Damage)
	assert.Equal(t, LostReportNote, l.Item.DamageNotes)
	assert.Equal(t, "30.01", l.TotalFine.StringFixed(2))

	assert.Equal(t, KindNotActive, KindOf(l.SettleLost(at, decimal.Zero)))
}
