package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	LoanStatusActive   LoanStatus = "ACTIVE"
	LoanStatusReturned LoanStatus = "RETURNED"
	LoanStatusOverdue  LoanStatus = "OVERDUE"
	LoanStatusLost     LoanStatus = "LOST"
)

// ParseLoanStatus accepts only the four known statuses.
func ParseLoanStatus(s string) (LoanStatus, error) {
	switch st := LoanStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case LoanStatusActive, LoanStatusReturned, LoanStatusOverdue, LoanStatusLost:
		return st, nil
	default:
		return "", NewError(KindInvalidArgument, fmt.Sprintf("unknown loan status %q", s))
	}
}

func (s LoanStatus) IsTerminal() bool {
	return s == LoanStatusReturned || s == LoanStatusOverdue || s == LoanStatusLost
}

// ReturnsToInventory reports whether a loan settled in this status gave its copy back.
func (s LoanStatus) ReturnsToInventory() bool {
	return s == LoanStatusReturned || s == LoanStatusOverdue
}

type BorrowType string

const (
	BorrowTypeSingle BorrowType = "SINGLE"
	BorrowTypeGroup  BorrowType = "GROUP"
)

type DamageLevel string

const (
	DamageNone  DamageLevel = "NONE"
	DamageSmall DamageLevel = "SMALL"
	DamageLarge DamageLevel = "LARGE"
)

// ParseDamageLevel is case-insensitive; an empty string means NONE.
func ParseDamageLevel(s string) (DamageLevel, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return DamageNone, nil
	}
	switch lvl := DamageLevel(s); lvl {
	case DamageNone, DamageSmall, DamageLarge:
		return lvl, nil
	default:
		return "", NewError(KindInvalidArgument, fmt.Sprintf("unknown damage level %q", s))
	}
}

const (
	LostOverdueNote = "auto-classified lost: returned after the overdue threshold"
	LostReportNote  = "reported lost by borrower"
)

type LoanedItem struct {
	BookID      int32           `json:"book_id"`
	Returned    bool            `json:"returned"`
	Damage      DamageLevel     `json:"damage_level"`
	DamageNotes string          `json:"damage_notes"`
	DamageFine  decimal.Decimal `json:"damage_fine"`
}

type Loan struct {
	ID           int32           `json:"id"`
	BookID       int32           `json:"book_id"`
	Participants []Participant   `json:"participants"`
	BorrowType   BorrowType      `json:"borrow_type"`
	CreatedOn    time.Time       `json:"created_on"`
	DueDate      time.Time       `json:"due_date"`
	Status       LoanStatus      `json:"status"`
	SettledOn    *time.Time      `json:"settled_on,omitempty"`
	TotalFine    decimal.Decimal `json:"total_fine"`
	Item         LoanedItem      `json:"item"`
}

// NewLoan builds an ACTIVE loan with a fresh, undamaged item.
func NewLoan(bookID int32, participants []Participant, borrowType BorrowType, createdOn, dueDate time.Time) *Loan {
	return &Loan{
		BookID:       bookID,
		Participants: participants,
		BorrowType:   borrowType,
		CreatedOn:    createdOn,
		DueDate:      dueDate,
		Status:       LoanStatusActive,
		TotalFine:    decimal.Zero,
		Item: LoanedItem{
			BookID:     bookID,
			Damage:     DamageNone,
			DamageFine: decimal.Zero,
		},
	}
}

func (l *Loan) ParticipantIDs() []int32 {
	ids := make([]int32, 0, len(l.Participants))
	for _, p := range l.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

func (l *Loan) HasParticipant(userID int32) bool {
	for _, p := range l.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// SettleReturn moves an ACTIVE loan to RETURNED, OVERDUE or LOST from a computed fine.
func (l *Loan) SettleReturn(at time.Time, fine FineBreakdown, damage DamageLevel, notes string) error {
	if l.Status != LoanStatusActive {
		return notActive(l)
	}
	switch {
	case fine.IsLost:
		l.Status = LoanStatusLost
		damage = DamageLarge
		notes = LostOverdueNote
	case fine.OverdueDays > 0:
		l.Status = LoanStatusOverdue
	default:
		l.Status = LoanStatusReturned
	}
	l.Item.Returned = true
	l.Item.Damage = damage
	l.Item.DamageNotes = notes
	l.Item.DamageFine = fine.DamageFine
	l.TotalFine = fine.TotalFine
	l.SettledOn = &at
	return nil
}

// SettleLost closes an ACTIVE loan on a voluntary loss report.
func (l *Loan) SettleLost(at time.Time, lostFine decimal.Decimal) error {
	if l.Status != LoanStatusActive {
		return notActive(l)
	}
	l.Status = LoanStatusLost
	l.Item.Returned = false
	l.Item.Damage = DamageLarge
	l.Item.DamageNotes = LostReportNote
	l.Item.DamageFine = decimal.Zero
	l.TotalFine = lostFine
	l.SettledOn = &at
	return nil
}

func notActive(l *Loan) error {
	return NewError(KindNotActive, fmt.Sprintf("loan %d is already %s", l.ID, l.Status)).
		WithDetail("loan_id", l.ID).
		WithDetail("status", string(l.Status))
}
