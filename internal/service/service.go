package service

import (
	"context"
	"time"

	"library-circulation/internal/domain"

	"github.com/shopspring/decimal"
)

// CirculationService is the transactional core: every mutating call runs as
// one unit of work against the store.
type CirculationService interface {
	Borrow(ctx context.Context, req BorrowRequest) (*BorrowResult, error)
	Return(ctx context.Context, req ReturnRequest) (*ReturnResult, error)
	ReportLost(ctx context.Context, loanID, requesterID int32) (*LostReport, error)
	GetLoan(ctx context.Context, loanID, requesterID int32) (*domain.Loan, error)
	ListLoans(ctx context.Context, requesterID int32, status string, page, pageSize int32) ([]domain.Loan, int32, error)
}

// Notifier delivers participant notices. Implementations are best effort.
type Notifier interface {
	SendSettlementNotice(ctx context.Context, to domain.Participant, notice SettlementNotice) error
	SendOverdueReminder(ctx context.Context, to domain.Participant, reminder OverdueReminder) error
}

type BorrowRequest struct {
	RequesterID       int32      `json:"-"`
	BookID            int32      `json:"book_id"`
	ParticipantEmails []string   `json:"participant_emails,omitempty"`
	DueDate           *time.Time `json:"due_date,omitempty"`
}

type BorrowResult struct {
	LoanID       int32                `json:"loan_id"`
	DueDate      time.Time            `json:"due_date"`
	BorrowType   domain.BorrowType    `json:"borrow_type"`
	Participants []domain.Participant `json:"participants"`
}

type ReturnRequest struct {
	LoanID      int32  `json:"-"`
	RequesterID int32  `json:"-"`
	Damage      string `json:"damage_level,omitempty"`
	DamageNotes string `json:"damage_notes,omitempty"`
}

type ReturnResult struct {
	ReturnDate  time.Time         `json:"return_date"`
	OverdueDays int               `json:"overdue_days"`
	OverdueFine decimal.Decimal   `json:"overdue_fine"`
	DamageFine  decimal.Decimal   `json:"damage_fine"`
	LostFine    decimal.Decimal   `json:"lost_fine"`
	TotalFine   decimal.Decimal   `json:"total_fine"`
	IsOverdue   bool              `json:"is_overdue"`
	IsLost      bool              `json:"is_lost"`
	FinalStatus domain.LoanStatus `json:"final_status"`
}

type LostReport struct {
	LostFine   decimal.Decimal `json:"lost_fine"`
	BookPrice  decimal.Decimal `json:"book_price"`
	Multiplier decimal.Decimal `json:"multiplier"`
}

type SettlementNotice struct {
	LoanID      int32
	BookTitle   string
	Status      domain.LoanStatus
	OverdueDays int
	TotalFine   decimal.Decimal
	SettledOn   time.Time
}

type OverdueReminder struct {
	LoanID      int32
	BookTitle   string
	DueDate     time.Time
	OverdueDays int
	AccruedFine decimal.Decimal
}
