package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"library-circulation/internal/domain"
	"library-circulation/internal/logger"
	"library-circulation/internal/repository"
	"library-circulation/internal/utils"

	"github.com/shopspring/decimal"
)

const (
	DefaultLoanDays = 14
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Options struct {
	DefaultLoanDays int
	// Now defaults to time.Now.
	Now func() time.Time
}

type circulationService struct {
	tx       repository.Transactor
	loans    repository.LoanReader
	policies repository.FinePolicyRepository
	notifier Notifier
	loanDays int
	now      func() time.Time
}

func NewCirculationService(
	tx repository.Transactor,
	loans repository.LoanReader,
	policies repository.FinePolicyRepository,
	notifier Notifier,
	opts Options,
) CirculationService {
	s := &circulationService{
		tx:       tx,
		loans:    loans,
		policies: policies,
		notifier: notifier,
		loanDays: opts.DefaultLoanDays,
		now:      opts.Now,
	}
	if s.loanDays <= 0 {
		s.loanDays = DefaultLoanDays
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.notifier == nil {
		s.notifier = NewLogNotifier()
	}
	return s
}

func (s *circulationService) Borrow(ctx context.Context, req BorrowRequest) (*BorrowResult, error) {
	const method = "CirculationService.Borrow"
	logger.EnterMethod(ctx, method, "requesterID", req.RequesterID, "bookID", req.BookID, "participants", len(req.ParticipantEmails))

	now := s.now()
	due, err := checkDueDate(req.DueDate, now, s.loanDays)
	if err != nil {
		return nil, s.fail(ctx, method, err)
	}

	var loan *domain.Loan
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, uow repository.UnitOfWork) error {
		el, err := checkEligibility(ctx, uow, req)
		if err != nil {
			return err
		}

		ok, err := uow.Books().DecrementIfPositive(ctx, el.book.ID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NewError(domain.KindConflict, "copy was taken by a concurrent borrow")
		}

		loan = domain.NewLoan(el.book.ID, el.participants, el.borrowType, now, due)
		return uow.Loans().Create(ctx, loan)
	})
	if err != nil {
		return nil, s.fail(ctx, method, err)
	}

	loansOpened.WithLabelValues(string(loan.BorrowType)).Inc()
	logger.InfoContext(ctx, "Loan opened", "loanID", loan.ID, "bookID", loan.BookID, "borrowType", loan.BorrowType, "dueDate", loan.DueDate)
	logger.ExitMethod(ctx, method, "loanID", loan.ID)
	return &BorrowResult{
		LoanID:       loan.ID,
		DueDate:      loan.DueDate,
		BorrowType:   loan.BorrowType,
		Participants: loan.Participants,
	}, nil
}

func (s *circulationService) Return(ctx context.Context, req ReturnRequest) (*ReturnResult, error) {
	const method = "CirculationService.Return"
	logger.EnterMethod(ctx, method, "loanID", req.LoanID, "requesterID", req.RequesterID, "damage", req.Damage)

	damage, err := domain.ParseDamageLevel(req.Damage)
	if err != nil {
		return nil, s.fail(ctx, method, err)
	}
	policy, err := s.policies.Get(ctx)
	if err != nil {
		return nil, s.fail(ctx, method, err)
	}

	var (
		loan *domain.Loan
		book *domain.Book
		fine domain.FineBreakdown
		at   time.Time
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, uow repository.UnitOfWork) error {
		var err error
		loan, err = lockOwnLoan(ctx, uow, req.LoanID, req.RequesterID)
		if err != nil {
			return err
		}
		book, err = uow.Books().GetForUpdate(ctx, loan.BookID)
		if err != nil {
			return err
		}

		at = s.now()
		fine = utils.CalculateFine(book.Price, loan.DueDate, at, damage, policy)
		if err := loan.SettleReturn(at, fine, damage, req.DamageNotes); err != nil {
			return err
		}
		if err := uow.Loans().Settle(ctx, loan); err != nil {
			return err
		}
		if loan.Status.ReturnsToInventory() {
			return uow.Books().Increment(ctx, book.ID)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, method, err)
	}

	s.recordSettlement(ctx, loan, book, fine.OverdueDays)
	logger.ExitMethod(ctx, method, "loanID", loan.ID, "status", loan.Status, "totalFine", loan.TotalFine)
	return &ReturnResult{
		ReturnDate:  at,
		OverdueDays: fine.OverdueDays,
		OverdueFine: fine.OverdueFine,
		DamageFine:  fine.DamageFine,
		LostFine:    fine.LostFine,
		TotalFine:   fine.TotalFine,
		IsOverdue:   fine.IsOverdue,
		IsLost:      fine.IsLost,
		FinalStatus: loan.Status,
	}, nil
}

func (s *circulationService) ReportLost(ctx context.Context, loanID, requesterID int32) (*LostReport, error) {
	const method = "CirculationService.ReportLost"
	logger.EnterMethod(ctx, method, "loanID", loanID, "requesterID", requesterID)

	policy, err := s.policies.Get(ctx)
	if err != nil {
		return nil, s.fail(ctx, method, err)
	}

	var (
		loan     *domain.Loan
		book     *domain.Book
		lostFine decimal.Decimal
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, uow repository.UnitOfWork) error {
		var err error
		loan, err = lockOwnLoan(ctx, uow, loanID, requesterID)
		if err != nil {
			return err
		}
		book, err = uow.Books().GetForUpdate(ctx, loan.BookID)
		if err != nil {
			return err
		}

		lostFine = utils.CalculateLostReportFine(book.Price, policy)
		if err := loan.SettleLost(s.now(), lostFine); err != nil {
			return err
		}
		return uow.Loans().Settle(ctx, loan)
	})
	if err != nil {
		return nil, s.fail(ctx, method, err)
	}

	s.recordSettlement(ctx, loan, book, 0)
	logger.ExitMethod(ctx, method, "loanID", loan.ID, "lostFine", lostFine)
	return &LostReport{
		LostFine:   lostFine,
		BookPrice:  book.Price,
		Multiplier: policy.LostMultiplier,
	}, nil
}

func (s *circulationService) GetLoan(ctx context.Context, loanID, requesterID int32) (*domain.Loan, error) {
	const method = "CirculationService.GetLoan"
	logger.EnterMethod(ctx, method, "loanID", loanID, "requesterID", requesterID)

	loan, err := s.loans.GetByID(ctx, loanID)
	if err != nil {
		return nil, s.fail(ctx, method, err)
	}
	if !loan.HasParticipant(requesterID) {
		return nil, s.fail(ctx, method, loanNotFound(loanID))
	}
	logger.ExitMethod(ctx, method)
	return loan, nil
}

func (s *circulationService) ListLoans(ctx context.Context, requesterID int32, status string, page, pageSize int32) ([]domain.Loan, int32, error) {
	const method = "CirculationService.ListLoans"
	logger.EnterMethod(ctx, method, "requesterID", requesterID, "status", status, "page", page, "pageSize", pageSize)

	if status != "" {
		st, err := domain.ParseLoanStatus(status)
		if err != nil {
			return nil, 0, s.fail(ctx, method, err)
		}
		status = string(st)
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	loans, count, err := s.loans.ListByParticipant(ctx, requesterID, status, page, pageSize)
	if err != nil {
		return nil, 0, s.fail(ctx, method, err)
	}
	logger.ExitMethod(ctx, method, "count", count)
	return loans, count, nil
}

// lockOwnLoan loads the loan under a row lock. A loan the requester is not
// part of is reported as absent.
func lockOwnLoan(ctx context.Context, uow repository.UnitOfWork, loanID, requesterID int32) (*domain.Loan, error) {
	loan, err := uow.Loans().GetForUpdate(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if !loan.HasParticipant(requesterID) {
		return nil, loanNotFound(loanID)
	}
	return loan, nil
}

func loanNotFound(loanID int32) error {
	return domain.NewError(domain.KindNotFound, fmt.Sprintf("loan %d not found", loanID))
}

// recordSettlement runs after commit. Notice delivery never fails the settlement.
func (s *circulationService) recordSettlement(ctx context.Context, loan *domain.Loan, book *domain.Book, overdueDays int) {
	fine, _ := loan.TotalFine.Float64()
	loansSettled.WithLabelValues(string(loan.Status)).Inc()
	finesCharged.WithLabelValues(string(loan.Status)).Observe(fine)
	logger.InfoContext(ctx, "Loan settled", "loanID", loan.ID, "bookID", loan.BookID, "status", loan.Status, "totalFine", loan.TotalFine.StringFixed(utils.MoneyPlaces))

	if !loan.TotalFine.IsPositive() {
		return
	}
	notice := SettlementNotice{
		LoanID:      loan.ID,
		BookTitle:   book.Title,
		Status:      loan.Status,
		OverdueDays: overdueDays,
		TotalFine:   loan.TotalFine,
		SettledOn:   *loan.SettledOn,
	}
	for _, p := range loan.Participants {
		if err := s.notifier.SendSettlementNotice(ctx, p, notice); err != nil {
			logger.WarnContext(ctx, "Failed to send settlement notice", "loanID", loan.ID, "userID", p.UserID, "error", err)
		}
	}
}

// fail logs and counts err, and wraps anything outside the taxonomy as INTERNAL.
func (s *circulationService) fail(ctx context.Context, method string, err error) error {
	var de *domain.Error
	if !errors.As(err, &de) {
		err = domain.Internal("unexpected store failure", err)
	}
	kind := domain.KindOf(err)
	refusals.WithLabelValues(method, string(kind)).Inc()
	logger.ExitMethodWithError(ctx, method, err, kind != domain.KindInternal)
	return err
}
