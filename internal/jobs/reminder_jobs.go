package jobs

import (
	"context"

	"library-circulation/internal/domain"
	"library-circulation/internal/logger"
	"library-circulation/internal/service"
	"library-circulation/internal/utils"

	"github.com/shopspring/decimal"
)

// SendOverdueReminders emails every participant of an overdue ACTIVE loan
// the fine accrued so far. Loan state is never modified.
func (jr *JobRunner) SendOverdueReminders() {
	jr.runWithRecovery("SendOverdueReminders", func() {
		sent, err := jr.RunOverdueReminders(context.Background())
		if err != nil {
			logger.Error("Failed to send overdue reminders", "error", err)
			return
		}
		logger.Info("Sent overdue reminders", "count", sent)
	})
}

// RunOverdueReminders returns the number of reminders delivered. Delivery
// failures are logged and skipped.
func (jr *JobRunner) RunOverdueReminders(ctx context.Context) (int, error) {
	asOf := jr.now()

	policy, err := jr.policies.Get(ctx)
	if err != nil {
		return 0, err
	}

	rows, err := jr.reminders.ListOverdueActive(ctx, asOf)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, row := range rows {
		price, err := decimal.NewFromString(row.BookPrice)
		if err != nil {
			logger.Error("Invalid book price", "loan_id", row.LoanID, "book_id", row.BookID, "price", row.BookPrice)
			continue
		}
		fine := utils.CalculateFine(price, row.DueDate, asOf, domain.DamageNone, policy)

		to := domain.Participant{UserID: row.UserID, Email: row.Email, Name: row.Name}
		reminder := service.OverdueReminder{
			LoanID:      row.LoanID,
			BookTitle:   row.BookTitle,
			DueDate:     row.DueDate,
			OverdueDays: fine.OverdueDays,
			AccruedFine: fine.TotalFine,
		}
		if err := jr.notifier.SendOverdueReminder(ctx, to, reminder); err != nil {
			logger.Warn("Failed to send overdue reminder", "loan_id", row.LoanID, "user_id", row.UserID, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}
