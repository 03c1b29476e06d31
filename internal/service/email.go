package service

import (
	"context"
	"fmt"
	"time"

	"library-circulation/internal/domain"
	"library-circulation/internal/logger"
	"library-circulation/internal/utils"

	"gopkg.in/gomail.v2"
)

// Sender is the part of gomail.Dialer the notifier needs.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type emailNotifier struct {
	sender Sender
	from   string
}

func NewEmailNotifier(host string, port int, username, password, from string) Notifier {
	return NewEmailNotifierWithSender(gomail.NewDialer(host, port, username, password), from)
}

func NewEmailNotifierWithSender(sender Sender, from string) Notifier {
	return &emailNotifier{sender: sender, from: from}
}

func (s *emailNotifier) SendSettlementNotice(ctx context.Context, to domain.Participant, n SettlementNotice) error {
	subject := fmt.Sprintf("Loan #%d settled: %s", n.LoanID, n.BookTitle)

	body := fmt.Sprintf("Hello %s,\n\nYour loan of \"%s\" was closed on %s with status %s.",
		displayName(to), n.BookTitle, n.SettledOn.Format("2006-01-02"), n.Status)
	if n.OverdueDays > 0 {
		body += fmt.Sprintf("\nIt was returned %d day(s) late.", n.OverdueDays)
	}
	body += fmt.Sprintf("\n\nAmount due: %s\n\nThe Library Circulation Desk", n.TotalFine.StringFixed(utils.MoneyPlaces))

	return s.send(ctx, to.Email, subject, body)
}

func (s *emailNotifier) SendOverdueReminder(ctx context.Context, to domain.Participant, r OverdueReminder) error {
	subject := fmt.Sprintf("Overdue: %s", r.BookTitle)
	body := fmt.Sprintf("Hello %s,\n\n\"%s\" was due on %s and is now %d day(s) overdue.\nFines accrued so far: %s\n\nPlease return it as soon as possible.\n\nThe Library Circulation Desk",
		displayName(to), r.BookTitle, r.DueDate.Format("2006-01-02"), r.OverdueDays, r.AccruedFine.StringFixed(utils.MoneyPlaces))

	return s.send(ctx, to.Email, subject, body)
}

func (s *emailNotifier) send(ctx context.Context, to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetDateHeader("Date", time.Now())
	m.SetBody("text/plain", body)

	logger.ExternalServiceCall("smtp", "send", "to", to, "subject", subject)
	err := s.sender.DialAndSend(m)
	logger.ExternalServiceResult("smtp", "send", err, "to", to)
	if err != nil {
		return fmt.Errorf("failed to send email via gomail: %w", err)
	}
	return nil
}

func displayName(p domain.Participant) string {
	if p.Name != "" {
		return p.Name
	}
	return p.Email
}

// logNotifier stands in for SMTP when mail is disabled.
type logNotifier struct{}

func NewLogNotifier() Notifier { return logNotifier{} }

func (logNotifier) SendSettlementNotice(ctx context.Context, to domain.Participant, n SettlementNotice) error {
	logger.InfoContext(ctx, "Settlement notice (mail disabled)", "loanID", n.LoanID, "to", to.Email, "totalFine", n.TotalFine.StringFixed(utils.MoneyPlaces))
	return nil
}

func (logNotifier) SendOverdueReminder(ctx context.Context, to domain.Participant, r OverdueReminder) error {
	logger.InfoContext(ctx, "Overdue reminder (mail disabled)", "loanID", r.LoanID, "to", to.Email, "overdueDays", r.OverdueDays)
	return nil
}
