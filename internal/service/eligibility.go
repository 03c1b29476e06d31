package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"library-circulation/internal/domain"
	"library-circulation/internal/repository"
)

// eligibility is the authorisation to open a loan.
type eligibility struct {
	book         *domain.Book
	participants []domain.Participant
	borrowType   domain.BorrowType
}

func checkDueDate(requested *time.Time, now time.Time, defaultDays int) (time.Time, error) {
	if requested == nil {
		return now.AddDate(0, 0, defaultDays), nil
	}
	if !requested.After(now) {
		return time.Time{}, domain.NewError(domain.KindInvalidDueDate, "due date must be in the future").
			WithDetail("due_date", requested.Format(time.RFC3339))
	}
	return *requested, nil
}

// normalizeEmails lower-cases, trims and de-duplicates emails, keeping the
// first-seen order and dropping the requester's own address.
func normalizeEmails(emails []string, requesterEmail string) []string {
	self := strings.ToLower(strings.TrimSpace(requesterEmail))
	seen := make(map[string]bool, len(emails))
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || e == self || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

// checkEligibility must run inside the borrow transaction: it takes the book
// row lock and the participant row locks before testing the active-loan rule.
func checkEligibility(ctx context.Context, uow repository.UnitOfWork, req BorrowRequest) (*eligibility, error) {
	book, err := uow.Books().GetForUpdate(ctx, req.BookID)
	if err != nil {
		return nil, err
	}
	if !book.InStock() {
		return nil, domain.NewError(domain.KindOutOfStock, "no copies of \""+book.Title+"\" are available").
			WithDetail("book_id", book.ID)
	}

	requester, err := uow.Users().GetByID(ctx, req.RequesterID)
	if err != nil && domain.KindOf(err) != domain.KindNotFound {
		return nil, err
	}
	if requester == nil || !requester.CanBorrow() {
		return nil, domain.NewError(domain.KindUnknownParticipant, "requester is not a verified, active account").
			WithDetail("requester_id", req.RequesterID)
	}

	el := &eligibility{
		book:         book,
		participants: []domain.Participant{requester.Participant()},
		borrowType:   domain.BorrowTypeSingle,
	}

	if len(req.ParticipantEmails) > 0 {
		emails := normalizeEmails(req.ParticipantEmails, requester.Email)
		if len(emails) == 0 {
			return nil, domain.NewError(domain.KindUnknownParticipant, "group borrow needs at least one participant besides the requester")
		}

		found, err := uow.Users().ResolveByEmails(ctx, emails)
		if err != nil {
			return nil, err
		}
		var unresolved []string
		for _, e := range emails {
			u, ok := found[e]
			if !ok || !u.CanBorrow() {
				unresolved = append(unresolved, e)
				continue
			}
			el.participants = append(el.participants, u.Participant())
		}
		if len(unresolved) > 0 {
			return nil, domain.UnknownParticipants(unresolved)
		}
		el.borrowType = domain.BorrowTypeGroup
	}

	ids := make([]int32, len(el.participants))
	for i, p := range el.participants {
		ids[i] = p.UserID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if err := uow.Users().LockParticipants(ctx, ids); err != nil {
		return nil, err
	}

	conflicts, err := uow.Loans().FindActiveByParticipants(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, domain.AlreadyBorrowing(conflicts)
	}
	return el, nil
}
