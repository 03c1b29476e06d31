// Package memory is an in-process backend for development and tests. A
// single mutex serialises every unit of work, which gives the same
// guarantees the relational store gets from row locks.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"library-circulation/internal/domain"
	"library-circulation/internal/repository"
)

type dataset struct {
	users      map[int32]domain.User
	books      map[int32]domain.Book
	loans      map[int32]domain.Loan
	policy     *domain.FinePolicy
	nextLoanID int32
}

func newDataset() *dataset {
	return &dataset{
		users: make(map[int32]domain.User),
		books: make(map[int32]domain.Book),
		loans: make(map[int32]domain.Loan),
	}
}

func (d *dataset) clone() *dataset {
	c := &dataset{
		users:      make(map[int32]domain.User, len(d.users)),
		books:      make(map[int32]domain.Book, len(d.books)),
		loans:      make(map[int32]domain.Loan, len(d.loans)),
		nextLoanID: d.nextLoanID,
	}
	for id, u := range d.users {
		c.users[id] = u
	}
	for id, b := range d.books {
		c.books[id] = b
	}
	for id, l := range d.loans {
		c.loans[id] = copyLoan(l)
	}
	if d.policy != nil {
		p := *d.policy
		c.policy = &p
	}
	return c
}

func copyLoan(l domain.Loan) domain.Loan {
	l.Participants = append([]domain.Participant(nil), l.Participants...)
	if l.SettledOn != nil {
		t := *l.SettledOn
		l.SettledOn = &t
	}
	return l
}

type Store struct {
	mu       sync.Mutex
	data     *dataset
	fallback domain.FinePolicy

	// Read-only views outside a unit of work; each call takes the store lock.
	Loans     repository.LoanReader
	Policies  repository.FinePolicyRepository
	Reminders repository.ReminderRepository
}

func NewStore(fallback domain.FinePolicy) *Store {
	s := &Store{data: newDataset(), fallback: fallback}
	s.Loans = &lockedLoans{s}
	s.Policies = &lockedPolicy{s}
	s.Reminders = &lockedReminders{s}
	return s
}

// WithinTransaction applies fn to a working copy and swaps it in only when fn succeeds.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context, uow repository.UnitOfWork) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(ctx, &unitOfWork{d: work}); err != nil {
		return err
	}
	s.data = work
	return nil
}

func (s *Store) AddUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.users[u.ID] = u
}

func (s *Store) AddBook(b domain.Book) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.books[b.ID] = b
}

func (s *Store) SetFinePolicy(p domain.FinePolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.policy = &p
}

// Book returns a copy of the stored book row.
func (s *Store) Book(id int32) (domain.Book, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.data.books[id]
	return b, ok
}

// CountLoans returns how many loans on bookID are in one of statuses.
func (s *Store) CountLoans(bookID int32, statuses ...domain.LoanStatus) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.data.loans {
		if l.BookID != bookID {
			continue
		}
		for _, st := range statuses {
			if l.Status == st {
				n++
				break
			}
		}
	}
	return n
}

type unitOfWork struct {
	d *dataset
}

func (u *unitOfWork) Users() repository.UserRepository { return &users{u.d} }
func (u *unitOfWork) Books() repository.InventoryLedger { return &books{u.d} }
func (u *unitOfWork) Loans() repository.LoanRepository  { return &loans{u.d} }

type users struct{ d *dataset }

func (r *users) GetByID(_ context.Context, id int32) (*domain.User, error) {
	u, ok := r.d.users[id]
	if !ok {
		return nil, domain.NewError(domain.KindNotFound, "user not found")
	}
	return &u, nil
}

func (r *users) ResolveByEmails(_ context.Context, emails []string) (map[string]*domain.User, error) {
	wanted := make(map[string]bool, len(emails))
	for _, e := range emails {
		wanted[strings.ToLower(e)] = true
	}
	found := make(map[string]*domain.User, len(emails))
	for _, u := range r.d.users {
		key := strings.ToLower(u.Email)
		if wanted[key] {
			u := u
			found[key] = &u
		}
	}
	return found, nil
}

func (r *users) LockParticipants(context.Context, []int32) error { return nil }

type books struct{ d *dataset }

func (r *books) GetForUpdate(_ context.Context, bookID int32) (*domain.Book, error) {
	b, ok := r.d.books[bookID]
	if !ok {
		return nil, domain.NewError(domain.KindNotFound, "book not found")
	}
	return &b, nil
}

func (r *books) DecrementIfPositive(_ context.Context, bookID int32) (bool, error) {
	b, ok := r.d.books[bookID]
	if !ok || b.AvailableCopies <= 0 {
		return false, nil
	}
	b.AvailableCopies--
	r.d.books[bookID] = b
	return true, nil
}

func (r *books) Increment(_ context.Context, bookID int32) error {
	b, ok := r.d.books[bookID]
	if !ok {
		return domain.NewError(domain.KindNotFound, "book not found")
	}
	if b.AvailableCopies >= b.TotalCopies {
		return domain.Internal("inventory integrity fault: increment would exceed total copies", nil)
	}
	b.AvailableCopies++
	r.d.books[bookID] = b
	return nil
}

type loans struct{ d *dataset }

func (r *loans) Create(ctx context.Context, l *domain.Loan) error {
	conflicts, err := r.FindActiveByParticipants(ctx, l.ParticipantIDs())
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return domain.AlreadyBorrowing(conflicts)
	}
	r.d.nextLoanID++
	l.ID = r.d.nextLoanID
	r.d.loans[l.ID] = copyLoan(*l)
	return nil
}

func (r *loans) GetByID(_ context.Context, id int32) (*domain.Loan, error) {
	l, ok := r.d.loans[id]
	if !ok {
		return nil, domain.NewError(domain.KindNotFound, "loan not found")
	}
	l = copyLoan(l)
	return &l, nil
}

func (r *loans) GetForUpdate(ctx context.Context, id int32) (*domain.Loan, error) {
	return r.GetByID(ctx, id)
}

func (r *loans) FindActiveByParticipants(_ context.Context, userIDs []int32) ([]domain.ActiveLoanConflict, error) {
	wanted := make(map[int32]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}
	var conflicts []domain.ActiveLoanConflict
	for _, l := range r.d.loans {
		if l.Status != domain.LoanStatusActive {
			continue
		}
		for _, p := range l.Participants {
			if wanted[p.UserID] {
				conflicts = append(conflicts, domain.ActiveLoanConflict{
					UserID:    p.UserID,
					Email:     p.Email,
					LoanID:    l.ID,
					BookID:    l.BookID,
					BookTitle: r.d.books[l.BookID].Title,
				})
			}
		}
	}
	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].UserID < conflicts[j].UserID })
	return conflicts, nil
}

func (r *loans) Settle(_ context.Context, l *domain.Loan) error {
	stored, ok := r.d.loans[l.ID]
	if !ok {
		return domain.NewError(domain.KindNotFound, "loan not found")
	}
	if stored.Status != domain.LoanStatusActive {
		return domain.NewError(domain.KindNotActive, "loan is no longer active")
	}
	if !l.Status.IsTerminal() || l.SettledOn == nil {
		return domain.Internal("loan is not settled", nil)
	}
	r.d.loans[l.ID] = copyLoan(*l)
	return nil
}

func (r *loans) ListByParticipant(_ context.Context, userID int32, status string, page, pageSize int32) ([]domain.Loan, int32, error) {
	var matched []domain.Loan
	for _, l := range r.d.loans {
		if status != "" && string(l.Status) != status {
			continue
		}
		if l.HasParticipant(userID) {
			matched = append(matched, copyLoan(l))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedOn.Equal(matched[j].CreatedOn) {
			return matched[i].CreatedOn.After(matched[j].CreatedOn)
		}
		return matched[i].ID > matched[j].ID
	})

	count := int64(len(matched))
	start := repository.Offset(page, pageSize)
	if pageSize < 1 || start >= count {
		return nil, int32(count), nil
	}
	end := min(start+int64(pageSize), count)
	return matched[start:end], int32(count), nil
}

func (d *dataset) finePolicy(fallback domain.FinePolicy) domain.FinePolicy {
	if d.policy != nil {
		return *d.policy
	}
	return fallback
}

func (d *dataset) overdueActive(asOf time.Time) []repository.OverdueLoan {
	var out []repository.OverdueLoan
	for _, l := range d.loans {
		if l.Status != domain.LoanStatusActive || !l.DueDate.Before(asOf) {
			continue
		}
		b := d.books[l.BookID]
		for _, p := range l.Participants {
			out = append(out, repository.OverdueLoan{
				LoanID:    l.ID,
				BookID:    l.BookID,
				BookTitle: b.Title,
				BookPrice: b.Price.String(),
				DueDate:   l.DueDate,
				UserID:    p.UserID,
				Email:     p.Email,
				Name:      p.Name,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].LoanID < out[j].LoanID
	})
	return out
}
