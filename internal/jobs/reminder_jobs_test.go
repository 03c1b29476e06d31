package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"library-circulation/internal/config"
	"library-circulation/internal/domain"
	"library-circulation/internal/repository"
	"library-circulation/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockReminderRepo struct {
	mock.Mock
}

func (m *MockReminderRepo) ListOverdueActive(ctx context.Context, asOf time.Time) ([]repository.OverdueLoan, error) {
	args := m.Called(ctx, asOf)
	rows, _ := args.Get(0).([]repository.OverdueLoan)
	return rows, args.Error(1)
}

type MockFinePolicyRepo struct {
	mock.Mock
}

func (m *MockFinePolicyRepo) Get(ctx context.Context) (domain.FinePolicy, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.FinePolicy), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendSettlementNotice(ctx context.Context, to domain.Participant, notice service.SettlementNotice) error {
	return m.Called(ctx, to, notice).Error(0)
}

func (m *MockNotifier) SendOverdueReminder(ctx context.Context, to domain.Participant, reminder service.OverdueReminder) error {
	return m.Called(ctx, to, reminder).Error(0)
}

func newRunner(reminders *MockReminderRepo, policies *MockFinePolicyRepo, notifier *MockNotifier, now time.Time) *JobRunner {
	cfg := config.Default()
	jr := NewJobRunner(reminders, policies, notifier, &cfg)
	jr.now = func() time.Time { return now }
	return jr
}

func TestRunOverdueReminders(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	due := now.Add(-5 * 24 * time.Hour)

	reminders := new(MockReminderRepo)
	policies := new(MockFinePolicyRepo)
	notifier := new(MockNotifier)

	policies.On("Get", mock.Anything).Return(domain.DefaultFinePolicy(), nil)
	reminders.On("ListOverdueActive", mock.Anything, now).Return([]repository.OverdueLoan{
		{LoanID: 1, BookID: 1, BookTitle: "Dune", BookPrice: "1000.00", DueDate: due, UserID: 2, Email: "a@x.io", Name: "A"},
		{LoanID: 1, BookID: 1, BookTitle: "Dune", BookPrice: "1000.00", DueDate: due, UserID: 3, Email: "b@x.io", Name: "B"},
		{LoanID: 2, BookID: 4, BookTitle: "Bad", BookPrice: "n/a", DueDate: due, UserID: 5, Email: "c@x.io", Name: "C"},
	}, nil)

	var got []service.OverdueReminder
	notifier.On("SendOverdueReminder", mock.Anything, mock.MatchedBy(func(p domain.Participant) bool { return p.UserID == 2 }), mock.Anything).
		Run(func(args mock.Arguments) { got = append(got, args.Get(2).(service.OverdueReminder)) }).
		Return(nil)
	notifier.On("SendOverdueReminder", mock.Anything, mock.MatchedBy(func(p domain.Participant) bool { return p.UserID == 3 }), mock.Anything).
		Return(errors.New("smtp down"))

	sent, err := newRunner(reminders, policies, notifier, now).RunOverdueReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	require.Len(t, got, 1)
	assert.Equal(t, int32(1), got[0].LoanID)
	assert.Equal(t, 5, got[0].OverdueDays)
	assert.True(t, got[0].AccruedFine.Equal(decimal.NewFromInt(250)), got[0].AccruedFine.String())
	notifier.AssertNumberOfCalls(t, "SendOverdueReminder", 2)
}

func TestRunOverdueReminders_StoreErrors(t *testing.T) {
	now := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	policies := new(MockFinePolicyRepo)
	policies.On("Get", mock.Anything).Return(domain.FinePolicy{}, errors.New("db down"))
	_, err := newRunner(new(MockReminderRepo), policies, new(MockNotifier), now).RunOverdueReminders(context.Background())
	assert.Error(t, err)

	policies = new(MockFinePolicyRepo)
	policies.On("Get", mock.Anything).Return(domain.DefaultFinePolicy(), nil)
	reminders := new(MockReminderRepo)
	reminders.On("ListOverdueActive", mock.Anything, now).Return(nil, errors.New("query failed"))
	_, err = newRunner(reminders, policies, new(MockNotifier), now).RunOverdueReminders(context.Background())
	assert.Error(t, err)
}

func TestSendOverdueReminders_RecoversPanic(t *testing.T) {
	policies := new(MockFinePolicyRepo)
	policies.On("Get", mock.Anything).Run(func(mock.Arguments) { panic("boom") }).Return(domain.FinePolicy{}, nil)

	jr := newRunner(new(MockReminderRepo), policies, new(MockNotifier), time.Now())
	assert.NotPanics(t, jr.SendOverdueReminders)
}
