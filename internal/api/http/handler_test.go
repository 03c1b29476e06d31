package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"library-circulation/internal/domain"
	"library-circulation/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCirculationService struct {
	mock.Mock
}

func (m *MockCirculationService) Borrow(ctx context.Context, req service.BorrowRequest) (*service.BorrowResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BorrowResult), args.Error(1)
}

func (m *MockCirculationService) Return(ctx context.Context, req service.ReturnRequest) (*service.ReturnResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReturnResult), args.Error(1)
}

func (m *MockCirculationService) ReportLost(ctx context.Context, loanID, requesterID int32) (*service.LostReport, error) {
	args := m.Called(ctx, loanID, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LostReport), args.Error(1)
}

func (m *MockCirculationService) GetLoan(ctx context.Context, loanID, requesterID int32) (*domain.Loan, error) {
	args := m.Called(ctx, loanID, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockCirculationService) ListLoans(ctx context.Context, requesterID int32, status string, page, pageSize int32) ([]domain.Loan, int32, error) {
	args := m.Called(ctx, requesterID, status, page, pageSize)
	loans, _ := args.Get(0).([]domain.Loan)
	return loans, args.Get(1).(int32), args.Error(2)
}

func do(t *testing.T, router http.Handler, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID != "" {
		req.Header.Set(UserIDHeader, userID)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body map[string]errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestHandler_Borrow(t *testing.T) {
	svc := new(MockCirculationService)
	router := NewRouter(svc, RouterOptions{})
	due := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	t.Run("Created", func(t *testing.T) {
		svc.On("Borrow", mock.Anything, service.BorrowRequest{
			RequesterID: 4, BookID: 9, ParticipantEmails: []string{"bob@lib.io"}, DueDate: &due,
		}).Return(&service.BorrowResult{LoanID: 31, DueDate: due, BorrowType: domain.BorrowTypeGroup}, nil).Once()

		rec := do(t, router, http.MethodPost, "/api/v1/loans", "4",
			`{"book_id": 9, "participant_emails": ["bob@lib.io"], "due_date": "2026-10-01T00:00:00Z"}`)
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

		var res service.BorrowResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, int32(31), res.LoanID)
		assert.Equal(t, domain.BorrowTypeGroup, res.BorrowType)
	})

	t.Run("Refusal carries kind and details", func(t *testing.T) {
		refusal := domain.AlreadyBorrowing([]domain.ActiveLoanConflict{{UserID: 4, LoanID: 2, BookTitle: "Emma"}})
		svc.On("Borrow", mock.Anything, mock.Anything).Return(nil, refusal).Once()

		rec := do(t, router, http.MethodPost, "/api/v1/loans", "4", `{"book_id": 9}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, domain.KindAlreadyBorrowing, body.Kind)
		assert.Contains(t, body.Details, "conflicts")
		assert.Equal(t, rec.Header().Get(RequestIDHeader), body.RequestID)
	})

	t.Run("Missing requester", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/api/v1/loans", "", `{"book_id": 9}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Malformed body", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/api/v1/loans", "4", `{"book_id": "nine"`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, domain.KindInvalidArgument, decodeError(t, rec).Kind)
	})

	t.Run("Missing book", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/api/v1/loans", "4", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	svc.AssertExpectations(t)
}

func TestHandler_Return(t *testing.T) {
	svc := new(MockCirculationService)
	router := NewRouter(svc, RouterOptions{})

	svc.On("Return", mock.Anything, service.ReturnRequest{LoanID: 12, RequesterID: 4, Damage: "SMALL", DamageNotes: "bent"}).
		Return(&service.ReturnResult{TotalFine: decimal.RequireFromString("12.50"), FinalStatus: domain.LoanStatusReturned}, nil).Once()
	rec := do(t, router, http.MethodPost, "/api/v1/loans/12/return", "4", `{"damage_level": "SMALL", "damage_notes": "bent"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"final_status":"RETURNED"`)
	assert.Contains(t, rec.Body.String(), `"total_fine":"12.5"`)

	svc.On("Return", mock.Anything, service.ReturnRequest{LoanID: 12, RequesterID: 4}).
		Return(nil, domain.NewError(domain.KindNotActive, "loan 12 is already RETURNED")).Once()
	rec = do(t, router, http.MethodPost, "/api/v1/loans/12/return", "4", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, domain.KindNotActive, decodeError(t, rec).Kind)

	svc.AssertExpectations(t)
}

func TestHandler_ReturnBodyOptional(t *testing.T) {
	svc := new(MockCirculationService)
	router := NewRouter(svc, RouterOptions{})
	svc.On("Return", mock.Anything, service.ReturnRequest{LoanID: 12, RequesterID: 4}).
		Return(&service.ReturnResult{FinalStatus: domain.LoanStatusReturned}, nil)

	// chunked transfer with nothing in it
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loans/12/return", strings.NewReader(""))
	req.ContentLength = -1
	req.Header.Set(UserIDHeader, "4")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/v1/loans/12/return", "4", `{"damage_level": 5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNumberOfCalls(t, "Return", 1)
}

func TestHandler_ReportLostAndGetLoan(t *testing.T) {
	svc := new(MockCirculationService)
	router := NewRouter(svc, RouterOptions{})

	svc.On("ReportLost", mock.Anything, int32(5), int32(4)).
		Return(&service.LostReport{LostFine: decimal.NewFromInt(40), BookPrice: decimal.NewFromInt(20), Multiplier: decimal.NewFromInt(2)}, nil)
	rec := do(t, router, http.MethodPost, "/api/v1/loans/5/lost", "4", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"lost_fine":"40"`)

	svc.On("GetLoan", mock.Anything, int32(5), int32(9)).Return(nil, domain.NewError(domain.KindNotFound, "loan 5 not found"))
	rec = do(t, router, http.MethodGet, "/api/v1/loans/5", "9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/v1/loans/abc", "9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_ListLoans(t *testing.T) {
	svc := new(MockCirculationService)
	router := NewRouter(svc, RouterOptions{})

	svc.On("ListLoans", mock.Anything, int32(4), "ACTIVE", int32(1), int32(service.DefaultPageSize)).
		Return([]domain.Loan{{ID: 3, Status: domain.LoanStatusActive}}, int32(1), nil)
	rec := do(t, router, http.MethodGet, "/api/v1/loans?status=ACTIVE", "4", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var list loanList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, int32(1), list.Count)
	assert.Equal(t, int32(3), list.Loans[0].ID)
	assert.Equal(t, int32(service.DefaultPageSize), list.PageSize)

	rec = do(t, router, http.MethodGet, "/api/v1/loans?page=x", "4", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_InternalErrorsAreOpaque(t *testing.T) {
	svc := new(MockCirculationService)
	router := NewRouter(svc, RouterOptions{})

	svc.On("GetLoan", mock.Anything, int32(1), int32(1)).
		Return(nil, domain.Internal("store operation failed", errors.New("password authentication failed")))
	rec := do(t, router, http.MethodGet, "/api/v1/loans/1", "1", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
	assert.Equal(t, domain.KindInternal, decodeError(t, rec).Kind)
}

func TestHealth(t *testing.T) {
	router := NewRouter(new(MockCirculationService), RouterOptions{})
	rec := do(t, router, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	router = NewRouter(new(MockCirculationService), RouterOptions{Health: func(context.Context) error { return errors.New("db down") }})
	rec = do(t, router, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, StatusFor(domain.KindOutOfStock))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(domain.KindInvalidDueDate))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(domain.KindUnknownParticipant))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(domain.KindInternal))
}
