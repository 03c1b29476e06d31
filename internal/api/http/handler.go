package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"library-circulation/internal/domain"
	"library-circulation/internal/service"

	"github.com/gorilla/mux"
)

// UserIDHeader carries the requester id set by the authenticating gateway.
const UserIDHeader = "X-User-ID"

type Handler struct {
	svc service.CirculationService
}

func NewHandler(svc service.CirculationService) *Handler {
	return &Handler{svc: svc}
}

// RouterOptions wires the operational endpoints. Nil fields are skipped.
type RouterOptions struct {
	Health  func(ctx context.Context) error
	Metrics http.Handler
}

func NewRouter(svc service.CirculationService, opts RouterOptions) *mux.Router {
	h := NewHandler(svc)
	r := mux.NewRouter()
	r.Use(requestMiddleware)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/loans", h.Borrow).Methods(http.MethodPost)
	api.HandleFunc("/loans", h.ListLoans).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id:[0-9]+}", h.GetLoan).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id:[0-9]+}/return", h.Return).Methods(http.MethodPost)
	api.HandleFunc("/loans/{id:[0-9]+}/lost", h.ReportLost).Methods(http.MethodPost)

	r.HandleFunc("/health", healthHandler(opts.Health)).Methods(http.MethodGet)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics).Methods(http.MethodGet)
	}
	return r
}

type borrowBody struct {
	BookID            int32      `json:"book_id"`
	ParticipantEmails []string   `json:"participant_emails"`
	DueDate           *time.Time `json:"due_date"`
}

type returnBody struct {
	DamageLevel string `json:"damage_level"`
	DamageNotes string `json:"damage_notes"`
}

type loanList struct {
	Loans    []domain.Loan `json:"loans"`
	Count    int32         `json:"count"`
	Page     int32         `json:"page"`
	PageSize int32         `json:"page_size"`
}

func (h *Handler) Borrow(w http.ResponseWriter, r *http.Request) {
	userID, ok := requesterID(w, r)
	if !ok {
		return
	}
	var body borrowBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, r, "malformed request body: "+err.Error())
		return
	}
	if body.BookID <= 0 {
		badRequest(w, r, "book_id is required")
		return
	}

	res, err := h.svc.Borrow(r.Context(), service.BorrowRequest{
		RequesterID:       userID,
		BookID:            body.BookID,
		ParticipantEmails: body.ParticipantEmails,
		DueDate:           body.DueDate,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) Return(w http.ResponseWriter, r *http.Request) {
	userID, ok := requesterID(w, r)
	if !ok {
		return
	}
	loanID, ok := pathLoanID(w, r)
	if !ok {
		return
	}
	var body returnBody
	// The body is optional; an empty one means no damage.
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w, r, "malformed request body: "+err.Error())
		return
	}

	res, err := h.svc.Return(r.Context(), service.ReturnRequest{
		LoanID:      loanID,
		RequesterID: userID,
		Damage:      body.DamageLevel,
		DamageNotes: body.DamageNotes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) ReportLost(w http.ResponseWriter, r *http.Request) {
	userID, ok := requesterID(w, r)
	if !ok {
		return
	}
	loanID, ok := pathLoanID(w, r)
	if !ok {
		return
	}

	res, err := h.svc.ReportLost(r.Context(), loanID, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) GetLoan(w http.ResponseWriter, r *http.Request) {
	userID, ok := requesterID(w, r)
	if !ok {
		return
	}
	loanID, ok := pathLoanID(w, r)
	if !ok {
		return
	}

	loan, err := h.svc.GetLoan(r.Context(), loanID, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (h *Handler) ListLoans(w http.ResponseWriter, r *http.Request) {
	userID, ok := requesterID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	page, err := queryInt32(q.Get("page"))
	if err != nil {
		badRequest(w, r, "page must be a number")
		return
	}
	pageSize, err := queryInt32(q.Get("page_size"))
	if err != nil {
		badRequest(w, r, "page_size must be a number")
		return
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = service.DefaultPageSize
	}
	if pageSize > service.MaxPageSize {
		pageSize = service.MaxPageSize
	}

	loans, count, err := h.svc.ListLoans(r.Context(), userID, q.Get("status"), page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if loans == nil {
		loans = []domain.Loan{}
	}
	writeJSON(w, http.StatusOK, loanList{Loans: loans, Count: count, Page: page, PageSize: pageSize})
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func requesterID(w http.ResponseWriter, r *http.Request) (int32, bool) {
	raw := strings.TrimSpace(r.Header.Get(UserIDHeader))
	if raw == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]errorBody{"error": {
			Kind:      domain.KindInvalidArgument,
			Message:   UserIDHeader + " header is required",
			RequestID: requestIDFrom(r),
		}})
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		badRequest(w, r, "invalid "+UserIDHeader+" header")
		return 0, false
	}
	return int32(id), true
}

func pathLoanID(w http.ResponseWriter, r *http.Request) (int32, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		badRequest(w, r, "invalid loan id")
		return 0, false
	}
	return int32(id), true
}

func queryInt32(s string) (int32, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 10, 32)
	return int32(v), err
}
