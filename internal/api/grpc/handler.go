package grpc

import (
	"context"

	"library-circulation/internal/service"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type CirculationHandler struct {
	svc service.CirculationService
}

func NewCirculationHandler(svc service.CirculationService) *CirculationHandler {
	return &CirculationHandler{svc: svc}
}

func (h *CirculationHandler) Borrow(ctx context.Context, req *BorrowRequest) (*service.BorrowResult, error) {
	userID, err := GetUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if req.BookID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "book_id is required")
	}
	res, err := h.svc.Borrow(ctx, service.BorrowRequest{
		RequesterID:       userID,
		BookID:            req.BookID,
		ParticipantEmails: req.ParticipantEmails,
		DueDate:           req.DueDate,
	})
	return res, toStatus(err)
}

func (h *CirculationHandler) Return(ctx context.Context, req *ReturnRequest) (*service.ReturnResult, error) {
	userID, err := GetUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	res, err := h.svc.Return(ctx, service.ReturnRequest{
		LoanID:      req.LoanID,
		RequesterID: userID,
		Damage:      req.DamageLevel,
		DamageNotes: req.DamageNotes,
	})
	return res, toStatus(err)
}

func (h *CirculationHandler) ReportLost(ctx context.Context, req *LoanRequest) (*service.LostReport, error) {
	userID, err := GetUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	res, err := h.svc.ReportLost(ctx, req.LoanID, userID)
	return res, toStatus(err)
}

func (h *CirculationHandler) GetLoan(ctx context.Context, req *LoanRequest) (*LoanResponse, error) {
	userID, err := GetUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	loan, err := h.svc.GetLoan(ctx, req.LoanID, userID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &LoanResponse{Loan: loan}, nil
}
