package grpc

import (
	"time"

	"library-circulation/internal/domain"
)

type BorrowRequest struct {
	BookID            int32      `json:"book_id"`
	ParticipantEmails []string   `json:"participant_emails,omitempty"`
	DueDate           *time.Time `json:"due_date,omitempty"`
}

type ReturnRequest struct {
	LoanID      int32  `json:"loan_id"`
	DamageLevel string `json:"damage_level,omitempty"`
	DamageNotes string `json:"damage_notes,omitempty"`
}

type LoanRequest struct {
	LoanID int32 `json:"loan_id"`
}

type LoanResponse struct {
	Loan *domain.Loan `json:"loan"`
}
