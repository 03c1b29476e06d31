package grpc

import (
	"errors"

	"library-circulation/internal/domain"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// CodeFor maps an error kind to its gRPC status code.
func CodeFor(kind domain.ErrorKind) codes.Code {
	switch kind {
	case domain.KindNotFound:
		return codes.NotFound
	case domain.KindOutOfStock, domain.KindAlreadyBorrowing, domain.KindNotActive:
		return codes.FailedPrecondition
	case domain.KindConflict:
		return codes.Aborted
	case domain.KindUnknownParticipant, domain.KindInvalidDueDate, domain.KindInvalidArgument:
		return codes.InvalidArgument
	default:
		return codes.Internal
	}
}

// toStatus converts a service error. The message keeps the kind as its
// prefix; internal causes are not exposed.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var de *domain.Error
	if !errors.As(err, &de) || de.Kind == domain.KindInternal {
		return status.Error(codes.Internal, string(domain.KindInternal)+": internal error")
	}
	return status.Error(CodeFor(de.Kind), string(de.Kind)+": "+de.Message)
}
