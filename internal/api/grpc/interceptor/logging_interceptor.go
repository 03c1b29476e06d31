package interceptor

import (
	"context"
	"time"

	"library-circulation/internal/logger"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// RequestIDKey is read from incoming metadata and echoed in the response header.
const RequestIDKey = "x-request-id"

var handled = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "circulation",
	Subsystem: "grpc",
	Name:      "requests_total",
	Help:      "Unary RPCs handled, by method and status code.",
}, []string{"method", "code"})

// Logging tags each call with a request id, logs one line per RPC and counts it.
func Logging() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()

		id := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get(RequestIDKey); len(vals) > 0 {
				id = vals[0]
			}
		}
		if id == "" {
			id = uuid.NewString()
		}
		ctx = logger.WithRequestID(ctx, id)
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDKey, id))

		resp, err := handler(ctx, req)

		code := status.Code(err)
		handled.WithLabelValues(info.FullMethod, code.String()).Inc()
		logger.InfoContext(ctx, "gRPC request", "method", info.FullMethod, "code", code.String(), "duration", time.Since(start))
		return resp, err
	}
}

// Recovery turns a handler panic into an Internal status.
func Recovery() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if p := recover(); p != nil {
				logger.ErrorContext(ctx, "Panic in gRPC handler", "method", info.FullMethod, "panic", p)
				err = status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}
