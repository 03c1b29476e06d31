package grpc

import (
	"context"

	"library-circulation/internal/service"

	"google.golang.org/grpc"
)

const ServiceName = "library.v1.CirculationService"

const (
	methodBorrow     = "/" + ServiceName + "/Borrow"
	methodReturn     = "/" + ServiceName + "/Return"
	methodReportLost = "/" + ServiceName + "/ReportLost"
	methodGetLoan    = "/" + ServiceName + "/GetLoan"
)

// CirculationServer is the server API for library.v1.CirculationService.
type CirculationServer interface {
	Borrow(context.Context, *BorrowRequest) (*service.BorrowResult, error)
	Return(context.Context, *ReturnRequest) (*service.ReturnResult, error)
	ReportLost(context.Context, *LoanRequest) (*service.LostReport, error)
	GetLoan(context.Context, *LoanRequest) (*LoanResponse, error)
}

func RegisterCirculationServer(s grpc.ServiceRegistrar, srv CirculationServer) {
	s.RegisterService(&CirculationServiceDesc, srv)
}

// unary adapts one typed method to the grpc.MethodDesc handler shape.
func unary[Req any, Resp any](fullMethod string, call func(CirculationServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CirculationServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CirculationServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var CirculationServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CirculationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Borrow", Handler: unary(methodBorrow, CirculationServer.Borrow)},
		{MethodName: "Return", Handler: unary(methodReturn, CirculationServer.Return)},
		{MethodName: "ReportLost", Handler: unary(methodReportLost, CirculationServer.ReportLost)},
		{MethodName: "GetLoan", Handler: unary(methodGetLoan, CirculationServer.GetLoan)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "library/v1/circulation.json",
}

// CirculationClient calls the service with the JSON codec.
type CirculationClient struct {
	cc grpc.ClientConnInterface
}

func NewCirculationClient(cc grpc.ClientConnInterface) *CirculationClient {
	return &CirculationClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CirculationClient) Borrow(ctx context.Context, in *BorrowRequest, opts ...grpc.CallOption) (*service.BorrowResult, error) {
	return invoke[service.BorrowResult](ctx, c.cc, methodBorrow, in, opts)
}

func (c *CirculationClient) Return(ctx context.Context, in *ReturnRequest, opts ...grpc.CallOption) (*service.ReturnResult, error) {
	return invoke[service.ReturnResult](ctx, c.cc, methodReturn, in, opts)
}

func (c *CirculationClient) ReportLost(ctx context.Context, in *LoanRequest, opts ...grpc.CallOption) (*service.LostReport, error) {
	return invoke[service.LostReport](ctx, c.cc, methodReportLost, in, opts)
}

func (c *CirculationClient) GetLoan(ctx context.Context, in *LoanRequest, opts ...grpc.CallOption) (*LoanResponse, error) {
	return invoke[LoanResponse](ctx, c.cc, methodGetLoan, in, opts)
}
