package handler

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/purchasing/internal/core/domain"
)

const (
	purchaseOrdersServiceName = "purchasing.v1.PurchaseOrders"
	createOrderMethod         = "/" + purchaseOrdersServiceName + "/CreateOrder"
	getOrderMethod            = "/" + purchaseOrdersServiceName + "/GetOrder"
)

type PurchaseOrdersServer interface {
	CreateOrder(context.Context, *CreateOrderRequest) (*CreateOrderResponse, error)
	GetOrder(context.Context, *GetOrderRequest) (*OrderResponse, error)
}

type GRPCHandler struct {
	orders OrderService
	logger *slog.Logger
}

func NewGRPCHandler(orders OrderService, logger *slog.Logger) *GRPCHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GRPCHandler{orders: orders, logger: logger}
}

func (h *GRPCHandler) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	in, err := req.toInput()
	if err != nil {
		return nil, h.statusError(createOrderMethod, err)
	}

	result, err := h.orders.CreateOrder(ctx, in)
	if err != nil {
		return nil, h.statusError(createOrderMethod, err)
	}
	return &CreateOrderResponse{ID: result.ID, IssueDate: result.IssueDate}, nil
}

func (h *GRPCHandler) GetOrder(ctx context.Context, req *GetOrderRequest) (*OrderResponse, error) {
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}

	order, err := h.orders.GetOrder(ctx, req.ID)
	if err != nil {
		return nil, h.statusError(getOrderMethod, err)
	}
	resp := newOrderResponse(order)
	return &resp, nil
}

func (h *GRPCHandler) statusError(method string, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidOrder):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		return status.Error(codes.NotFound, "purchase order not found")
	case errors.Is(err, domain.ErrDuplicateRequest):
		return status.Error(codes.AlreadyExists, "request with this idempotency key is in progress")
	case errors.Is(err, domain.ErrInvalidTransition):
		return status.Error(codes.FailedPrecondition, "purchase order is not pending approval")
	default:
		h.logger.Error("rpc failed", "method", method, "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}

func RegisterPurchaseOrdersServer(s grpc.ServiceRegistrar, srv PurchaseOrdersServer) {
	s.RegisterService(&purchaseOrdersServiceDesc, srv)
}

var purchaseOrdersServiceDesc = grpc.ServiceDesc{
	ServiceName: purchaseOrdersServiceName,
	HandlerType: (*PurchaseOrdersServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateOrder", Handler: createOrderHandler},
		{MethodName: "GetOrder", Handler: getOrderHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "purchasing/v1/purchase_orders",
}

func createOrderHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CreateOrderRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PurchaseOrdersServer).CreateOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: createOrderMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(PurchaseOrdersServer).CreateOrder(ctx, req.(*CreateOrderRequest))
	})
}

func getOrderHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetOrderRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PurchaseOrdersServer).GetOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getOrderMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(PurchaseOrdersServer).GetOrder(ctx, req.(*GetOrderRequest))
	})
}

// PurchaseOrdersClient calls the purchasing service using the JSON codec.
type PurchaseOrdersClient struct {
	cc grpc.ClientConnInterface
}

func NewPurchaseOrdersClient(cc grpc.ClientConnInterface) *PurchaseOrdersClient {
	return &PurchaseOrdersClient{cc: cc}
}

func (c *PurchaseOrdersClient) CreateOrder(ctx context.Context, in *CreateOrderRequest, opts ...grpc.CallOption) (*CreateOrderResponse, error) {
	out := new(CreateOrderResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(JSONCodecName)}, opts...)
	if err := c.cc.Invoke(ctx, createOrderMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *PurchaseOrdersClient) GetOrder(ctx context.Context, in *GetOrderRequest, opts ...grpc.CallOption) (*OrderResponse, error) {
	out := new(OrderResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(JSONCodecName)}, opts...)
	if err := c.cc.Invoke(ctx, getOrderMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
