package handler

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"

	"github.com/rl1809/inventory/internal/core/service"
)

// JSONCodecName is the gRPC content-subtype clients must use ("application/grpc+json").
const JSONCodecName = "json"

const inventoryServiceName = "inventory.v1.InventoryService"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                               { return JSONCodecName }

type GetStockRequest struct {
	ProductID int64 `json:"product_id"`
}

// SetStockRequest.Quantity is a pointer so an omitted field is rejected instead of decoding to zero.
type SetStockRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  *int  `json:"quantity"`
}

type InventoryReply struct {
	ID        int64 `json:"id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type PurchaseProductRequest struct {
	ProductID int64 `json:"product_id"`
	Amount    *int  `json:"amount"`
}

type PurchaseReply struct {
	ProductID          int64  `json:"product_id"`
	PurchasedAmount    int    `json:"purchased_amount"`
	RemainingQuantity  int    `json:"remaining_quantity"`
	ProductDescription string `json:"product_description,omitempty"`
}

// InventoryServer is the gRPC surface of the inventory workflow.
type InventoryServer interface {
	GetStock(context.Context, *GetStockRequest) (*InventoryReply, error)
	SetStock(context.Context, *SetStockRequest) (*InventoryReply, error)
	PurchaseProduct(context.Context, *PurchaseProductRequest) (*PurchaseReply, error)
}

type GRPCHandler struct {
	inventory *service.InventoryService
	logger    *zap.Logger
}

func NewGRPCHandler(inventory *service.InventoryService, logger *zap.Logger) *GRPCHandler {
	return &GRPCHandler{inventory: inventory, logger: logger}
}

// RegisterInventoryServer attaches srv to s under inventory.v1.InventoryService.
func RegisterInventoryServer(s grpc.ServiceRegistrar, srv InventoryServer) {
	s.RegisterService(&inventoryServiceDesc, srv)
}

func (h *GRPCHandler) GetStock(ctx context.Context, req *GetStockRequest) (*InventoryReply, error) {
	if req.ProductID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "product_id must be a positive integer")
	}

	record, err := h.inventory.GetStock(ctx, req.ProductID)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &InventoryReply{ID: record.ID, ProductID: record.ProductID, Quantity: record.Quantity}, nil
}

func (h *GRPCHandler) SetStock(ctx context.Context, req *SetStockRequest) (*InventoryReply, error) {
	if req.ProductID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "product_id must be a positive integer")
	}
	if req.Quantity == nil {
		return nil, status.Error(codes.InvalidArgument, "quantity is required")
	}

	record, err := h.inventory.SetStock(ctx, req.ProductID, *req.Quantity)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &InventoryReply{ID: record.ID, ProductID: record.ProductID, Quantity: record.Quantity}, nil
}

func (h *GRPCHandler) PurchaseProduct(ctx context.Context, req *PurchaseProductRequest) (*PurchaseReply, error) {
	if req.ProductID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "product_id must be a positive integer")
	}
	if req.Amount == nil {
		return nil, status.Error(codes.InvalidArgument, "amount is required")
	}

	result, err := h.inventory.DecreaseStock(ctx, req.ProductID, *req.Amount)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &PurchaseReply{
		ProductID:          req.ProductID,
		PurchasedAmount:    result.PurchasedAmount,
		RemainingQuantity:  result.Record.Quantity,
		ProductDescription: result.ProductDescription,
	}, nil
}

// GRPCCode maps a workflow failure kind to a gRPC status code.
func GRPCCode(kind service.ErrorKind) codes.Code {
	switch kind {
	case service.KindProductNotFound, service.KindInventoryNotFound:
		return codes.NotFound
	case service.KindInvalidQuantity, service.KindInvalidAmount:
		return codes.InvalidArgument
	case service.KindInsufficientStock:
		return codes.FailedPrecondition
	case service.KindDependencyUnavailable:
		return codes.Unavailable
	case service.KindConcurrentUpdate:
		return codes.Aborted
	default:
		return codes.Internal
	}
}

func (h *GRPCHandler) toStatus(err error) error {
	kind := service.KindOf(err)
	code := GRPCCode(kind)
	if code == codes.Internal || code == codes.Unavailable {
		h.logger.Error("inventory rpc failed", zap.String("kind", string(kind)), zap.Error(err))
		return status.Error(code, errorMessage(kind))
	}
	return status.Error(code, err.Error())
}

var inventoryServiceDesc = grpc.ServiceDesc{
	ServiceName: inventoryServiceName,
	HandlerType: (*InventoryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStock", Handler: getStockHandler},
		{MethodName: "SetStock", Handler: setStockHandler},
		{MethodName: "PurchaseProduct", Handler: purchaseProductHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "inventory/v1/inventory.json",
}

func getStockHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetStockRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryServer).GetStock(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + inventoryServiceName + "/GetStock"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(InventoryServer).GetStock(ctx, req.(*GetStockRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func setStockHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SetStockRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryServer).SetStock(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + inventoryServiceName + "/SetStock"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(InventoryServer).SetStock(ctx, req.(*SetStockRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func purchaseProductHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PurchaseProductRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryServer).PurchaseProduct(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + inventoryServiceName + "/PurchaseProduct"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(InventoryServer).PurchaseProduct(ctx, req.(*PurchaseProductRequest))
	}
	return interceptor(ctx, in, info, handler)
}
