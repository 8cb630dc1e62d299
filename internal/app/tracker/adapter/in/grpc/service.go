package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName gRPC 服務名稱
const ServiceName = "cardledger.v1.TrackerService"

// 方法名稱
const (
	MethodAddCard           = "AddCard"
	MethodDeleteCard        = "DeleteCard"
	MethodAddTransaction    = "AddTransaction"
	MethodSettleTransaction = "SettleTransaction"
	MethodListCards         = "ListCards"
	MethodListTransactions  = "ListTransactions"
	MethodGetCardOverview   = "GetCardOverview"
	MethodGetSummary        = "GetSummary"
)

// TrackerServer 服務端需要實作的方法
// 訊息一律使用 structpb.Struct，金額以十進位字串傳遞
type TrackerServer interface {
	AddCard(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	DeleteCard(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	AddTransaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SettleTransaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListCards(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListTransactions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetCardOverview(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetSummary(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(TrackerServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// ServiceDesc 手寫的服務描述，對應 protoc 產生的 _ServiceDesc
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TrackerServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(MethodAddCard, TrackerServer.AddCard),
		unaryMethod(MethodDeleteCard, TrackerServer.DeleteCard),
		unaryMethod(MethodAddTransaction, TrackerServer.AddTransaction),
		unaryMethod(MethodSettleTransaction, TrackerServer.SettleTransaction),
		unaryMethod(MethodListCards, TrackerServer.ListCards),
		unaryMethod(MethodListTransactions, TrackerServer.ListTransactions),
		unaryMethod(MethodGetCardOverview, TrackerServer.GetCardOverview),
		unaryMethod(MethodGetSummary, TrackerServer.GetSummary),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cardledger/v1/tracker",
}

// Register 將 srv 註冊到 gRPC Server
func Register(s grpc.ServiceRegistrar, srv TrackerServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unaryMethod(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(TrackerServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod(name),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(TrackerServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Client 呼叫 TrackerService 的客戶端
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call 呼叫指定方法，參數與回傳值皆為 JSON 相容的 map
func (c *Client) Call(ctx context.Context, method string, in map[string]any) (map[string]any, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(method), req, out); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}
