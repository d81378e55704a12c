package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "receiptbox.v1.Receipts"

// ReceiptsServer is the RPC surface. Every message is a google.protobuf.Struct
// holding the JSON form of the request or result.
type ReceiptsServer interface {
	ParseText(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Scan(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Save(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Get(context.Context, *structpb.Struct) (*structpb.Struct, error)
	List(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Update(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Delete(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Reparse(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ConnectSheet(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SyncToSheet(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Export(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Classify(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(ReceiptsServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func method(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ReceiptsServer), ctx, req.(*structpb.Struct))
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var ReceiptsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReceiptsServer)(nil),
	Methods: []grpc.MethodDesc{
		method("ParseText", ReceiptsServer.ParseText),
		method("Scan", ReceiptsServer.Scan),
		method("Save", ReceiptsServer.Save),
		method("Get", ReceiptsServer.Get),
		method("List", ReceiptsServer.List),
		method("Update", ReceiptsServer.Update),
		method("Delete", ReceiptsServer.Delete),
		method("Reparse", ReceiptsServer.Reparse),
		method("ConnectSheet", ReceiptsServer.ConnectSheet),
		method("SyncToSheet", ReceiptsServer.SyncToSheet),
		method("Export", ReceiptsServer.Export),
		method("Classify", ReceiptsServer.Classify),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "receiptbox/v1/receipts.proto",
}

func RegisterReceiptsServer(s grpc.ServiceRegistrar, srv ReceiptsServer) {
	s.RegisterService(&ReceiptsServiceDesc, srv)
}

// Client calls the Receipts service with plain Go values, converted through JSON.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method with req and decodes the reply into resp, which may be nil.
func (c *Client) Call(ctx context.Context, method string, req, resp any, opts ...grpc.CallOption) error {
	in, err := toStruct(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	return fromStruct(out, resp)
}
