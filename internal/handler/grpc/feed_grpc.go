package grpc

import (
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// FeedServiceName is the fully-qualified gRPC service name.
const FeedServiceName = "feed.v1.Feed"

// FeedStreamMethod is the full method name of the server-streaming call.
const FeedStreamMethod = "/" + FeedServiceName + "/Stream"

// FeedServer is the server API for feed.v1.Feed. Packets are carried as
// google.protobuf.Struct, so no generated message types are needed.
type FeedServer interface {
	Stream(*emptypb.Empty, Feed_StreamServer) error
}

type Feed_StreamServer interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type feedStreamServer struct {
	grpc.ServerStream
}

func (x *feedStreamServer) Send(m *structpb.Struct) error {
	return x.ServerStream.SendMsg(m)
}

func _Feed_Stream_Handler(srv any, stream grpc.ServerStream) error {
	m := new(emptypb.Empty)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(FeedServer).Stream(m, &feedStreamServer{stream})
}

var Feed_ServiceDesc = grpc.ServiceDesc{
	ServiceName: FeedServiceName,
	HandlerType: (*FeedServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Stream",
			Handler:       _Feed_Stream_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "feed/v1/feed.proto",
}

func RegisterFeedServer(s grpc.ServiceRegistrar, srv FeedServer) {
	s.RegisterService(&Feed_ServiceDesc, srv)
}
