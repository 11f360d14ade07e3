package grpcx

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// UnaryClientRequestID forwards the caller's request id as outgoing metadata,
// minting one when the context carries none.
func UnaryClientRequestID() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		requestID := RequestIDFromContext(ctx)
		if requestID == "" {
			requestID = NewRequestID()
		}
		ctx = metadata.AppendToOutgoingContext(ctx, RequestIDMetadataKey, requestID)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// UnaryServerRequestID lifts the request id from incoming metadata into the
// handler context so server logs correlate with the caller's.
func UnaryServerRequestID() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		requestID := requestIDFromMetadata(ctx)
		if requestID == "" {
			requestID = NewRequestID()
		}
		return handler(WithRequestID(ctx, requestID), req)
	}
}
