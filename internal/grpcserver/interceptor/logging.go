// Package interceptor holds the unary interceptors of the gRPC server.
package interceptor

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/patric-chuzhbe/wikisubs/internal/logger"
)

// UnaryLoggingInterceptor writes an access log line for each of the listed methods.
// Calls that end with a non-OK code are logged at warn level.
func UnaryLoggingInterceptor(loggedMethods []string) grpc.UnaryServerInterceptor {
	logged := make(map[string]struct{}, len(loggedMethods))
	for _, m := range loggedMethods {
		logged[m] = struct{}{}
	}

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if _, ok := logged[info.FullMethod]; !ok {
			return handler(ctx, req)
		}

		start := time.Now()
		resp, err := handler(ctx, req)
		st, _ := status.FromError(err)

		remote := "unknown"
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			remote = p.Addr.String()
		}

		fields := []interface{}{
			"method", info.FullMethod,
			"peer", remote,
			"duration", time.Since(start),
			"code", st.Code().String(),
		}
		if st.Code() != codes.OK {
			logger.Log.Warnw("gRPC request failed", append(fields, "message", st.Message())...)
		} else {
			logger.Log.Infow("gRPC request", fields...)
		}

		return resp, err
	}
}
