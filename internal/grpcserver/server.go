// Package grpcserver runs the optional gRPC endpoint, which serves the standard
// health checking protocol so orchestrators can probe the store.
package grpcserver

import (
	"net"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/patric-chuzhbe/wikisubs/internal/grpcserver/interceptor"
)

const healthCheckMethod = "/grpc.health.v1.Health/Check"

func newServer(handler *HealthHandler) *grpc.Server {
	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptor.UnaryLoggingInterceptor([]string{
				healthCheckMethod,
			}),
		),
	)
	healthpb.RegisterHealthServer(server, handler)

	return server
}

// NewGRPCServer listens on addr and returns a server ready for Serve.
func NewGRPCServer(addr string, handler *HealthHandler) (*grpc.Server, net.Listener, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}

	return newServer(handler), lis, nil
}
