package grpcserver

import (
	"context"

	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/patric-chuzhbe/wikisubs/internal/logger"
)

// ServiceName is the name, besides the empty overall one, that Check answers for.
const ServiceName = "wikisubs"

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler implements grpc.health.v1.Health on top of the store ping.
type HealthHandler struct {
	healthpb.UnimplementedHealthServer
	db pinger
}

func NewHealthHandler(db pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if req.GetService() != "" && req.GetService() != ServiceName {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", req.GetService())
	}

	if err := h.db.Ping(ctx); err != nil {
		logger.Log.Warnw("Storage ping failed", "error", err)
		return &healthpb.HealthCheckResponse{
			Status: healthpb.HealthCheckResponse_NOT_SERVING,
		}, nil
	}

	return &healthpb.HealthCheckResponse{
		Status: healthpb.HealthCheckResponse_SERVING,
	}, nil
}
