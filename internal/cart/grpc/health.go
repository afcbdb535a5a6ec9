package grpc

import (
	"context"
	"log/slog"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the health service name reported for the cart store.
const ServiceName = "rocketshoes.cart"

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthServer answers grpc.health.v1 checks by pinging the cart slot.
type HealthServer struct {
	healthpb.UnimplementedHealthServer
	slot Pinger
	log  *slog.Logger
}

func NewHealthServer(slot Pinger, log *slog.Logger) *HealthServer {
	if log == nil {
		log = slog.Default()
	}
	return &HealthServer{slot: slot, log: log}
}

func (h *HealthServer) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	switch req.GetService() {
	case "", ServiceName:
	default:
		return nil, status.Errorf(codes.NotFound, "unknown service %q", req.GetService())
	}

	if err := h.slot.Ping(ctx); err != nil {
		h.log.WarnContext(ctx, "health check: slot ping failed", slog.Any("err", err))
		return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
	}
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}
