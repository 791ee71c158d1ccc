package grpc

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"viaje-seguro-partner/internal/api/grpc/interceptor"
)

// ServiceName is the name health checks use to ask about the console itself.
const ServiceName = "viaje_seguro.partner.Console"

// HealthServer exposes the standard gRPC health service for orchestrators.
type HealthServer struct {
	server *grpc.Server
	health *health.Server
}

func NewHealthServer() *HealthServer {
	s := grpc.NewServer(grpc.UnaryInterceptor(interceptor.Unary()))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)

	// Register reflection service for grpcurl
	reflection.Register(s)

	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthServer{server: s, health: hs}
}

// SetServing flips both the overall and the console status.
func (h *HealthServer) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", st)
	h.health.SetServingStatus(ServiceName, st)
}

func (h *HealthServer) Serve(lis net.Listener) error {
	return h.server.Serve(lis)
}

// Stop marks everything as not serving and drains open calls.
func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.server.GracefulStop()
}
