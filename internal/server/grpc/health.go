package grpcserver

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// CheckHealth asks a catalog server for its serving status over conn.
func CheckHealth(ctx context.Context, conn grpc.ClientConnInterface) error {
	res, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return err
	}
	if res.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("grpc: %s is %s", ServiceName, res.GetStatus())
	}
	return nil
}
