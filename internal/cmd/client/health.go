package client

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	grpcserver "github.com/rzbill/catalog/internal/server/grpc"
)

// NewHealthCommand constructs the `health` command, which queries the gRPC
// health service at CATALOG_GRPC.
func NewHealthCommand() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the catalog server's gRPC health status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			conn, err := dialGRPCContext(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := grpcserver.CheckHealth(ctx, conn); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "SERVING")
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Request timeout")
	return cmd
}
