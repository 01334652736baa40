package grpcserver

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	cfgpkg "github.com/rzbill/catalog/internal/config"
	"github.com/rzbill/catalog/internal/runtime"
	pebblestore "github.com/rzbill/catalog/internal/storage/pebble"
)

const bufSize = 1 << 20

func dialer(s *grpc.Server) func(context.Context, string) (net.Conn, error) {
	lis := bufconn.Listen(bufSize)
	go func() { _ = s.Serve(lis) }()
	return func(ctx context.Context, s string) (net.Conn, error) { return lis.DialContext(ctx) }
}

func TestHealthOverGRPC(t *testing.T) {
	dir := t.TempDir()
	rt, err := runtime.Open(context.Background(), runtime.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways, Config: cfgpkg.Default()})
	if err != nil {
		t.Fatalf("rt open: %v", err)
	}
	defer rt.Close()
	srv := New(rt, nil)
	defer srv.grpc.Stop()
	d := dialer(srv.grpc)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := grpc.DialContext(ctx, "bufnet", grpc.WithContextDialer(d), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := CheckHealth(ctx, conn); err != nil {
		t.Fatalf("check: %v", err)
	}

	// A closed runtime reports not serving after the next probe.
	_ = rt.Close()
	srv.refresh(ctx)
	if err := CheckHealth(ctx, conn); err == nil {
		t.Fatalf("expected not serving after runtime close")
	}
}
