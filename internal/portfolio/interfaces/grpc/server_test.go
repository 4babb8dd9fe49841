package grpc

import (
	"context"
	"net"
	"testing"

	"github.com/wyfcoding/tokenexchange/internal/portfolio/application"
	"github.com/wyfcoding/tokenexchange/internal/portfolio/infrastructure/messaging"
	"github.com/wyfcoding/tokenexchange/internal/portfolio/infrastructure/persistence/memory"
	"github.com/wyfcoding/tokenexchange/pkg/contextx"
	"github.com/wyfcoding/tokenexchange/pkg/grpcclient"
	"github.com/wyfcoding/tokenexchange/pkg/memtx"
	"github.com/wyfcoding/tokenexchange/pkg/middleware"
	"github.com/wyfcoding/tokenexchange/pkg/outbox"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func TestPortfolioServiceOverGRPC(t *testing.T) {
	ctx := context.Background()
	svc := application.NewPortfolioService(application.Deps{
		Holdings:   memory.NewHoldingRepository(),
		Portfolios: memory.NewPortfolioRepository(),
		Applied:    memory.NewAppliedTradeRepository(),
		Publisher:  messaging.NewOutboxEventPublisher(outbox.NewMemoryStore()),
		Tx:         memtx.New(),
	})

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(middleware.GRPCRecoveryInterceptor(), middleware.GRPCLoggingInterceptor(nil)))
	NewHandler(svc).Register(srv)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpcclient.NewClient(grpcclient.ClientConfig{
		Target: "passthrough:///bufnet",
		DialOptions: []grpc.DialOption{
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	alice := contextx.WithUserID(ctx, "alice")

	if _, err := grpcclient.Call(ctx, conn, ServiceName, "GetPortfolio", nil); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("anonymous: %v", err)
	}
	holding, err := grpcclient.Call(alice, conn, ServiceName, "AcquireHolding", map[string]any{"instrument": "ACME", "amount": 10, "price": 100})
	if err != nil {
		t.Fatal(err)
	}
	if holding["amount"] != float64(10) || holding["average_price"] != float64(100) {
		t.Fatalf("holding = %v", holding)
	}

	if _, err := grpcclient.Call(alice, conn, ServiceName, "DisposeHolding", map[string]any{"instrument": "ACME", "amount": 11, "price": 100}); status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("over dispose: %v", err)
	}

	marked, err := grpcclient.Call(ctx, conn, ServiceName, "MarkToMarket", map[string]any{"instrument": "ACME", "price": 150})
	if err != nil {
		t.Fatal(err)
	}
	if marked["holdings"] != float64(1) {
		t.Fatalf("marked = %v", marked)
	}

	portfolio, err := grpcclient.Call(alice, conn, ServiceName, "GetPortfolio", nil)
	if err != nil {
		t.Fatal(err)
	}
	if portfolio["total_value"] != float64(1500) || portfolio["total_profit_loss"] != float64(500) || portfolio["return_rate"] != "0.5" {
		t.Fatalf("portfolio = %v", portfolio)
	}

	list, err := grpcclient.Call(alice, conn, ServiceName, "ListHoldings", nil)
	if err != nil {
		t.Fatal(err)
	}
	if hs, _ := list["holdings"].([]any); len(hs) != 1 {
		t.Fatalf("holdings = %v", list)
	}
}
