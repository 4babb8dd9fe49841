// exchangectl 交易所 gRPC 命令行客户端
//
//	exchangectl -user alice matching CreateLimitOrder '{"instrument":"ACME","side":"buy","amount":10,"price":100}'
//	exchangectl -user bob escrow ReleaseEscrow '{"escrow_id":1}'
//	exchangectl -user alice portfolio GetPortfolio
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	escrowgrpc "github.com/wyfcoding/tokenexchange/internal/escrow/interfaces/grpc"
	matchinggrpc "github.com/wyfcoding/tokenexchange/internal/matchingengine/interfaces/grpc"
	portfoliogrpc "github.com/wyfcoding/tokenexchange/internal/portfolio/interfaces/grpc"
	"github.com/wyfcoding/tokenexchange/pkg/contextx"
	"github.com/wyfcoding/tokenexchange/pkg/grpcclient"
	"google.golang.org/grpc/status"
)

var services = map[string]string{
	"matching":  matchinggrpc.ServiceName,
	"escrow":    escrowgrpc.ServiceName,
	"portfolio": portfoliogrpc.ServiceName,
}

func main() {
	addr := flag.String("addr", "127.0.0.1:50051", "gRPC server address")
	user := flag.String("user", "", "caller identity sent as x-user-id")
	timeout := flag.Int("timeout", 5, "request timeout in seconds")
	retries := flag.Int("retries", 2, "retries on unavailable")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <matching|escrow|portfolio> <Method> [json]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 2 {
		flag.Usage()
		os.Exit(2)
	}
	service, ok := services[flag.Arg(0)]
	if !ok {
		service = flag.Arg(0)
	}

	req := map[string]any{}
	if flag.NArg() > 2 {
		if err := json.Unmarshal([]byte(flag.Arg(2)), &req); err != nil {
			fmt.Fprintf(os.Stderr, "invalid request json: %v\n", err)
			os.Exit(2)
		}
	}

	if err := call(*addr, *user, *timeout, *retries, service, flag.Arg(1), req); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func call(addr, user string, timeout, retries int, service, method string, req map[string]any) error {
	conn, err := grpcclient.NewClient(grpcclient.ClientConfig{
		Target:         addr,
		RequestTimeout: timeout,
		MaxRetries:     retries,
		RetryDelay:     200,
	})
	if err != nil {
		return fmt.Errorf("connect %s: %w", addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout+1)*time.Second)
	defer cancel()
	if user != "" {
		ctx = contextx.WithUserID(ctx, user)
	}

	resp, err := grpcclient.Call(ctx, conn, service, method, req)
	if err != nil {
		st := status.Convert(err)
		return fmt.Errorf("%s: %s", st.Code(), st.Message())
	}
	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
