package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	custodyapp "github.com/wyfcoding/tokenexchange/internal/custody/application"
	custodyhttp "github.com/wyfcoding/tokenexchange/internal/custody/interfaces/http"
	escrowapp "github.com/wyfcoding/tokenexchange/internal/escrow/application"
	escrowmsg "github.com/wyfcoding/tokenexchange/internal/escrow/infrastructure/messaging"
	escrowgrpc "github.com/wyfcoding/tokenexchange/internal/escrow/interfaces/grpc"
	escrowhttp "github.com/wyfcoding/tokenexchange/internal/escrow/interfaces/http"
	matchingapp "github.com/wyfcoding/tokenexchange/internal/matchingengine/application"
	matching "github.com/wyfcoding/tokenexchange/internal/matchingengine/domain"
	matchingmsg "github.com/wyfcoding/tokenexchange/internal/matchingengine/infrastructure/messaging"
	matchingredis "github.com/wyfcoding/tokenexchange/internal/matchingengine/infrastructure/persistence/redis"
	matchinggrpc "github.com/wyfcoding/tokenexchange/internal/matchingengine/interfaces/grpc"
	matchinghttp "github.com/wyfcoding/tokenexchange/internal/matchingengine/interfaces/http"
	"github.com/wyfcoding/tokenexchange/internal/platform/infrastructure"
	portfolioapp "github.com/wyfcoding/tokenexchange/internal/portfolio/application"
	portfoliomsg "github.com/wyfcoding/tokenexchange/internal/portfolio/infrastructure/messaging"
	"github.com/wyfcoding/tokenexchange/internal/portfolio/interfaces/consumer"
	portfoliogrpc "github.com/wyfcoding/tokenexchange/internal/portfolio/interfaces/grpc"
	portfoliohttp "github.com/wyfcoding/tokenexchange/internal/portfolio/interfaces/http"
	"github.com/wyfcoding/tokenexchange/pkg/cache"
	"github.com/wyfcoding/tokenexchange/pkg/config"
	"github.com/wyfcoding/tokenexchange/pkg/logger"
	"github.com/wyfcoding/tokenexchange/pkg/metrics"
	"github.com/wyfcoding/tokenexchange/pkg/middleware"
	"github.com/wyfcoding/tokenexchange/pkg/mq"
	"github.com/wyfcoding/tokenexchange/pkg/outbox"
	"github.com/wyfcoding/tokenexchange/pkg/ratelimit"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

var configPath = flag.String("config", "configs/exchange.toml", "config file path")

func main() {
	flag.Parse()

	// .env 仅在本地开发时存在
	_ = godotenv.Load()

	// 1. 配置
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. 日志
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		logger.Error(context.Background(), "exchange exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 指标
	m := metrics.New(cfg.ServiceName)
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := m.Register(registry); err != nil {
		return err
	}

	// 4. 存储
	store, err := openStorage(cfg.Database)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error(context.Background(), "failed to close storage", "error", err)
		}
	}()

	settings, err := infrastructure.NewStaticSettings(cfg.Exchange)
	if err != nil {
		return fmt.Errorf("exchange settings: %w", err)
	}

	// 5. Redis：深度缓存与分布式限流，未启用时退化为进程内限流
	var (
		depthCache matching.DepthCache
		limiter    ratelimit.RateLimiter = ratelimit.NewLocalRateLimiter()
	)
	if cfg.Redis.Enabled {
		rc, err := cache.New(cache.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			MaxPoolSize:  cfg.Redis.MaxPoolSize,
			ConnTimeout:  cfg.Redis.ConnTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			return err
		}
		defer rc.Close()
		depthCache = matchingredis.NewDepthCache(rc, time.Duration(cfg.Redis.SnapshotTTL)*time.Millisecond)
		limiter = ratelimit.NewRedisRateLimiter(rc.GetClient())
	}

	// 6. 应用服务
	custodySvc := custodyapp.NewCustodyService(store.Ledger, store.Tx)
	matchingSvc := matchingapp.NewMatchingService(matchingapp.Deps{
		Orders:     store.Orders,
		Books:      store.Books,
		Trades:     store.Trades,
		Ledger:     store.Ledger,
		Sequences:  store.Sequences,
		Settings:   settings,
		Publisher:  matchingmsg.NewOutboxEventPublisher(store.Outbox),
		Tx:         store.Tx,
		DepthCache: depthCache,
		Metrics:    m,
	})
	escrowSvc := escrowapp.NewEscrowService(escrowapp.Deps{
		Escrows:   store.Escrows,
		Ledger:    store.Ledger,
		Sequences: store.Sequences,
		Settings:  settings,
		Publisher: escrowmsg.NewOutboxEventPublisher(store.Outbox),
		Tx:        store.Tx,
		Metrics:   m,
	})
	portfolioSvc := portfolioapp.NewPortfolioService(portfolioapp.Deps{
		Holdings:   store.Holdings,
		Portfolios: store.Portfolios,
		Applied:    store.Applied,
		Publisher:  portfoliomsg.NewOutboxEventPublisher(store.Outbox),
		Tx:         store.Tx,
		Metrics:    m,
	})
	tradeConsumer := consumer.NewTradeConsumer(portfolioSvc, m)

	for _, ins := range cfg.Exchange.Instruments {
		if _, err := matchingSvc.OpenOrderBook(ctx, ins); err != nil {
			return fmt.Errorf("open order book %s: %w", ins, err)
		}
	}

	// 7. 消息：启用 Kafka 时经 Kafka 投递并由消费组投影成交，否则进程内直接投影
	g, ctx := errgroup.WithContext(ctx)

	kcfg := mq.KafkaConfig{
		Brokers:        cfg.Kafka.Brokers,
		GroupID:        cfg.Kafka.GroupID,
		SessionTimeout: cfg.Kafka.SessionTimeout,
		MaxRetries:     cfg.Kafka.MaxRetries,
		RetryBackoff:   cfg.Kafka.RetryBackoff,
	}
	var sink outbox.Sink
	if cfg.Kafka.Enabled {
		producer := mq.NewProducer(kcfg)
		defer producer.Close()
		sink = outbox.NewKafkaSink(producer)

		trades := mq.NewConsumer(kcfg, []string{consumer.TopicTradeExecuted}, mq.NewDeadLetterQueue(producer, cfg.Kafka.DeadLetterTopic))
		defer trades.Close()
		g.Go(func() error { return trades.Run(ctx, tradeConsumer.Handle) })
	} else {
		dispatcher := outbox.NewDispatcher()
		dispatcher.Subscribe(consumer.TopicTradeExecuted, tradeConsumer.Handle)
		sink = dispatcher
	}
	relay := outbox.NewRelay(store.Outbox, sink, time.Duration(cfg.Outbox.PollInterval)*time.Millisecond, cfg.Outbox.BatchSize, m)
	g.Go(func() error { return relay.Run(ctx) })

	// 8. gRPC
	grpcSrv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(middleware.GRPCRecoveryInterceptor(), middleware.GRPCLoggingInterceptor(m)),
		grpc.MaxConcurrentStreams(uint32(cfg.GRPC.MaxConcurrentStreams)),
	)
	matchinggrpc.NewHandler(matchingSvc).Register(grpcSrv)
	escrowgrpc.NewHandler(escrowSvc).Register(grpcSrv)
	portfoliogrpc.NewHandler(portfolioSvc).Register(grpcSrv)

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	for _, name := range []string{matchinggrpc.ServiceName, escrowgrpc.ServiceName, portfoliogrpc.ServiceName} {
		healthSrv.SetServingStatus(name, healthpb.HealthCheckResponse_SERVING)
	}
	if cfg.GRPC.Reflection {
		reflection.Register(grpcSrv)
	}

	// 9. HTTP
	gin.SetMode(gin.ReleaseMode)
	if cfg.Environment == "dev" {
		gin.SetMode(gin.DebugMode)
	}
	r := gin.New()
	r.Use(
		middleware.GinRecoveryMiddleware(),
		middleware.GinLoggingMiddleware(m),
		middleware.GinCORSMiddleware(),
		middleware.GinIdentityMiddleware(),
		middleware.GinRateLimitMiddleware(limiter, cfg.RateLimit),
	)
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	custodyhttp.NewCustodyHandler(custodySvc, cfg.Exchange.AllowDeposits).RegisterRoutes(&r.RouterGroup)
	matchinghttp.NewMatchingHandler(matchingSvc).RegisterRoutes(&r.RouterGroup)
	escrowhttp.NewEscrowHandler(escrowSvc).RegisterRoutes(&r.RouterGroup)
	portfoliohttp.NewPortfolioHandler(portfolioSvc).RegisterRoutes(&r.RouterGroup)

	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}
	servers := []*http.Server{httpSrv}
	if cfg.Metrics.Enabled {
		servers = append(servers, metrics.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry))
	}

	// 10. 启动
	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr())
		if err != nil {
			return err
		}
		logger.Info(ctx, "gRPC server starting", "addr", cfg.GRPC.Addr())
		return grpcSrv.Serve(lis)
	})
	for _, srv := range servers {
		g.Go(func() error {
			logger.Info(ctx, "HTTP server starting", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	// 11. 优雅关闭
	g.Go(func() error {
		<-ctx.Done()
		logger.Info(context.Background(), "shutting down servers...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		healthSrv.Shutdown()
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error(shutdownCtx, "HTTP server shutdown failed", "addr", srv.Addr, "error", err)
			}
		}
		grpcSrv.GracefulStop()
		return nil
	})

	logger.Info(ctx, "exchange started",
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
		"database", cfg.Database.Driver,
		"kafka", cfg.Kafka.Enabled,
		"redis", cfg.Redis.Enabled,
	)
	return g.Wait()
}
