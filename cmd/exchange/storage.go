package main

import (
	"fmt"

	custody "github.com/wyfcoding/tokenexchange/internal/custody/domain"
	custodymem "github.com/wyfcoding/tokenexchange/internal/custody/infrastructure/persistence/memory"
	custodymysql "github.com/wyfcoding/tokenexchange/internal/custody/infrastructure/persistence/mysql"
	escrow "github.com/wyfcoding/tokenexchange/internal/escrow/domain"
	escrowmem "github.com/wyfcoding/tokenexchange/internal/escrow/infrastructure/persistence/memory"
	escrowmysql "github.com/wyfcoding/tokenexchange/internal/escrow/infrastructure/persistence/mysql"
	matching "github.com/wyfcoding/tokenexchange/internal/matchingengine/domain"
	matchingmem "github.com/wyfcoding/tokenexchange/internal/matchingengine/infrastructure/persistence/memory"
	matchingmysql "github.com/wyfcoding/tokenexchange/internal/matchingengine/infrastructure/persistence/mysql"
	portfolio "github.com/wyfcoding/tokenexchange/internal/portfolio/domain"
	portfoliomem "github.com/wyfcoding/tokenexchange/internal/portfolio/infrastructure/persistence/memory"
	portfoliomysql "github.com/wyfcoding/tokenexchange/internal/portfolio/infrastructure/persistence/mysql"
	"github.com/wyfcoding/tokenexchange/pkg/config"
	"github.com/wyfcoding/tokenexchange/pkg/db"
	"github.com/wyfcoding/tokenexchange/pkg/memtx"
	"github.com/wyfcoding/tokenexchange/pkg/outbox"
	"github.com/wyfcoding/tokenexchange/pkg/sequence"
)

// storage 一套共享同一事务边界的仓储
type storage struct {
	Tx        db.Transactor
	Outbox    outbox.Store
	Sequences sequence.Generator
	Ledger    custody.Ledger

	Orders     matching.OrderRepository
	Books      matching.OrderBookRepository
	Trades     matching.TradeRepository
	Escrows    escrow.EscrowRepository
	Holdings   portfolio.HoldingRepository
	Portfolios portfolio.PortfolioRepository
	Applied    portfolio.AppliedTradeRepository

	close func() error
}

func (s *storage) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// openStorage 按 database.driver 选择 MySQL 或进程内存储
func openStorage(cfg config.DatabaseConfig) (*storage, error) {
	switch cfg.Driver {
	case "mysql":
		return openMySQL(cfg)
	case "memory":
		return openMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

func openMySQL(cfg config.DatabaseConfig) (*storage, error) {
	database, err := db.Init(db.Config{
		Driver:             cfg.Driver,
		DSN:                cfg.DSN,
		MaxOpenConns:       cfg.MaxOpenConns,
		MaxIdleConns:       cfg.MaxIdleConns,
		ConnMaxLifetime:    cfg.ConnMaxLifetime,
		LogEnabled:         cfg.LogEnabled,
		SlowQueryThreshold: cfg.SlowQueryThreshold,
	})
	if err != nil {
		return nil, err
	}
	gdb := database.DB

	ledger := custodymysql.NewLedger(gdb)
	sequences := sequence.NewGormGenerator(gdb)
	store := outbox.NewGormStore(gdb)

	if cfg.AutoMigrate {
		migrations := []struct {
			name string
			run  func() error
		}{
			{"custody", ledger.AutoMigrate},
			{"sequence", sequences.AutoMigrate},
			{"outbox", store.AutoMigrate},
			{"matchingengine", func() error { return matchingmysql.AutoMigrate(gdb) }},
			{"escrow", func() error { return escrowmysql.AutoMigrate(gdb) }},
			{"portfolio", func() error { return portfoliomysql.AutoMigrate(gdb) }},
		}
		for _, m := range migrations {
			if err := m.run(); err != nil {
				_ = database.Close()
				return nil, fmt.Errorf("migrate %s: %w", m.name, err)
			}
		}
	}

	return &storage{
		Tx:         database,
		Outbox:     store,
		Sequences:  sequences,
		Ledger:     ledger,
		Orders:     matchingmysql.NewOrderRepository(gdb),
		Books:      matchingmysql.NewOrderBookRepository(gdb),
		Trades:     matchingmysql.NewTradeRepository(gdb),
		Escrows:    escrowmysql.NewEscrowRepository(gdb),
		Holdings:   portfoliomysql.NewHoldingRepository(gdb),
		Portfolios: portfoliomysql.NewPortfolioRepository(gdb),
		Applied:    portfoliomysql.NewAppliedTradeRepository(gdb),
		close:      database.Close,
	}, nil
}

// openMemory 进程内存储，所有仓储共用一个 memtx 日志，重启即丢失
func openMemory() *storage {
	return &storage{
		Tx:         memtx.New(),
		Outbox:     outbox.NewMemoryStore(),
		Sequences:  sequence.NewMemoryGenerator(),
		Ledger:     custodymem.NewLedger(),
		Orders:     matchingmem.NewOrderRepository(),
		Books:      matchingmem.NewOrderBookRepository(),
		Trades:     matchingmem.NewTradeRepository(),
		Escrows:    escrowmem.NewEscrowRepository(),
		Holdings:   portfoliomem.NewHoldingRepository(),
		Portfolios: portfoliomem.NewPortfolioRepository(),
		Applied:    portfoliomem.NewAppliedTradeRepository(),
	}
}
