// Package application 持仓账本用例：买入、卖出、重估、组合汇总与成交投影
package application

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/wyfcoding/tokenexchange/internal/portfolio/domain"
	"github.com/wyfcoding/tokenexchange/pkg/db"
	"github.com/wyfcoding/tokenexchange/pkg/logger"
	"github.com/wyfcoding/tokenexchange/pkg/metrics"
)

// Deps 持仓服务依赖
type Deps struct {
	Holdings   domain.HoldingRepository
	Portfolios domain.PortfolioRepository
	Applied    domain.AppliedTradeRepository
	Publisher  domain.EventPublisher
	Tx         db.Transactor
	Metrics    *metrics.Metrics
}

// PortfolioService 持仓与组合
type PortfolioService struct {
	Deps
	now func() time.Time
}

// NewPortfolioService 创建 PortfolioService
func NewPortfolioService(deps Deps) *PortfolioService {
	return &PortfolioService{Deps: deps, now: time.Now}
}

// AcquireHolding 买入，首次买入时创建持仓与组合
func (s *PortfolioService) AcquireHolding(ctx context.Context, cmd PositionCommand) (*HoldingDTO, error) {
	if err := domain.ValidateTrade(cmd.Amount, cmd.Price); err != nil {
		return nil, err
	}
	var h *domain.Holding
	err := s.Tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if h, err = s.acquire(ctx, cmd.User, cmd.Instrument, cmd.Amount, cmd.Price); err != nil {
			return err
		}
		return s.rollUp(ctx, cmd.User)
	})
	if err != nil {
		logger.Warn(ctx, "acquire holding rejected", "user", cmd.User, "instrument", cmd.Instrument, "amount", cmd.Amount, "price", cmd.Price, "error", err)
		return nil, err
	}
	s.Metrics.RecordHoldingUpdate("acquire")
	return toHoldingDTO(h), nil
}

// DisposeHolding 卖出，持仓不存在或数量不足时失败
func (s *PortfolioService) DisposeHolding(ctx context.Context, cmd PositionCommand) (*HoldingDTO, error) {
	if err := domain.ValidateTrade(cmd.Amount, cmd.Price); err != nil {
		return nil, err
	}
	var h *domain.Holding
	err := s.Tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if h, err = s.dispose(ctx, cmd.User, cmd.Instrument, cmd.Amount, cmd.Price); err != nil {
			return err
		}
		return s.rollUp(ctx, cmd.User)
	})
	if err != nil {
		logger.Warn(ctx, "dispose holding rejected", "user", cmd.User, "instrument", cmd.Instrument, "amount", cmd.Amount, "price", cmd.Price, "error", err)
		return nil, err
	}
	s.Metrics.RecordHoldingUpdate("dispose")
	return toHoldingDTO(h), nil
}

// MarkToMarket 按最新价重估该标的全部持仓并刷新相关组合，返回重估的持仓数
func (s *PortfolioService) MarkToMarket(ctx context.Context, instrument string, price uint64) (int, error) {
	if price == 0 || instrument == "" {
		return 0, domain.ErrInvalidPosition
	}
	var users []string
	err := s.Tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if users, err = s.mark(ctx, instrument, price); err != nil {
			return err
		}
		for _, u := range users {
			if err := s.rollUp(ctx, u); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Warn(ctx, "mark to market failed", "instrument", instrument, "price", price, "error", err)
		return 0, err
	}
	s.Metrics.RecordHoldingUpdate("mark")
	logger.Debug(ctx, "marked to market", "instrument", instrument, "price", price, "holdings", len(users))
	return len(users), nil
}

// RefreshPortfolio 以用户全部持仓重新汇总组合
func (s *PortfolioService) RefreshPortfolio(ctx context.Context, user string) (*PortfolioDTO, error) {
	if user == "" {
		return nil, domain.ErrInvalidPosition
	}
	if err := s.Tx.WithTx(ctx, func(ctx context.Context) error { return s.rollUp(ctx, user) }); err != nil {
		return nil, err
	}
	return s.GetPortfolio(ctx, user)
}

// ApplyTrade 将一笔成交投影到双方持仓：买方按成交价买入，卖方按成交价卖出，
// 再按成交价重估该标的。同一成交重复投递时返回 false 且不做任何修改
func (s *PortfolioService) ApplyTrade(ctx context.Context, fill TradeFill) (bool, error) {
	if err := domain.ValidateTrade(fill.Amount, fill.Price); err != nil {
		return false, err
	}
	key := fill.Instrument + ":" + strconv.FormatUint(fill.TradeID, 10)

	applied := false
	err := s.Tx.WithTx(ctx, func(ctx context.Context) error {
		first, err := s.Applied.MarkApplied(ctx, key)
		if err != nil || !first {
			return err
		}
		applied = true

		if _, err := s.acquire(ctx, fill.Buyer, fill.Instrument, fill.Amount, fill.Price); err != nil {
			return err
		}
		if _, err := s.dispose(ctx, fill.Seller, fill.Instrument, fill.Amount, fill.Price); err != nil {
			// 卖方代币可能来自账本之外（如发行），持仓无法覆盖时只记录不回滚买方
			if !errors.Is(err, domain.ErrHoldingNotFound) && !errors.Is(err, domain.ErrInsufficientTokens) {
				return err
			}
			logger.Warn(ctx, "seller holding not covered, disposal skipped", "trade", key, "seller", fill.Seller, "error", err)
		}

		users, err := s.mark(ctx, fill.Instrument, fill.Price)
		if err != nil {
			return err
		}
		for _, u := range users {
			if err := s.rollUp(ctx, u); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Error(ctx, "apply trade failed", "trade", key, "error", err)
		return false, err
	}
	if applied {
		s.Metrics.RecordHoldingUpdate("trade")
		logger.Info(ctx, "trade projected", "trade", key, "buyer", fill.Buyer, "seller", fill.Seller, "amount", fill.Amount, "price", fill.Price)
	} else {
		logger.Debug(ctx, "trade already projected", "trade", key)
	}
	return applied, nil
}

func (s *PortfolioService) acquire(ctx context.Context, user, instrument string, amount, price uint64) (*domain.Holding, error) {
	now := s.now()
	h, err := s.Holdings.GetForUpdate(ctx, user, instrument)
	if errors.Is(err, domain.ErrHoldingNotFound) {
		h, err = domain.NewHolding(user, instrument, now)
	}
	if err != nil {
		return nil, err
	}
	if err := h.Acquire(amount, price, now); err != nil {
		return nil, err
	}
	return h, s.saveHolding(ctx, h, "acquire")
}

func (s *PortfolioService) dispose(ctx context.Context, user, instrument string, amount, price uint64) (*domain.Holding, error) {
	h, err := s.Holdings.GetForUpdate(ctx, user, instrument)
	if err != nil {
		return nil, err
	}
	if err := h.Dispose(amount, price, s.now()); err != nil {
		return nil, err
	}
	return h, s.saveHolding(ctx, h, "dispose")
}

// mark 重估并返回持有该标的的用户（已排序）
func (s *PortfolioService) mark(ctx context.Context, instrument string, price uint64) ([]string, error) {
	holdings, err := s.Holdings.ListByInstrument(ctx, instrument)
	if err != nil {
		return nil, err
	}
	now := s.now()
	users := make([]string, 0, len(holdings))
	for _, h := range holdings {
		if err := h.MarkToMarket(price, now); err != nil {
			return nil, err
		}
		if err := s.saveHolding(ctx, h, "mark"); err != nil {
			return nil, err
		}
		users = append(users, h.User)
	}
	sort.Strings(users)
	return users, nil
}

func (s *PortfolioService) saveHolding(ctx context.Context, h *domain.Holding, op string) error {
	if err := s.Holdings.Save(ctx, h); err != nil {
		return err
	}
	return s.Publisher.PublishHoldingUpdated(ctx, domain.NewHoldingUpdatedEvent(h, op))
}

// rollUp 全量汇总用户组合，组合不存在时创建
func (s *PortfolioService) rollUp(ctx context.Context, user string) error {
	now := s.now()
	p, err := s.Portfolios.GetForUpdate(ctx, user)
	if errors.Is(err, domain.ErrPortfolioNotFound) {
		p = domain.NewPortfolio(user, now)
		err = s.Publisher.PublishPortfolioCreated(ctx, domain.PortfolioCreatedEvent{User: user, OccurredOn: now})
	}
	if err != nil {
		return err
	}

	holdings, err := s.Holdings.ListByUser(ctx, user)
	if err != nil {
		return err
	}
	if err := p.Recompute(holdings, now); err != nil {
		return err
	}
	if err := s.Portfolios.Save(ctx, p); err != nil {
		return err
	}
	return s.Publisher.PublishPortfolioUpdated(ctx, domain.NewPortfolioUpdatedEvent(p))
}

// GetHolding 获取持仓
func (s *PortfolioService) GetHolding(ctx context.Context, user, instrument string) (*HoldingDTO, error) {
	var dto *HoldingDTO
	err := db.View(ctx, s.Tx, func(ctx context.Context) error {
		h, err := s.Holdings.Get(ctx, user, instrument)
		if err != nil {
			return err
		}
		dto = toHoldingDTO(h)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// ListHoldings 用户全部持仓
func (s *PortfolioService) ListHoldings(ctx context.Context, user string) ([]*HoldingDTO, error) {
	var dtos []*HoldingDTO
	err := db.View(ctx, s.Tx, func(ctx context.Context) error {
		holdings, err := s.Holdings.ListByUser(ctx, user)
		if err != nil {
			return err
		}
		dtos = make([]*HoldingDTO, 0, len(holdings))
		for _, h := range holdings {
			dtos = append(dtos, toHoldingDTO(h))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dtos, nil
}

// GetPortfolio 获取组合汇总
func (s *PortfolioService) GetPortfolio(ctx context.Context, user string) (*PortfolioDTO, error) {
	var dto *PortfolioDTO
	err := db.View(ctx, s.Tx, func(ctx context.Context) error {
		p, err := s.Portfolios.Get(ctx, user)
		if err != nil {
			return err
		}
		dto = toPortfolioDTO(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}
