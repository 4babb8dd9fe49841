package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	custody "github.com/wyfcoding/tokenexchange/internal/custody/domain"
	"github.com/wyfcoding/tokenexchange/internal/matchingengine/domain"
	platform "github.com/wyfcoding/tokenexchange/internal/platform/domain"
	"github.com/wyfcoding/tokenexchange/pkg/db"
	"github.com/wyfcoding/tokenexchange/pkg/logger"
	"github.com/wyfcoding/tokenexchange/pkg/metrics"
	"github.com/wyfcoding/tokenexchange/pkg/sequence"
)

// Deps 撮合服务依赖
type Deps struct {
	Orders    domain.OrderRepository
	Books     domain.OrderBookRepository
	Trades    domain.TradeRepository
	Ledger    custody.Ledger
	Sequences sequence.Generator
	Settings  platform.Settings
	Publisher domain.EventPublisher
	Tx        db.Transactor
	// 可选
	DepthCache domain.DepthCache
	Metrics    *metrics.Metrics
}

// MatchingCommandService 处理下单、撮合、撤单
type MatchingCommandService struct {
	Deps
	now func() time.Time
}

// NewMatchingCommandService 创建 MatchingCommandService
func NewMatchingCommandService(deps Deps) *MatchingCommandService {
	return &MatchingCommandService{Deps: deps, now: time.Now}
}

// OpenOrderBook 开设订单簿，已存在时直接返回现有订单簿
func (s *MatchingCommandService) OpenOrderBook(ctx context.Context, instrument string) (*OrderBookDTO, error) {
	var book *domain.OrderBook
	err := s.Tx.WithTx(ctx, func(ctx context.Context) error {
		now := s.now()
		nb, err := domain.NewOrderBook(instrument, now)
		if err != nil {
			return err
		}
		created, err := s.Books.Create(ctx, nb)
		if err != nil {
			return err
		}
		if !created {
			book, err = s.Books.Get(ctx, instrument)
			return err
		}
		book = nb
		return s.Publisher.PublishOrderBookOpened(ctx, domain.OrderBookOpenedEvent{Instrument: instrument, OccurredOn: now})
	})
	if err != nil {
		return nil, err
	}
	return toOrderBookDTO(book), nil
}

// CreateLimitOrder 创建限价单：承诺资产先锁入订单托管，再以 Active 状态落库
func (s *MatchingCommandService) CreateLimitOrder(ctx context.Context, cmd CreateLimitOrderCommand) (*CreateOrderResult, error) {
	side, err := domain.ParseSide(cmd.Side)
	if err != nil {
		return nil, err
	}
	return s.createOrder(ctx, cmd.Owner, cmd.Instrument, side, domain.KindLimit, cmd.Amount, cmd.Price)
}

// CreateMarketOrder 创建市价单，价格取对手方最优价快照
func (s *MatchingCommandService) CreateMarketOrder(ctx context.Context, cmd CreateMarketOrderCommand) (*CreateOrderResult, error) {
	side, err := domain.ParseSide(cmd.Side)
	if err != nil {
		return nil, err
	}
	return s.createOrder(ctx, cmd.Owner, cmd.Instrument, side, domain.KindMarket, cmd.Amount, 0)
}

// CreateSellOrder 基础路径卖单，仅限价
func (s *MatchingCommandService) CreateSellOrder(ctx context.Context, owner, instrument string, amount, price uint64) (*CreateOrderResult, error) {
	return s.createOrder(ctx, owner, instrument, domain.SideSell, domain.KindLimit, amount, price)
}

// CreateBuyOrder 基础路径买单，仅限价
func (s *MatchingCommandService) CreateBuyOrder(ctx context.Context, owner, instrument string, amount, price uint64) (*CreateOrderResult, error) {
	return s.createOrder(ctx, owner, instrument, domain.SideBuy, domain.KindLimit, amount, price)
}

func (s *MatchingCommandService) createOrder(ctx context.Context, owner, instrument string, side domain.Side, kind domain.Kind, amount, price uint64) (*CreateOrderResult, error) {
	if amount == 0 || (kind == domain.KindLimit && price == 0) {
		return nil, domain.ErrInvalidOrderParams
	}
	if err := custody.ValidateUserAccount(owner); err != nil {
		return nil, domain.ErrInvalidOrderParams
	}
	if err := platform.EnsureActive(ctx, s.Settings, instrument); err != nil {
		return nil, err
	}

	var order *domain.Order
	err := s.Tx.WithTx(ctx, func(ctx context.Context) error {
		now := s.now()
		book, err := s.Books.GetForUpdate(ctx, instrument)
		if err != nil {
			return err
		}
		if kind == domain.KindMarket {
			if price, err = book.MarketPrice(side); err != nil {
				return err
			}
		}
		id, err := book.NextOrderID()
		if err != nil {
			return err
		}
		order, err = domain.NewOrder(id, instrument, owner, side, kind, amount, price, now)
		if err != nil {
			return err
		}

		if err := s.commit(ctx, order); err != nil {
			return err
		}
		if err := book.RecordOrder(order, now); err != nil {
			return err
		}
		if err := s.Orders.Save(ctx, order); err != nil {
			return err
		}
		if err := s.Books.Save(ctx, book); err != nil {
			return err
		}
		return s.Publisher.PublishOrderCreated(ctx, domain.OrderCreatedEvent{
			OrderID:    order.ID,
			Instrument: order.Instrument,
			Owner:      order.Owner,
			Side:       order.Side,
			Kind:       order.Kind,
			Amount:     order.Amount,
			Price:      order.Price,
			Status:     order.Status,
			OccurredOn: now,
		})
	})
	if err != nil {
		logger.Warn(ctx, "create order rejected", "instrument", instrument, "owner", owner, "side", side, "kind", kind, "error", err)
		return nil, err
	}

	s.invalidateDepth(ctx, instrument)
	s.Metrics.RecordOrderCreated(string(side), string(kind))
	logger.Info(ctx, "order created", "instrument", instrument, "order_id", order.ID, "owner", owner, "side", side, "kind", kind, "amount", amount, "price", order.Price)
	return &CreateOrderResult{OrderID: order.ID, Instrument: instrument, Price: order.Price, Status: string(order.Status)}, nil
}

// commit 校验并锁定下单承诺。限价单锁入订单托管；市价单只校验余额，成交时直接从账户划转
func (s *MatchingCommandService) commit(ctx context.Context, order *domain.Order) error {
	asset, shortfall := order.Instrument, domain.ErrInsufficientTokens
	if order.Side == domain.SideBuy {
		asset, shortfall = s.Settings.SettlementAsset(ctx), domain.ErrInsufficientFunds
	}
	need, err := order.Commitment()
	if err != nil {
		return err
	}

	if !order.IsEscrowed() {
		bal, err := s.Ledger.BalanceOf(ctx, asset, order.Owner)
		if err != nil {
			return err
		}
		if bal < need {
			return shortfall
		}
		return nil
	}

	vault := custody.OrderVault(s.Ledger, order.Instrument, order.ID)
	if err := vault.Lock(ctx, asset, order.Owner, need); err != nil {
		if errors.Is(err, custody.ErrInsufficientBalance) {
			return shortfall
		}
		return err
	}
	return nil
}

// MatchOrders 撮合调用方指定的一对订单
func (s *MatchingCommandService) MatchOrders(ctx context.Context, cmd MatchOrdersCommand) (*TradeDTO, error) {
	return s.match(ctx, cmd.Instrument, cmd.BuyOrderID, cmd.SellOrderID, cmd.Amount, domain.MatchStandard)
}

// ExecuteTrade 基础路径成交，双方必须都是限价单，定价与结算与 MatchOrders 相同
func (s *MatchingCommandService) ExecuteTrade(ctx context.Context, instrument string, sellOrderID, buyOrderID, amount uint64) (*TradeDTO, error) {
	return s.match(ctx, instrument, buyOrderID, sellOrderID, amount, domain.MatchBasic)
}

func (s *MatchingCommandService) match(ctx context.Context, instrument string, buyID, sellID, amount uint64, mode domain.MatchMode) (*TradeDTO, error) {
	if amount == 0 {
		return nil, domain.ErrInvalidTradeAmount
	}
	if err := platform.EnsureActive(ctx, s.Settings, instrument); err != nil {
		return nil, err
	}

	var trade *domain.Trade
	err := s.Tx.WithTx(ctx, func(ctx context.Context) error {
		now := s.now()
		book, err := s.Books.GetForUpdate(ctx, instrument)
		if err != nil {
			return err
		}
		buy, err := s.Orders.GetForUpdate(ctx, instrument, buyID)
		if err != nil {
			return err
		}
		sell, err := s.Orders.GetForUpdate(ctx, instrument, sellID)
		if err != nil {
			return err
		}

		exec, err := domain.PlanMatch(book, buy, sell, amount, s.Settings.FeeBps(ctx), mode)
		if err != nil {
			return err
		}
		if err := s.settle(ctx, buy, sell, exec); err != nil {
			return err
		}

		if err := buy.Fill(amount, now); err != nil {
			return err
		}
		if err := sell.Fill(amount, now); err != nil {
			return err
		}
		// 限价买单按限价锁定，成交价更低时剩余的差额在完全成交后退回
		if buy.IsEscrowed() && buy.Status == domain.StatusFilled {
			residue, err := custody.OrderVault(s.Ledger, instrument, buy.ID).Drain(ctx, s.Settings.SettlementAsset(ctx), buy.Owner)
			if err != nil {
				return err
			}
			if residue > 0 {
				logger.Debug(ctx, "price improvement refunded", "instrument", instrument, "order_id", buy.ID, "amount", residue)
			}
		}
		if err := book.ApplyTrade(amount, exec.Price, now); err != nil {
			return err
		}

		tradeID, err := s.Sequences.Next(ctx, sequence.Trade)
		if err != nil {
			return err
		}
		trade = domain.NewTrade(tradeID, buy, sell, exec, now)

		for _, save := range []func() error{
			func() error { return s.Orders.Save(ctx, buy) },
			func() error { return s.Orders.Save(ctx, sell) },
			func() error { return s.Books.Save(ctx, book) },
			func() error { return s.Trades.Save(ctx, trade) },
		} {
			if err := save(); err != nil {
				return err
			}
		}
		return s.Publisher.PublishTradeExecuted(ctx, domain.NewTradeExecutedEvent(trade))
	})
	if err != nil {
		logger.Warn(ctx, "match rejected", "instrument", instrument, "buy_order_id", buyID, "sell_order_id", sellID, "amount", amount, "error", err)
		return nil, err
	}

	s.invalidateDepth(ctx, instrument)
	s.Metrics.RecordTrade(trade.Amount, trade.PlatformFee)
	logger.Info(ctx, "trade executed", "instrument", instrument, "trade_id", trade.ID, "amount", trade.Amount, "price", trade.Price, "fee", trade.PlatformFee)
	return toTradeDTO(trade), nil
}

// settle 资金与标的交割：买方价款拆分为卖方所得与平台手续费，卖方标的交付买方
func (s *MatchingCommandService) settle(ctx context.Context, buy, sell *domain.Order, exec domain.Execution) error {
	settlement := s.Settings.SettlementAsset(ctx)
	feeAccount := s.Settings.FeeAccount(ctx)

	pay := func(asset, to string, amount uint64, o *domain.Order, shortfall error) error {
		var err error
		if o.IsEscrowed() {
			err = custody.OrderVault(s.Ledger, o.Instrument, o.ID).Release(ctx, asset, to, amount)
		} else {
			err = s.Ledger.Transfer(ctx, asset, o.Owner, to, amount)
		}
		if errors.Is(err, custody.ErrInsufficientBalance) {
			return shortfall
		}
		return err
	}

	if err := pay(settlement, sell.Owner, exec.SellerProceeds, buy, domain.ErrInsufficientFunds); err != nil {
		return fmt.Errorf("pay seller proceeds: %w", err)
	}
	if err := pay(settlement, feeAccount, exec.PlatformFee, buy, domain.ErrInsufficientFunds); err != nil {
		return fmt.Errorf("pay platform fee: %w", err)
	}
	if err := pay(sell.Instrument, buy.Owner, exec.Amount, sell, domain.ErrInsufficientTokens); err != nil {
		return fmt.Errorf("deliver tokens: %w", err)
	}
	return nil
}

// CancelOrder 撤单，退回托管中的剩余资产。返回退回数量
func (s *MatchingCommandService) CancelOrder(ctx context.Context, cmd CancelOrderCommand) (*CancelOrderResult, error) {
	var refunded uint64
	var order *domain.Order
	err := s.Tx.WithTx(ctx, func(ctx context.Context) error {
		now := s.now()
		var err error
		order, err = s.Orders.GetForUpdate(ctx, cmd.Instrument, cmd.OrderID)
		if err != nil {
			return err
		}
		if err := order.Cancel(cmd.Caller, now); err != nil {
			return err
		}

		if order.IsEscrowed() {
			asset := order.Instrument
			if order.Side == domain.SideBuy {
				asset = s.Settings.SettlementAsset(ctx)
			}
			refunded, err = custody.OrderVault(s.Ledger, order.Instrument, order.ID).Drain(ctx, asset, order.Owner)
			if err != nil {
				return err
			}
		}

		if err := s.Orders.Save(ctx, order); err != nil {
			return err
		}
		return s.Publisher.PublishOrderCancelled(ctx, domain.OrderCancelledEvent{
			OrderID:         order.ID,
			Instrument:      order.Instrument,
			Owner:           order.Owner,
			RemainingAmount: order.RemainingAmount,
			Refunded:        refunded,
			OccurredOn:      now,
		})
	})
	if err != nil {
		logger.Warn(ctx, "cancel rejected", "instrument", cmd.Instrument, "order_id", cmd.OrderID, "caller", cmd.Caller, "error", err)
		return nil, err
	}

	s.invalidateDepth(ctx, cmd.Instrument)
	s.Metrics.RecordOrderCancelled()
	logger.Info(ctx, "order cancelled", "instrument", cmd.Instrument, "order_id", cmd.OrderID, "refunded", refunded)
	return &CancelOrderResult{OrderID: order.ID, Instrument: order.Instrument, Refunded: refunded}, nil
}

func (s *MatchingCommandService) invalidateDepth(ctx context.Context, instrument string) {
	if s.DepthCache == nil {
		return
	}
	if err := s.DepthCache.Invalidate(ctx, instrument); err != nil {
		logger.Warn(ctx, "invalidate depth cache failed", "instrument", instrument, "error", err)
	}
}
