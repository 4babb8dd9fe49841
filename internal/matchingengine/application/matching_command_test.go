package application

import (
	"context"
	"errors"
	"testing"
	"time"

	custody "github.com/wyfcoding/tokenexchange/internal/custody/domain"
	custodymem "github.com/wyfcoding/tokenexchange/internal/custody/infrastructure/persistence/memory"
	"github.com/wyfcoding/tokenexchange/internal/matchingengine/domain"
	"github.com/wyfcoding/tokenexchange/internal/matchingengine/infrastructure/messaging"
	"github.com/wyfcoding/tokenexchange/internal/matchingengine/infrastructure/persistence/memory"
	"github.com/wyfcoding/tokenexchange/internal/platform/infrastructure"
	"github.com/wyfcoding/tokenexchange/pkg/config"
	"github.com/wyfcoding/tokenexchange/pkg/memtx"
	"github.com/wyfcoding/tokenexchange/pkg/outbox"
	"github.com/wyfcoding/tokenexchange/pkg/sequence"
	"pgregory.net/rapid"
)

// tb 同时满足 *testing.T 与 *rapid.T
type tb interface {
	Helper()
	Fatal(args ...any)
	Fatalf(format string, args ...any)
}

const (
	ins     = "ACME"
	usd     = "USD"
	feeAcct = "platform:fees"
)

type harness struct {
	svc    *MatchingService
	ledger *custodymem.Ledger
	outbox *outbox.MemoryStore
}

func newHarness(t tb, cfg config.ExchangeConfig) *harness {
	t.Helper()
	if cfg.SettlementAsset == "" {
		cfg.SettlementAsset = usd
	}
	if cfg.FeeAccount == "" {
		cfg.FeeAccount = feeAcct
	}
	settings, err := infrastructure.NewStaticSettings(cfg)
	if err != nil {
		t.Fatal(err)
	}

	h := &harness{ledger: custodymem.NewLedger(), outbox: outbox.NewMemoryStore()}
	h.svc = NewMatchingService(Deps{
		Orders:    memory.NewOrderRepository(),
		Books:     memory.NewOrderBookRepository(),
		Trades:    memory.NewTradeRepository(),
		Ledger:    h.ledger,
		Sequences: sequence.NewMemoryGenerator(),
		Settings:  settings,
		Publisher: messaging.NewOutboxEventPublisher(h.outbox),
		Tx:        memtx.New(),
	})
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h.svc.Command.now = func() time.Time { return fixed }

	if _, err := h.svc.OpenOrderBook(context.Background(), ins); err != nil {
		t.Fatal(err)
	}
	return h
}

func (h *harness) fund(t tb, asset, account string, amount uint64) {
	t.Helper()
	if err := h.ledger.Mint(context.Background(), asset, account, amount); err != nil {
		t.Fatal(err)
	}
}

func (h *harness) balance(t tb, asset, account string) uint64 {
	t.Helper()
	bal, err := h.ledger.BalanceOf(context.Background(), asset, account)
	if err != nil {
		t.Fatal(err)
	}
	return bal
}

func (h *harness) limit(t tb, owner string, side domain.Side, amount, price uint64) uint64 {
	t.Helper()
	res, err := h.svc.CreateLimitOrder(context.Background(), CreateLimitOrderCommand{
		Owner: owner, Instrument: ins, Side: string(side), Amount: amount, Price: price,
	})
	if err != nil {
		t.Fatalf("create limit order: %v", err)
	}
	return res.OrderID
}

func defaultExchange() config.ExchangeConfig {
	return config.ExchangeConfig{FeeBps: 100}
}

func TestMatchOrdersEndToEnd(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defaultExchange())
	h.fund(t, ins, "alice", 100)
	h.fund(t, usd, "bob", 600)

	a := h.limit(t, "alice", domain.SideSell, 100, 10)
	b := h.limit(t, "bob", domain.SideBuy, 50, 12)
	if a != 1 || b != 2 {
		t.Fatalf("order ids = %d, %d", a, b)
	}
	if got := h.balance(t, ins, custody.OrderCustodyAccount(ins, a)); got != 100 {
		t.Fatalf("sell custody = %d", got)
	}
	if got := h.balance(t, usd, custody.OrderCustodyAccount(ins, b)); got != 600 {
		t.Fatalf("buy custody = %d", got)
	}

	trade, err := h.svc.MatchOrders(ctx, MatchOrdersCommand{Instrument: ins, BuyOrderID: b, SellOrderID: a, Amount: 50})
	if err != nil {
		t.Fatal(err)
	}
	if trade.TradeID != 1 || trade.Price != 10 || trade.TotalValue != 500 || trade.PlatformFee != 5 || trade.SellerProceeds != 495 {
		t.Fatalf("trade = %+v", trade)
	}

	sell, _ := h.svc.GetOrder(ctx, ins, a)
	buy, _ := h.svc.GetOrder(ctx, ins, b)
	if sell.RemainingAmount != 50 || sell.Status != string(domain.StatusPartiallyFilled) {
		t.Fatalf("sell order = %+v", sell)
	}
	if buy.RemainingAmount != 0 || buy.Status != string(domain.StatusFilled) || buy.FilledAt == nil {
		t.Fatalf("buy order = %+v", buy)
	}

	book, _ := h.svc.GetOrderBook(ctx, ins)
	if book.LastTradePrice != 10 || book.TotalVolume != 50 || book.BestBid != 12 || book.BestAsk != 10 {
		t.Fatalf("book = %+v", book)
	}

	balances := []struct {
		asset, account string
		want           uint64
	}{
		{usd, "alice", 495},
		{usd, feeAcct, 5},
		{usd, "bob", 100},
		{usd, custody.OrderCustodyAccount(ins, b), 0},
		{ins, "bob", 50},
		{ins, custody.OrderCustodyAccount(ins, a), 50},
	}
	for _, c := range balances {
		if got := h.balance(t, c.asset, c.account); got != c.want {
			t.Errorf("%s/%s = %d, want %d", c.asset, c.account, got, c.want)
		}
	}

	res, err := h.svc.CancelOrder(ctx, CancelOrderCommand{Caller: "alice", Instrument: ins, OrderID: a})
	if err != nil {
		t.Fatal(err)
	}
	if res.Refunded != 50 || h.balance(t, ins, "alice") != 50 {
		t.Fatalf("refund = %d, alice tokens = %d", res.Refunded, h.balance(t, ins, "alice"))
	}

	// 开簿 1 + 下单 2 + 成交 1 + 撤单 1
	if n := h.outbox.Pending(); n != 5 {
		t.Fatalf("outbox pending = %d", n)
	}
}

func TestCreateOrderPreconditions(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defaultExchange())
	h.fund(t, ins, "alice", 10)
	h.fund(t, usd, "bob", 99)

	tests := []struct {
		name string
		run  func() error
		err  error
	}{
		{"zero amount", func() error {
			_, err := h.svc.CreateLimitOrder(ctx, CreateLimitOrderCommand{Owner: "alice", Instrument: ins, Side: "SELL", Amount: 0, Price: 1})
			return err
		}, domain.ErrInvalidOrderParams},
		{"zero price", func() error {
			_, err := h.svc.CreateLimitOrder(ctx, CreateLimitOrderCommand{Owner: "alice", Instrument: ins, Side: "SELL", Amount: 1, Price: 0})
			return err
		}, domain.ErrInvalidOrderParams},
		{"bad side", func() error {
			_, err := h.svc.CreateLimitOrder(ctx, CreateLimitOrderCommand{Owner: "alice", Instrument: ins, Side: "HOLD", Amount: 1, Price: 1})
			return err
		}, domain.ErrInvalidOrderParams},
		{"custody owner", func() error {
			_, err := h.svc.CreateLimitOrder(ctx, CreateLimitOrderCommand{Owner: custody.EscrowCustodyAccount(1), Instrument: ins, Side: "SELL", Amount: 1, Price: 1})
			return err
		}, domain.ErrInvalidOrderParams},
		{"unknown book", func() error {
			_, err := h.svc.CreateLimitOrder(ctx, CreateLimitOrderCommand{Owner: "alice", Instrument: "NOPE", Side: "SELL", Amount: 1, Price: 1})
			return err
		}, domain.ErrOrderBookNotFound},
		{"insufficient tokens", func() error {
			_, err := h.svc.CreateLimitOrder(ctx, CreateLimitOrderCommand{Owner: "alice", Instrument: ins, Side: "SELL", Amount: 11, Price: 1})
			return err
		}, domain.ErrInsufficientTokens},
		{"insufficient funds", func() error {
			_, err := h.svc.CreateLimitOrder(ctx, CreateLimitOrderCommand{Owner: "bob", Instrument: ins, Side: "BUY", Amount: 10, Price: 10})
			return err
		}, domain.ErrInsufficientFunds},
		{"market buy without asks", func() error {
			_, err := h.svc.CreateMarketOrder(ctx, CreateMarketOrderCommand{Owner: "bob", Instrument: ins, Side: "BUY", Amount: 1})
			return err
		}, domain.ErrNoLiquidity},
		{"market sell without bids", func() error {
			_, err := h.svc.CreateMarketOrder(ctx, CreateMarketOrderCommand{Owner: "alice", Instrument: ins, Side: "SELL", Amount: 1})
			return err
		}, domain.ErrNoLiquidity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.err) {
				t.Fatalf("err = %v, want %v", err, tt.err)
			}
		})
	}

	book, _ := h.svc.GetOrderBook(ctx, ins)
	if book.TotalBuyOrders != 0 || book.TotalSellOrders != 0 {
		t.Fatalf("rejected orders were counted: %+v", book)
	}
	if h.balance(t, ins, "alice") != 10 || h.balance(t, usd, "bob") != 99 {
		t.Fatal("rejected orders moved funds")
	}
	if n := h.outbox.Pending(); n != 1 {
		t.Fatalf("outbox pending = %d", n)
	}
}

func TestCreateOrderWhenHalted(t *testing.T) {
	cfg := defaultExchange()
	cfg.HaltedInstruments = []string{ins}
	h := newHarness(t, cfg)
	h.fund(t, ins, "alice", 10)

	_, err := h.svc.CreateLimitOrder(context.Background(), CreateLimitOrderCommand{Owner: "alice", Instrument: ins, Side: "SELL", Amount: 1, Price: 1})
	if !errors.Is(err, domain.ErrPlatformPaused) {
		t.Fatalf("err = %v", err)
	}
}

func TestMarketOrders(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defaultExchange())
	h.fund(t, ins, "alice", 10)
	h.fund(t, usd, "bob", 1000)

	a := h.limit(t, "alice", domain.SideSell, 10, 20)
	res, err := h.svc.CreateMarketOrder(ctx, CreateMarketOrderCommand{Owner: "bob", Instrument: ins, Side: "BUY", Amount: 10})
	if err != nil {
		t.Fatal(err)
	}
	if res.Price != 20 || res.OrderID != 2 {
		t.Fatalf("market order = %+v", res)
	}
	// 市价单不锁定资产
	if h.balance(t, usd, "bob") != 1000 {
		t.Fatalf("market order escrowed funds")
	}
	book, _ := h.svc.GetOrderBook(ctx, ins)
	if book.BestBid != 0 {
		t.Fatalf("market order moved best bid to %d", book.BestBid)
	}

	if _, err := h.svc.CreateMarketOrder(ctx, CreateMarketOrderCommand{Owner: "bob", Instrument: ins, Side: "BUY", Amount: 51}); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("oversized market buy: %v", err)
	}

	trade, err := h.svc.MatchOrders(ctx, MatchOrdersCommand{Instrument: ins, BuyOrderID: res.OrderID, SellOrderID: a, Amount: 10})
	if err != nil {
		t.Fatal(err)
	}
	if trade.Price != 20 || trade.PlatformFee != 2 {
		t.Fatalf("trade = %+v", trade)
	}
	if h.balance(t, usd, "bob") != 800 || h.balance(t, usd, "alice") != 198 || h.balance(t, ins, "bob") != 10 {
		t.Fatal("unexpected balances after market buy")
	}
}

func TestMatchRejections(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defaultExchange())
	h.fund(t, ins, "alice", 100)
	h.fund(t, usd, "alice", 1000)
	h.fund(t, usd, "bob", 1000)

	sell := h.limit(t, "alice", domain.SideSell, 10, 10)
	selfBuy := h.limit(t, "alice", domain.SideBuy, 10, 10)
	lowBuy := h.limit(t, "bob", domain.SideBuy, 10, 9)
	buy := h.limit(t, "bob", domain.SideBuy, 5, 10)

	tests := []struct {
		name      string
		buy, sell uint64
		amount    uint64
		err       error
	}{
		{"zero amount", buy, sell, 0, domain.ErrInvalidTradeAmount},
		{"missing order", 99, sell, 1, domain.ErrOrderNotFound},
		{"sides swapped", sell, buy, 1, domain.ErrInvalidOrderParams},
		{"self trade", selfBuy, sell, 1, domain.ErrSelfTrade},
		{"exceeds remaining", buy, sell, 6, domain.ErrInvalidTradeAmount},
		{"price mismatch", lowBuy, sell, 1, domain.ErrPriceMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.MatchOrders(ctx, MatchOrdersCommand{Instrument: ins, BuyOrderID: tt.buy, SellOrderID: tt.sell, Amount: tt.amount})
			if !errors.Is(err, tt.err) {
				t.Fatalf("err = %v, want %v", err, tt.err)
			}
		})
	}

	if _, err := h.svc.MatchOrders(ctx, MatchOrdersCommand{Instrument: ins, BuyOrderID: buy, SellOrderID: sell, Amount: 5}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.svc.MatchOrders(ctx, MatchOrdersCommand{Instrument: ins, BuyOrderID: buy, SellOrderID: sell, Amount: 1}); !errors.Is(err, domain.ErrOrderAlreadyFilled) {
		t.Fatalf("match filled order: %v", err)
	}
}

func TestMatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defaultExchange())
	h.fund(t, ins, "alice", 10)
	h.fund(t, usd, "bob", 100)

	a := h.limit(t, "alice", domain.SideSell, 10, 10)
	res, err := h.svc.CreateMarketOrder(ctx, CreateMarketOrderCommand{Owner: "bob", Instrument: ins, Side: "BUY", Amount: 10})
	if err != nil {
		t.Fatal(err)
	}
	// 下单后余额减少：卖方所得 99 可以支付，手续费 1 不足
	if err := h.ledger.Transfer(ctx, usd, "bob", "carol", 1); err != nil {
		t.Fatal(err)
	}
	pending := h.outbox.Pending()

	_, err = h.svc.MatchOrders(ctx, MatchOrdersCommand{Instrument: ins, BuyOrderID: res.OrderID, SellOrderID: a, Amount: 10})
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("err = %v", err)
	}

	if h.balance(t, usd, "bob") != 99 || h.balance(t, usd, "alice") != 0 || h.balance(t, usd, feeAcct) != 0 {
		t.Fatal("settlement was not rolled back")
	}
	if h.balance(t, ins, custody.OrderCustodyAccount(ins, a)) != 10 || h.balance(t, ins, "bob") != 0 {
		t.Fatal("token custody changed")
	}
	sell, _ := h.svc.GetOrder(ctx, ins, a)
	if sell.RemainingAmount != 10 || sell.Status != string(domain.StatusActive) {
		t.Fatalf("sell order changed: %+v", sell)
	}
	book, _ := h.svc.GetOrderBook(ctx, ins)
	if book.LastTradePrice != 0 || book.TotalVolume != 0 {
		t.Fatalf("book changed: %+v", book)
	}
	if h.outbox.Pending() != pending {
		t.Fatal("outbox message survived rollback")
	}
	if _, err := h.svc.GetTrade(ctx, 1); !errors.Is(err, domain.ErrTradeNotFound) {
		t.Fatalf("trade survived rollback: %v", err)
	}
}

func TestExecuteTradeBasicPath(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defaultExchange())
	h.fund(t, ins, "alice", 100)
	h.fund(t, usd, "bob", 2000)

	sell, err := h.svc.CreateSellOrder(ctx, "alice", ins, 100, 10)
	if err != nil {
		t.Fatal(err)
	}
	buy, err := h.svc.CreateBuyOrder(ctx, "bob", ins, 50, 12)
	if err != nil {
		t.Fatal(err)
	}
	market, err := h.svc.CreateMarketOrder(ctx, CreateMarketOrderCommand{Owner: "bob", Instrument: ins, Side: "BUY", Amount: 1})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := h.svc.ExecuteTrade(ctx, ins, sell.OrderID, market.OrderID, 1); !errors.Is(err, domain.ErrInvalidOrderParams) {
		t.Fatalf("basic path accepted market order: %v", err)
	}

	trade, err := h.svc.ExecuteTrade(ctx, ins, sell.OrderID, buy.OrderID, 50)
	if err != nil {
		t.Fatal(err)
	}
	if trade.Price != 10 || trade.TotalValue != 500 || trade.PlatformFee != 5 || trade.SellerProceeds != 495 {
		t.Fatalf("trade = %+v", trade)
	}
}

func TestCancelOrder(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defaultExchange())
	h.fund(t, ins, "alice", 20)
	h.fund(t, usd, "bob", 600)

	buy := h.limit(t, "bob", domain.SideBuy, 50, 12)
	sell := h.limit(t, "alice", domain.SideSell, 20, 10)
	if _, err := h.svc.MatchOrders(ctx, MatchOrdersCommand{Instrument: ins, BuyOrderID: buy, SellOrderID: sell, Amount: 20}); err != nil {
		t.Fatal(err)
	}

	if _, err := h.svc.CancelOrder(ctx, CancelOrderCommand{Caller: "mallory", Instrument: ins, OrderID: buy}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("cancel by stranger: %v", err)
	}

	// 剩余 30 @ 12 = 360，加上前 20 笔按 10 成交留下的差额 40
	res, err := h.svc.CancelOrder(ctx, CancelOrderCommand{Caller: "bob", Instrument: ins, OrderID: buy})
	if err != nil {
		t.Fatal(err)
	}
	if res.Refunded != 400 || h.balance(t, usd, "bob") != 400 {
		t.Fatalf("refunded %d, bob has %d", res.Refunded, h.balance(t, usd, "bob"))
	}

	if _, err := h.svc.CancelOrder(ctx, CancelOrderCommand{Caller: "bob", Instrument: ins, OrderID: buy}); !errors.Is(err, domain.ErrOrderAlreadyCancelled) {
		t.Fatalf("second cancel: %v", err)
	}
	if _, err := h.svc.CancelOrder(ctx, CancelOrderCommand{Caller: "alice", Instrument: ins, OrderID: sell}); !errors.Is(err, domain.ErrOrderAlreadyFilled) {
		t.Fatalf("cancel filled: %v", err)
	}
	if _, err := h.svc.CancelOrder(ctx, CancelOrderCommand{Caller: "bob", Instrument: ins, OrderID: 42}); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("cancel missing: %v", err)
	}
	if h.balance(t, usd, "bob")+h.balance(t, usd, "alice")+h.balance(t, usd, feeAcct) != 600 {
		t.Fatal("settlement asset not conserved")
	}
}

func TestOpenOrderBookIsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defaultExchange())
	h.fund(t, ins, "alice", 5)
	h.limit(t, "alice", domain.SideSell, 5, 3)

	book, err := h.svc.OpenOrderBook(ctx, ins)
	if err != nil {
		t.Fatal(err)
	}
	if book.TotalSellOrders != 1 || book.BestAsk != 3 {
		t.Fatalf("reopen reset the book: %+v", book)
	}
	books, _ := h.svc.ListOrderBooks(ctx)
	if len(books) != 1 {
		t.Fatalf("books = %d", len(books))
	}
}

// 任意一组限价单与成交，结算资产与标的在用户、托管、手续费账户之间守恒
func TestSettlementConservesValue(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		h := newHarness(rt, config.ExchangeConfig{FeeBps: rapid.Uint16Range(0, 1000).Draw(rt, "fee")})
		h.fund(rt, ins, "alice", 1_000_000)
		h.fund(rt, usd, "bob", 1_000_000_000)

		sellPx := rapid.Uint64Range(1, 1000).Draw(rt, "sellPx")
		buyPx := rapid.Uint64Range(sellPx, 1000).Draw(rt, "buyPx")
		sellAmt := rapid.Uint64Range(1, 1000).Draw(rt, "sellAmt")
		buyAmt := rapid.Uint64Range(1, 1000).Draw(rt, "buyAmt")
		sell := h.limit(rt, "alice", domain.SideSell, sellAmt, sellPx)
		buy := h.limit(rt, "bob", domain.SideBuy, buyAmt, buyPx)

		left := min(sellAmt, buyAmt)
		for left > 0 {
			fill := rapid.Uint64Range(1, left).Draw(rt, "fill")
			if _, err := h.svc.MatchOrders(ctx, MatchOrdersCommand{Instrument: ins, BuyOrderID: buy, SellOrderID: sell, Amount: fill}); err != nil {
				rt.Fatalf("match %d: %v", fill, err)
			}
			left -= fill
		}
		for _, c := range []CancelOrderCommand{{Caller: "alice", Instrument: ins, OrderID: sell}, {Caller: "bob", Instrument: ins, OrderID: buy}} {
			_, _ = h.svc.CancelOrder(ctx, c)
		}

		usdTotal := h.balance(rt, usd, "alice") + h.balance(rt, usd, "bob") + h.balance(rt, usd, feeAcct)
		if usdTotal != 1_000_000_000 {
			rt.Fatalf("usd total = %d", usdTotal)
		}
		insTotal := h.balance(rt, ins, "alice") + h.balance(rt, ins, "bob")
		if insTotal != 1_000_000 {
			rt.Fatalf("token total = %d", insTotal)
		}
		if h.balance(rt, usd, custody.OrderCustodyAccount(ins, buy)) != 0 || h.balance(rt, ins, custody.OrderCustodyAccount(ins, sell)) != 0 {
			rt.Fatal("custody not empty after both orders closed")
		}
	})
}
