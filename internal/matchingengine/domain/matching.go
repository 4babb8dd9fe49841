package domain

import "github.com/wyfcoding/tokenexchange/pkg/safemath"

// BpsDenominator 基点分母
const BpsDenominator = 10000

// MatchMode 撮合入口。两个入口共用同一套定价与结算
type MatchMode int

const (
	// MatchStandard 限价/市价任意组合
	MatchStandard MatchMode = iota
	// MatchBasic 仅限价单
	MatchBasic
)

// Execution 一次撮合的定价结果
type Execution struct {
	Amount         uint64
	Price          uint64
	TotalValue     uint64
	PlatformFee    uint64
	SellerProceeds uint64
}

// ResolveExecutionPrice 成交价规则：
//
//	买市价 / 卖限价  卖方限价
//	买限价 / 卖市价  买方限价
//	买市价 / 卖市价  订单簿最新成交价
//	买限价 / 卖限价  卖方限价，要求买价不低于卖价
func ResolveExecutionPrice(buy, sell *Order, lastTradePrice uint64) (uint64, error) {
	switch {
	case buy.Kind == KindMarket && sell.Kind == KindLimit:
		return sell.Price, nil
	case buy.Kind == KindLimit && sell.Kind == KindMarket:
		return buy.Price, nil
	case buy.Kind == KindMarket && sell.Kind == KindMarket:
		if lastTradePrice == 0 {
			return 0, ErrNoLiquidity
		}
		return lastTradePrice, nil
	default:
		if buy.Price < sell.Price {
			return 0, ErrPriceMismatch
		}
		return sell.Price, nil
	}
}

// NewExecution 计算成交额、手续费与卖方所得。
// 手续费 = floor(成交额 × 费率 / 10000)，截断对平台有利，最多一个最小单位
func NewExecution(amount, price uint64, feeBps uint16) (Execution, error) {
	total, err := safemath.Mul(amount, price)
	if err != nil {
		return Execution{}, err
	}
	fee, err := safemath.MulDiv(total, uint64(feeBps), BpsDenominator)
	if err != nil {
		return Execution{}, err
	}
	proceeds, err := safemath.Sub(total, fee)
	if err != nil {
		return Execution{}, err
	}
	return Execution{
		Amount:         amount,
		Price:          price,
		TotalValue:     total,
		PlatformFee:    fee,
		SellerProceeds: proceeds,
	}, nil
}

// PlanMatch 校验两张订单能否以 amount 成交并给出定价。只读，不修改任何订单
func PlanMatch(book *OrderBook, buy, sell *Order, amount uint64, feeBps uint16, mode MatchMode) (Execution, error) {
	if amount == 0 {
		return Execution{}, ErrInvalidTradeAmount
	}
	if buy.Side != SideBuy || sell.Side != SideSell {
		return Execution{}, ErrInvalidOrderParams
	}
	if buy.Instrument != sell.Instrument || buy.Instrument != book.Instrument {
		return Execution{}, ErrOrderNotFound
	}
	if mode == MatchBasic && (buy.Kind != KindLimit || sell.Kind != KindLimit) {
		return Execution{}, ErrInvalidOrderParams
	}
	if err := buy.EnsureOpen(); err != nil {
		return Execution{}, err
	}
	if err := sell.EnsureOpen(); err != nil {
		return Execution{}, err
	}
	if buy.Owner == sell.Owner {
		return Execution{}, ErrSelfTrade
	}
	if amount > buy.RemainingAmount || amount > sell.RemainingAmount {
		return Execution{}, ErrInvalidTradeAmount
	}

	price, err := ResolveExecutionPrice(buy, sell, book.LastTradePrice)
	if err != nil {
		return Execution{}, err
	}
	return NewExecution(amount, price, feeBps)
}
