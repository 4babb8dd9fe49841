// Package domain 订单、订单簿聚合、成交记录与撮合定价规则
package domain

import (
	"time"

	"github.com/wyfcoding/tokenexchange/pkg/safemath"
)

// Side 买卖方向
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Kind 订单类型
type Kind string

const (
	KindLimit  Kind = "LIMIT"
	KindMarket Kind = "MARKET"
)

// OrderStatus 订单状态
type OrderStatus string

const (
	StatusActive          OrderStatus = "ACTIVE"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusFilled          OrderStatus = "FILLED"
	StatusCancelled       OrderStatus = "CANCELLED"
)

// MaxInstrumentLen 标的代码最大长度
const MaxInstrumentLen = 32

// ParseSide 解析方向
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideBuy, SideSell:
		return Side(s), nil
	}
	return "", ErrInvalidOrderParams
}

// ParseKind 解析订单类型
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindLimit, KindMarket:
		return Kind(s), nil
	}
	return "", ErrInvalidOrderParams
}

// Order 订单。id 在所属订单簿内唯一，对外引用时必须同时带上标的
type Order struct {
	ID              uint64
	Instrument      string
	Owner           string
	Side            Side
	Kind            Kind
	Amount          uint64
	RemainingAmount uint64
	// 限价单为限价；市价单为创建时对手方最优价的快照，仅用于展示
	Price     uint64
	Status    OrderStatus
	CreatedAt time.Time
	FilledAt  *time.Time
	UpdatedAt time.Time
}

// NewOrder 创建处于 Active 状态的订单
func NewOrder(id uint64, instrument, owner string, side Side, kind Kind, amount, price uint64, now time.Time) (*Order, error) {
	if instrument == "" || len(instrument) > MaxInstrumentLen || owner == "" {
		return nil, ErrInvalidOrderParams
	}
	if amount == 0 || price == 0 {
		return nil, ErrInvalidOrderParams
	}
	if _, err := ParseSide(string(side)); err != nil {
		return nil, err
	}
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	return &Order{
		ID:              id,
		Instrument:      instrument,
		Owner:           owner,
		Side:            side,
		Kind:            kind,
		Amount:          amount,
		RemainingAmount: amount,
		Price:           price,
		Status:          StatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// IsOpen Active 或 PartiallyFilled
func (o *Order) IsOpen() bool {
	return o.Status == StatusActive || o.Status == StatusPartiallyFilled
}

// EnsureOpen 已成交或已撤销的订单不可再变更
func (o *Order) EnsureOpen() error {
	switch o.Status {
	case StatusFilled:
		return ErrOrderAlreadyFilled
	case StatusCancelled:
		return ErrOrderAlreadyCancelled
	}
	return nil
}

// Fill 成交 amount，剩余为 0 时转为 Filled 并记录 filled_at
func (o *Order) Fill(amount uint64, now time.Time) error {
	if err := o.EnsureOpen(); err != nil {
		return err
	}
	if amount == 0 || amount > o.RemainingAmount {
		return ErrInvalidTradeAmount
	}
	remaining, err := safemath.Sub(o.RemainingAmount, amount)
	if err != nil {
		return err
	}

	o.RemainingAmount = remaining
	if remaining == 0 {
		o.Status = StatusFilled
		filledAt := now
		o.FilledAt = &filledAt
	} else {
		o.Status = StatusPartiallyFilled
	}
	o.UpdatedAt = now
	return nil
}

// Cancel 由所有者撤单。撤销是终态
func (o *Order) Cancel(caller string, now time.Time) error {
	if caller != o.Owner {
		return ErrUnauthorized
	}
	if err := o.EnsureOpen(); err != nil {
		return err
	}
	o.Status = StatusCancelled
	o.UpdatedAt = now
	return nil
}

// Commitment 下单需要承诺的资产数量：卖单为标的数量，买单为 amount × price 的结算资产
func (o *Order) Commitment() (uint64, error) {
	if o.Side == SideSell {
		return o.Amount, nil
	}
	return safemath.Mul(o.Amount, o.Price)
}

// IsEscrowed 只有限价单在创建时把承诺资产锁入托管
func (o *Order) IsEscrowed() bool {
	return o.Kind == KindLimit
}
