package domain

import "time"

const (
	TopicEscrowCreated   = "exchange.escrow.created"
	TopicEscrowReleased  = "exchange.escrow.released"
	TopicEscrowCancelled = "exchange.escrow.cancelled"
)

// EscrowCreatedEvent 托管创建事件
type EscrowCreatedEvent struct {
	EscrowID   uint64    `json:"escrow_id"`
	TradeID    *uint64   `json:"trade_id,omitempty"`
	Payer      string    `json:"payer"`
	Recipient  string    `json:"recipient"`
	Instrument string    `json:"instrument"`
	Amount     uint64    `json:"amount"`
	OccurredOn time.Time `json:"occurred_on"`
}

// EscrowClosedEvent 托管释放或撤销事件
type EscrowClosedEvent struct {
	EscrowID   uint64       `json:"escrow_id"`
	TradeID    *uint64      `json:"trade_id,omitempty"`
	Payer      string       `json:"payer"`
	Recipient  string       `json:"recipient"`
	Instrument string       `json:"instrument"`
	Amount     uint64       `json:"amount"`
	Status     EscrowStatus `json:"status"`
	// 实际转出的托管余额
	Transferred uint64    `json:"transferred"`
	OccurredOn  time.Time `json:"occurred_on"`
}

// NewEscrowClosedEvent 由已关闭的托管单构造事件
func NewEscrowClosedEvent(e *Escrow, transferred uint64) EscrowClosedEvent {
	ev := EscrowClosedEvent{
		EscrowID:    e.ID,
		TradeID:     e.TradeID,
		Payer:       e.Payer,
		Recipient:   e.Recipient,
		Instrument:  e.Instrument,
		Amount:      e.Amount,
		Status:      e.Status,
		Transferred: transferred,
		OccurredOn:  e.UpdatedAt,
	}
	if e.ReleasedAt != nil {
		ev.OccurredOn = *e.ReleasedAt
	}
	return ev
}
