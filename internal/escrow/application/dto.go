package application

import (
	"time"

	"github.com/wyfcoding/tokenexchange/internal/escrow/domain"
)

// CreateEscrowCommand 创建托管
type CreateEscrowCommand struct {
	Payer      string  `json:"-"`
	Instrument string  `json:"instrument" binding:"required"`
	Recipient  string  `json:"recipient" binding:"required"`
	Amount     uint64  `json:"amount"`
	TradeID    *uint64 `json:"trade_id,omitempty"`
}

// EscrowDTO 托管单
type EscrowDTO struct {
	EscrowID   uint64     `json:"escrow_id"`
	TradeID    *uint64    `json:"trade_id,omitempty"`
	Payer      string     `json:"payer"`
	Recipient  string     `json:"recipient"`
	Instrument string     `json:"instrument"`
	Amount     uint64     `json:"amount"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	ReleasedAt *time.Time `json:"released_at,omitempty"`
}

func toEscrowDTO(e *domain.Escrow) *EscrowDTO {
	return &EscrowDTO{
		EscrowID:   e.ID,
		TradeID:    e.TradeID,
		Payer:      e.Payer,
		Recipient:  e.Recipient,
		Instrument: e.Instrument,
		Amount:     e.Amount,
		Status:     string(e.Status),
		CreatedAt:  e.CreatedAt,
		ReleasedAt: e.ReleasedAt,
	}
}
