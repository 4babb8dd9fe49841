package mysql

import (
	"time"

	"github.com/wyfcoding/tokenexchange/internal/escrow/domain"
)

// EscrowModel 托管单表
type EscrowModel struct {
	EscrowID   uint64     `gorm:"column:escrow_id;primaryKey;autoIncrement:false;comment:托管单号"`
	TradeID    *uint64    `gorm:"column:trade_id;index;comment:关联成交号"`
	Payer      string     `gorm:"column:payer;type:varchar(128);index;not null;comment:付款方"`
	Recipient  string     `gorm:"column:recipient;type:varchar(128);index;not null;comment:收款方"`
	Instrument string     `gorm:"column:instrument;type:varchar(32);not null;comment:标的代码"`
	Amount     uint64     `gorm:"column:amount;type:bigint unsigned;not null;comment:托管数量"`
	Status     string     `gorm:"column:status;type:varchar(20);not null;comment:托管状态"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
	ReleasedAt *time.Time `gorm:"column:released_at"`
	UpdatedAt  time.Time  `gorm:"column:updated_at"`
}

// TableName 指定表名
func (EscrowModel) TableName() string {
	return "escrows"
}

func toEscrowModel(e *domain.Escrow) *EscrowModel {
	return &EscrowModel{
		EscrowID:   e.ID,
		TradeID:    e.TradeID,
		Payer:      e.Payer,
		Recipient:  e.Recipient,
		Instrument: e.Instrument,
		Amount:     e.Amount,
		Status:     string(e.Status),
		CreatedAt:  e.CreatedAt,
		ReleasedAt: e.ReleasedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

func toEscrow(m *EscrowModel) *domain.Escrow {
	return &domain.Escrow{
		ID:         m.EscrowID,
		TradeID:    m.TradeID,
		Payer:      m.Payer,
		Recipient:  m.Recipient,
		Instrument: m.Instrument,
		Amount:     m.Amount,
		Status:     domain.EscrowStatus(m.Status),
		CreatedAt:  m.CreatedAt,
		ReleasedAt: m.ReleasedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
