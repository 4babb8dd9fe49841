// Package domain 独立托管单：付款方锁定代币，释放给收款方或退回付款方
package domain

import (
	"time"

	custody "github.com/wyfcoding/tokenexchange/internal/custody/domain"
)

// MaxInstrumentLen 标的代码最大长度
const MaxInstrumentLen = 32

// EscrowStatus 托管状态
type EscrowStatus string

const (
	StatusActive    EscrowStatus = "ACTIVE"
	StatusReleased  EscrowStatus = "RELEASED"
	StatusCancelled EscrowStatus = "CANCELLED"
)

// Escrow 托管单实体
type Escrow struct {
	ID         uint64
	TradeID    *uint64
	Payer      string
	Recipient  string
	Instrument string
	Amount     uint64
	Status     EscrowStatus
	CreatedAt  time.Time
	// 释放或撤销时写入
	ReleasedAt *time.Time
	UpdatedAt  time.Time
}

// NewEscrow 创建 Active 托管单
func NewEscrow(id uint64, payer, recipient, instrument string, amount uint64, tradeID *uint64, now time.Time) (*Escrow, error) {
	if err := ValidateCreate(payer, recipient, instrument, amount); err != nil {
		return nil, err
	}
	return &Escrow{
		ID:         id,
		TradeID:    tradeID,
		Payer:      payer,
		Recipient:  recipient,
		Instrument: instrument,
		Amount:     amount,
		Status:     StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// ValidateCreate 创建参数校验，在读取任何状态之前执行
func ValidateCreate(payer, recipient, instrument string, amount uint64) error {
	if amount == 0 {
		return ErrInvalidTradeAmount
	}
	if err := ValidateParties(payer, recipient); err != nil {
		return err
	}
	if instrument == "" || len(instrument) > MaxInstrumentLen {
		return ErrInvalidEscrowParams
	}
	return nil
}

// ValidateParties 付款方与收款方必须是不同的用户账户
func ValidateParties(payer, recipient string) error {
	if custody.ValidateUserAccount(payer) != nil || custody.ValidateUserAccount(recipient) != nil {
		return ErrInvalidEscrowParams
	}
	if payer == recipient {
		return ErrInvalidEscrowParams
	}
	return nil
}

// IsParty 是否为付款方或收款方
func (e *Escrow) IsParty(caller string) bool {
	return caller == e.Payer || caller == e.Recipient
}

// Release 付款方或收款方释放，仅限 Active。先校验状态再校验身份
func (e *Escrow) Release(caller string, now time.Time) error {
	if e.Status != StatusActive {
		return ErrInvalidEscrowStatus
	}
	if !e.IsParty(caller) {
		return ErrUnauthorized
	}
	e.close(StatusReleased, now)
	return nil
}

// Cancel 仅付款方可撤销，仅限 Active
func (e *Escrow) Cancel(caller string, now time.Time) error {
	if e.Status != StatusActive {
		return ErrInvalidEscrowStatus
	}
	if caller != e.Payer {
		return ErrUnauthorized
	}
	e.close(StatusCancelled, now)
	return nil
}

func (e *Escrow) close(status EscrowStatus, now time.Time) {
	e.Status = status
	t := now
	e.ReleasedAt = &t
	e.UpdatedAt = now
}
