// Package application 独立托管用例：创建、释放、撤销与查询
package application

import (
	"context"
	"errors"
	"time"

	custody "github.com/wyfcoding/tokenexchange/internal/custody/domain"
	"github.com/wyfcoding/tokenexchange/internal/escrow/domain"
	platform "github.com/wyfcoding/tokenexchange/internal/platform/domain"
	"github.com/wyfcoding/tokenexchange/pkg/db"
	"github.com/wyfcoding/tokenexchange/pkg/logger"
	"github.com/wyfcoding/tokenexchange/pkg/metrics"
	"github.com/wyfcoding/tokenexchange/pkg/sequence"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Deps 托管服务依赖
type Deps struct {
	Escrows   domain.EscrowRepository
	Ledger    custody.Ledger
	Sequences sequence.Generator
	Settings  platform.Settings
	Publisher domain.EventPublisher
	Tx        db.Transactor
	Metrics   *metrics.Metrics
}

// EscrowService 托管服务
type EscrowService struct {
	Deps
	now func() time.Time
}

// NewEscrowService 创建 EscrowService
func NewEscrowService(deps Deps) *EscrowService {
	return &EscrowService{Deps: deps, now: time.Now}
}

// CreateEscrow 从付款方锁定代币到托管账户
func (s *EscrowService) CreateEscrow(ctx context.Context, cmd CreateEscrowCommand) (*EscrowDTO, error) {
	if err := domain.ValidateCreate(cmd.Payer, cmd.Recipient, cmd.Instrument, cmd.Amount); err != nil {
		return nil, err
	}
	if err := platform.EnsureActive(ctx, s.Settings, cmd.Instrument); err != nil {
		return nil, err
	}

	var escrow *domain.Escrow
	err := s.Tx.WithTx(ctx, func(ctx context.Context) error {
		now := s.now()
		id, err := s.Sequences.Next(ctx, sequence.Escrow)
		if err != nil {
			return err
		}
		escrow, err = domain.NewEscrow(id, cmd.Payer, cmd.Recipient, cmd.Instrument, cmd.Amount, cmd.TradeID, now)
		if err != nil {
			return err
		}

		if err := custody.EscrowVault(s.Ledger, id).Lock(ctx, escrow.Instrument, escrow.Payer, escrow.Amount); err != nil {
			if errors.Is(err, custody.ErrInsufficientBalance) {
				return domain.ErrInsufficientTokens
			}
			return err
		}
		if err := s.Escrows.Save(ctx, escrow); err != nil {
			return err
		}
		return s.Publisher.PublishEscrowCreated(ctx, domain.EscrowCreatedEvent{
			EscrowID:   escrow.ID,
			TradeID:    escrow.TradeID,
			Payer:      escrow.Payer,
			Recipient:  escrow.Recipient,
			Instrument: escrow.Instrument,
			Amount:     escrow.Amount,
			OccurredOn: now,
		})
	})
	if err != nil {
		logger.Warn(ctx, "create escrow rejected", "payer", cmd.Payer, "recipient", cmd.Recipient, "instrument", cmd.Instrument, "amount", cmd.Amount, "error", err)
		return nil, err
	}

	s.Metrics.RecordEscrow(string(domain.StatusActive))
	logger.Info(ctx, "escrow created", "escrow_id", escrow.ID, "payer", escrow.Payer, "recipient", escrow.Recipient, "instrument", escrow.Instrument, "amount", escrow.Amount)
	return toEscrowDTO(escrow), nil
}

// ReleaseEscrow 付款方或收款方释放托管，全额付给收款方
func (s *EscrowService) ReleaseEscrow(ctx context.Context, caller string, id uint64) (*EscrowDTO, error) {
	return s.close(ctx, caller, id, domain.StatusReleased)
}

// CancelEscrow 付款方撤销托管，全额退回付款方
func (s *EscrowService) CancelEscrow(ctx context.Context, caller string, id uint64) (*EscrowDTO, error) {
	return s.close(ctx, caller, id, domain.StatusCancelled)
}

func (s *EscrowService) close(ctx context.Context, caller string, id uint64, target domain.EscrowStatus) (*EscrowDTO, error) {
	var escrow *domain.Escrow
	err := s.Tx.WithTx(ctx, func(ctx context.Context) error {
		now := s.now()
		var err error
		escrow, err = s.Escrows.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		to := escrow.Recipient
		if target == domain.StatusReleased {
			err = escrow.Release(caller, now)
		} else {
			err = escrow.Cancel(caller, now)
			to = escrow.Payer
		}
		if err != nil {
			return err
		}

		if err := custody.EscrowVault(s.Ledger, escrow.ID).Release(ctx, escrow.Instrument, to, escrow.Amount); err != nil {
			return err
		}
		if err := s.Escrows.Save(ctx, escrow); err != nil {
			return err
		}
		event := domain.NewEscrowClosedEvent(escrow, escrow.Amount)
		if target == domain.StatusReleased {
			return s.Publisher.PublishEscrowReleased(ctx, event)
		}
		return s.Publisher.PublishEscrowCancelled(ctx, event)
	})
	if err != nil {
		logger.Warn(ctx, "close escrow rejected", "escrow_id", id, "caller", caller, "target", target, "error", err)
		return nil, err
	}

	s.Metrics.RecordEscrow(string(target))
	logger.Info(ctx, "escrow closed", "escrow_id", id, "status", escrow.Status, "amount", escrow.Amount)
	return toEscrowDTO(escrow), nil
}

// GetEscrow 获取托管单
func (s *EscrowService) GetEscrow(ctx context.Context, id uint64) (*EscrowDTO, error) {
	var dto *EscrowDTO
	err := db.View(ctx, s.Tx, func(ctx context.Context) error {
		e, err := s.Escrows.Get(ctx, id)
		if err != nil {
			return err
		}
		dto = toEscrowDTO(e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// ListEscrowsByParty 列出用户参与的托管单
func (s *EscrowService) ListEscrowsByParty(ctx context.Context, party string, limit, offset int) ([]*EscrowDTO, int64, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	var (
		dtos  []*EscrowDTO
		total int64
	)
	err := db.View(ctx, s.Tx, func(ctx context.Context) error {
		escrows, n, err := s.Escrows.ListByParty(ctx, party, limit, offset)
		if err != nil {
			return err
		}
		total = n
		dtos = make([]*EscrowDTO, 0, len(escrows))
		for _, e := range escrows {
			dtos = append(dtos, toEscrowDTO(e))
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return dtos, total, nil
}
