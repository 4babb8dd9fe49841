// Package application 代币账本的用户侧操作：入金、用户间转账、余额查询
package application

import (
	"context"
	"errors"

	"github.com/wyfcoding/tokenexchange/internal/custody/domain"
	"github.com/wyfcoding/tokenexchange/pkg/db"
	"github.com/wyfcoding/tokenexchange/pkg/logger"
)

// DepositCommand 入金（增发到用户账户）
type DepositCommand struct {
	Asset   string `json:"asset" binding:"required"`
	Account string `json:"account" binding:"required"`
	Amount  uint64 `json:"amount" binding:"required"`
}

// TransferCommand 用户间转账，from 为调用方
type TransferCommand struct {
	From   string `json:"-"`
	Asset  string `json:"asset" binding:"required"`
	To     string `json:"to" binding:"required"`
	Amount uint64 `json:"amount" binding:"required"`
}

// BalanceDTO 余额
type BalanceDTO struct {
	Asset   string `json:"asset"`
	Account string `json:"account"`
	Amount  uint64 `json:"amount"`
}

// CustodyService 账本用户侧服务。托管账户只能经 domain.Vault 操作，这里一律拒绝
type CustodyService struct {
	ledger domain.Ledger
	tx     db.Transactor
}

// NewCustodyService 创建 CustodyService
func NewCustodyService(ledger domain.Ledger, tx db.Transactor) *CustodyService {
	return &CustodyService{ledger: ledger, tx: tx}
}

// Deposit 入金
func (s *CustodyService) Deposit(ctx context.Context, cmd DepositCommand) (*BalanceDTO, error) {
	if cmd.Asset == "" || cmd.Amount == 0 {
		return nil, domain.ErrInvalidTransfer
	}
	if err := domain.ValidateUserAccount(cmd.Account); err != nil {
		return nil, err
	}

	var bal uint64
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.ledger.Mint(ctx, cmd.Asset, cmd.Account, cmd.Amount); err != nil {
			return err
		}
		var err error
		bal, err = s.ledger.BalanceOf(ctx, cmd.Asset, cmd.Account)
		return err
	})
	if err != nil {
		logger.Error(ctx, "deposit failed", "asset", cmd.Asset, "account", cmd.Account, "error", err)
		return nil, err
	}
	logger.Info(ctx, "deposit applied", "asset", cmd.Asset, "account", cmd.Account, "amount", cmd.Amount)
	return &BalanceDTO{Asset: cmd.Asset, Account: cmd.Account, Amount: bal}, nil
}

// Transfer 用户间转账
func (s *CustodyService) Transfer(ctx context.Context, cmd TransferCommand) error {
	if cmd.Asset == "" || cmd.Amount == 0 {
		return domain.ErrInvalidTransfer
	}
	if err := errors.Join(domain.ValidateUserAccount(cmd.From), domain.ValidateUserAccount(cmd.To)); err != nil {
		if errors.Is(err, domain.ErrReservedAccount) {
			return domain.ErrReservedAccount
		}
		return domain.ErrInvalidTransfer
	}
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		return s.ledger.Transfer(ctx, cmd.Asset, cmd.From, cmd.To, cmd.Amount)
	})
}

// Balance 查询余额，托管账户同样可查
func (s *CustodyService) Balance(ctx context.Context, asset, account string) (*BalanceDTO, error) {
	if asset == "" || account == "" {
		return nil, domain.ErrInvalidTransfer
	}
	var amount uint64
	err := db.View(ctx, s.tx, func(ctx context.Context) error {
		var err error
		amount, err = s.ledger.BalanceOf(ctx, asset, account)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &BalanceDTO{Asset: asset, Account: account, Amount: amount}, nil
}
