// Package domain 代币账本端口与托管账户。托管账户中的资金只能经由 Vault 转出
package domain

import (
	"context"
	"strconv"
	"strings"

	"github.com/wyfcoding/tokenexchange/pkg/apperr"
)

const (
	// CustodyPrefix 托管账户命名空间
	CustodyPrefix = "custody:"
	// PlatformPrefix 平台自有账户命名空间（手续费账户等），用户身份不得落在其中
	PlatformPrefix = "platform:"
)

var (
	ErrInsufficientBalance = apperr.New(apperr.KindPrecondition, "InsufficientBalance", "insufficient balance")
	ErrReservedAccount     = apperr.New(apperr.KindValidation, "ReservedAccount", "account is reserved")
	ErrInvalidTransfer     = apperr.New(apperr.KindValidation, "InvalidTransfer", "invalid transfer parameters")
)

// Ledger 代币转账服务。Transfer 在余额不足时返回 ErrInsufficientBalance 且不做任何修改，
// 参与 context 中的事务
type Ledger interface {
	Transfer(ctx context.Context, asset, from, to string, amount uint64) error
	BalanceOf(ctx context.Context, asset, account string) (uint64, error)
	Mint(ctx context.Context, asset, to string, amount uint64) error
}

// IsCustodyAccount 是否为托管账户
func IsCustodyAccount(account string) bool {
	return strings.HasPrefix(account, CustodyPrefix)
}

// IsPlatformAccount 是否为平台自有账户
func IsPlatformAccount(account string) bool {
	return strings.HasPrefix(account, PlatformPrefix)
}

// ValidateUserAccount 用户可直接操作的账户：非空，且不在托管或平台命名空间
func ValidateUserAccount(account string) error {
	if account == "" || len(account) > 128 {
		return ErrInvalidTransfer
	}
	if IsCustodyAccount(account) || IsPlatformAccount(account) {
		return ErrReservedAccount
	}
	return nil
}

// OrderCustodyAccount 订单托管账户地址，按 (标的, 订单号) 唯一
func OrderCustodyAccount(instrument string, orderID uint64) string {
	return CustodyPrefix + "order:" + instrument + ":" + strconv.FormatUint(orderID, 10)
}

// EscrowCustodyAccount 独立托管单的托管账户地址
func EscrowCustodyAccount(escrowID uint64) string {
	return CustodyPrefix + "escrow:" + strconv.FormatUint(escrowID, 10)
}
