// Package domain 平台级参数：手续费率、手续费账户、结算资产、暂停开关
package domain

import (
	"context"

	"github.com/wyfcoding/tokenexchange/pkg/apperr"
)

// MaxFeeBps 手续费率上限
const MaxFeeBps = 1000

var (
	ErrPlatformPaused     = apperr.New(apperr.KindPrecondition, "PlatformPaused", "platform is paused")
	ErrPlatformFeeTooHigh = apperr.New(apperr.KindValidation, "PlatformFeeTooHigh", "platform fee exceeds 1000 bps")
)

// Settings 平台参数读取端口。参数的修改属于平台管理，不在本服务内
type Settings interface {
	FeeBps(ctx context.Context) uint16
	FeeAccount(ctx context.Context) string
	SettlementAsset(ctx context.Context) string
	// IsPaused 全局暂停或该标的被暂停时返回 true
	IsPaused(ctx context.Context, instrument string) bool
}

// EnsureActive 标的处于暂停状态时返回 ErrPlatformPaused
func EnsureActive(ctx context.Context, s Settings, instrument string) error {
	if s.IsPaused(ctx, instrument) {
		return ErrPlatformPaused
	}
	return nil
}
