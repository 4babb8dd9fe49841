// Package infrastructure 基于配置文件的平台参数实现
package infrastructure

import (
	"context"
	"sync/atomic"

	"github.com/wyfcoding/tokenexchange/internal/platform/domain"
	"github.com/wyfcoding/tokenexchange/pkg/config"
)

type snapshot struct {
	feeBps          uint16
	feeAccount      string
	settlementAsset string
	paused          bool
	halted          map[string]struct{}
}

// StaticSettings 从 exchange 配置段读取平台参数。Reload 原子替换整份快照
type StaticSettings struct {
	current atomic.Pointer[snapshot]
}

// NewStaticSettings 创建 StaticSettings
func NewStaticSettings(cfg config.ExchangeConfig) (*StaticSettings, error) {
	s := &StaticSettings{}
	if err := s.Reload(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload 替换参数
func (s *StaticSettings) Reload(cfg config.ExchangeConfig) error {
	if cfg.FeeBps > domain.MaxFeeBps {
		return domain.ErrPlatformFeeTooHigh
	}
	halted := make(map[string]struct{}, len(cfg.HaltedInstruments))
	for _, ins := range cfg.HaltedInstruments {
		halted[ins] = struct{}{}
	}
	s.current.Store(&snapshot{
		feeBps:          cfg.FeeBps,
		feeAccount:      cfg.FeeAccount,
		settlementAsset: cfg.SettlementAsset,
		paused:          cfg.Paused,
		halted:          halted,
	})
	return nil
}

func (s *StaticSettings) FeeBps(context.Context) uint16 {
	return s.current.Load().feeBps
}

func (s *StaticSettings) FeeAccount(context.Context) string {
	return s.current.Load().feeAccount
}

func (s *StaticSettings) SettlementAsset(context.Context) string {
	return s.current.Load().settlementAsset
}

func (s *StaticSettings) IsPaused(_ context.Context, instrument string) bool {
	snap := s.current.Load()
	if snap.paused {
		return true
	}
	_, ok := snap.halted[instrument]
	return ok
}
