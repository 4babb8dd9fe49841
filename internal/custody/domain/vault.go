package domain

import (
	"context"
	"fmt"
)

// Vault 某个托管账户的操作权。只能通过 OrderVault / EscrowVault 构造，
// 由撮合、撤单与托管释放逻辑持有
type Vault struct {
	ledger  Ledger
	account string
}

// OrderVault 订单托管
func OrderVault(l Ledger, instrument string, orderID uint64) *Vault {
	return &Vault{ledger: l, account: OrderCustodyAccount(instrument, orderID)}
}

// EscrowVault 独立托管
func EscrowVault(l Ledger, escrowID uint64) *Vault {
	return &Vault{ledger: l, account: EscrowCustodyAccount(escrowID)}
}

// Account 托管账户地址
func (v *Vault) Account() string {
	return v.account
}

// Lock 从 from 转入托管
func (v *Vault) Lock(ctx context.Context, asset, from string, amount uint64) error {
	if err := v.ledger.Transfer(ctx, asset, from, v.account, amount); err != nil {
		return fmt.Errorf("lock %d %s into %s: %w", amount, asset, v.account, err)
	}
	return nil
}

// Release 从托管转出到 to
func (v *Vault) Release(ctx context.Context, asset, to string, amount uint64) error {
	if err := v.ledger.Transfer(ctx, asset, v.account, to, amount); err != nil {
		return fmt.Errorf("release %d %s from %s: %w", amount, asset, v.account, err)
	}
	return nil
}

// Balance 托管余额
func (v *Vault) Balance(ctx context.Context, asset string) (uint64, error) {
	return v.ledger.BalanceOf(ctx, asset, v.account)
}

// Drain 将托管余额全部转给 to，返回转出数量
func (v *Vault) Drain(ctx context.Context, asset, to string) (uint64, error) {
	bal, err := v.Balance(ctx, asset)
	if err != nil {
		return 0, err
	}
	if bal == 0 {
		return 0, nil
	}
	if err := v.Release(ctx, asset, to, bal); err != nil {
		return 0, err
	}
	return bal, nil
}
