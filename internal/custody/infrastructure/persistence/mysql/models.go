package mysql

import "time"

// TokenBalanceModel 账户余额表
type TokenBalanceModel struct {
	Asset     string `gorm:"column:asset;type:varchar(32);primaryKey"`
	Account   string `gorm:"column:account;type:varchar(128);primaryKey"`
	Amount    uint64 `gorm:"column:amount;type:bigint unsigned;not null;default:0"`
	UpdatedAt time.Time
}

func (TokenBalanceModel) TableName() string {
	return "token_balances"
}
