package domain

import "time"

// Trade 成交记录，写入后不可变
type Trade struct {
	ID             uint64
	Instrument     string
	BuyOrderID     uint64
	SellOrderID    uint64
	Buyer          string
	Seller         string
	Amount         uint64
	Price          uint64
	TotalValue     uint64
	PlatformFee    uint64
	SellerProceeds uint64
	ExecutedAt     time.Time
}

// NewTrade 由撮合结果生成成交记录
func NewTrade(id uint64, buy, sell *Order, exec Execution, now time.Time) *Trade {
	return &Trade{
		ID:             id,
		Instrument:     buy.Instrument,
		BuyOrderID:     buy.ID,
		SellOrderID:    sell.ID,
		Buyer:          buy.Owner,
		Seller:         sell.Owner,
		Amount:         exec.Amount,
		Price:          exec.Price,
		TotalValue:     exec.TotalValue,
		PlatformFee:    exec.PlatformFee,
		SellerProceeds: exec.SellerProceeds,
		ExecutedAt:     now,
	}
}
