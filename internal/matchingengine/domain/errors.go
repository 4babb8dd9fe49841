package domain

import (
	platform "github.com/wyfcoding/tokenexchange/internal/platform/domain"
	"github.com/wyfcoding/tokenexchange/pkg/apperr"
)

var (
	ErrPlatformPaused = platform.ErrPlatformPaused

	ErrInvalidOrderParams = apperr.New(apperr.KindValidation, "InvalidOrderParams", "invalid order parameters")
	ErrInvalidTradeAmount = apperr.New(apperr.KindValidation, "InvalidTradeAmount", "invalid trade amount")

	ErrInsufficientTokens    = apperr.New(apperr.KindPrecondition, "InsufficientTokens", "insufficient tokens")
	ErrInsufficientFunds     = apperr.New(apperr.KindPrecondition, "InsufficientFunds", "insufficient funds")
	ErrOrderAlreadyFilled    = apperr.New(apperr.KindPrecondition, "OrderAlreadyFilled", "order already filled")
	ErrOrderAlreadyCancelled = apperr.New(apperr.KindPrecondition, "OrderAlreadyCancelled", "order already cancelled")
	ErrSelfTrade             = apperr.New(apperr.KindPrecondition, "SelfTrade", "self trade is not allowed")
	ErrPriceMismatch         = apperr.New(apperr.KindPrecondition, "PriceMismatch", "buy price is below sell price")
	ErrNoLiquidity           = apperr.New(apperr.KindPrecondition, "NoLiquidity", "no liquidity on the opposite side")

	ErrUnauthorized = apperr.New(apperr.KindAuthorization, "Unauthorized", "caller is not the order owner")

	ErrOrderNotFound     = apperr.New(apperr.KindNotFound, "OrderNotFound", "order not found")
	ErrOrderBookNotFound = apperr.New(apperr.KindNotFound, "OrderBookNotFound", "order book not found")
	ErrTradeNotFound     = apperr.New(apperr.KindNotFound, "TradeNotFound", "trade not found")
)
