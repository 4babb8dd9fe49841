package domain

import "github.com/wyfcoding/tokenexchange/pkg/apperr"

var (
	ErrInvalidPosition = apperr.New(apperr.KindValidation, "InvalidPosition", "invalid position parameters")

	ErrInsufficientTokens = apperr.New(apperr.KindPrecondition, "InsufficientTokens", "insufficient tokens in holding")

	ErrHoldingNotFound   = apperr.New(apperr.KindNotFound, "HoldingNotFound", "holding not found")
	ErrPortfolioNotFound = apperr.New(apperr.KindNotFound, "PortfolioNotFound", "portfolio not found")
)
