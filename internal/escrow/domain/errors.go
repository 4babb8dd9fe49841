package domain

import (
	platform "github.com/wyfcoding/tokenexchange/internal/platform/domain"
	"github.com/wyfcoding/tokenexchange/pkg/apperr"
)

var (
	ErrPlatformPaused = platform.ErrPlatformPaused

	ErrInvalidEscrowParams = apperr.New(apperr.KindValidation, "InvalidEscrowParams", "invalid escrow parameters")
	ErrInvalidTradeAmount  = apperr.New(apperr.KindValidation, "InvalidTradeAmount", "invalid escrow amount")

	ErrInsufficientTokens  = apperr.New(apperr.KindPrecondition, "InsufficientTokens", "insufficient tokens")
	ErrInvalidEscrowStatus = apperr.New(apperr.KindPrecondition, "InvalidEscrowStatus", "invalid escrow status")

	ErrUnauthorized = apperr.New(apperr.KindAuthorization, "Unauthorized", "caller is not entitled to act on this escrow")

	ErrEscrowNotFound = apperr.New(apperr.KindNotFound, "EscrowNotFound", "escrow not found")
)
