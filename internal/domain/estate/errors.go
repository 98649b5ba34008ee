package estate

import (
	"errors"

	"github.com/yungbote/estate-backend/internal/domain/aggregates"
)

var (
	ErrEstateFrozen       = errors.New("estate is frozen")
	ErrEstateClosed       = errors.New("estate is closed")
	ErrPriorityViolation  = errors.New("debt payment violates statutory priority")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrInsufficientCash   = errors.New("insufficient available cash")
	ErrAssetEncumbered    = errors.New("asset is encumbered")
	ErrLiquidationActive  = errors.New("asset already has an active liquidation")
	ErrNoLiquidation      = errors.New("asset has no active liquidation")
	ErrShareCapExceeded   = errors.New("co-owner shares exceed 100 percent")
	ErrDuplicateCoOwner   = errors.New("co-owner already registered")
	ErrAlreadyVerified    = errors.New("co-owner already verified")
	ErrBelowReservePrice  = errors.New("sale amount below reserve price")
	ErrOutsideTargetBand  = errors.New("sale amount outside acceptable band")
	ErrOverpayment        = errors.New("payment exceeds outstanding balance")
	ErrDuplicateEstate    = errors.New("estate already exists for deceased")
	ErrUnknownChild       = errors.New("entity not part of this estate")
	ErrDistributionDenied = errors.New("estate is not ready for distribution")
)

func validationErr(op string, cause error, format string, args ...any) error {
	return aggregates.Errorf(aggregates.CodeValidation, op, cause, format, args...)
}

func illegalState(op string, cause error, format string, args ...any) error {
	return aggregates.Errorf(aggregates.CodeIllegalState, op, cause, format, args...)
}

// transitionErr reports a rejected (state, action) pair.
func transitionErr(op, entity, from, action string) error {
	return illegalState(op, ErrInvalidTransition, "%s cannot %s from status %s", entity, action, from)
}

// unknownChild is returned when an id does not belong to the loaded aggregate. The
// caller layer maps repository misses to not_found; inside the aggregate it is a
// validation failure of the command payload.
func unknownChild(op, kind, id string) error {
	return validationErr(op, ErrUnknownChild, "%s %s is not part of this estate", kind, id)
}
