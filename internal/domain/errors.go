package domain

import (
	"errors"
	"fmt"
)

// Error classes. Specific errors wrap one of these so callers can branch on
// either the precise cause or the class with errors.Is.
var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrMalformedDate    = errors.New("malformed date")
	ErrNotFound         = errors.New("resource not found")
	ErrConflict         = errors.New("concurrent modification")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
)

// Calculation and lifecycle errors
var (
	ErrPrincipalNotPositive     = fmt.Errorf("%w: principal must be positive", ErrInvalidArgument)
	ErrNegativeRate             = fmt.Errorf("%w: interest rate cannot be negative", ErrInvalidArgument)
	ErrRateOutOfRange           = fmt.Errorf("%w: interest rate must be between 0 and 100", ErrInvalidArgument)
	ErrNegativeOperand          = fmt.Errorf("%w: values cannot be negative", ErrInvalidArgument)
	ErrPaidExceedsTotal         = fmt.Errorf("%w: paid installments exceed total installments", ErrInvalidArgument)
	ErrInvalidFrequency         = fmt.Errorf("%w: unknown collection frequency", ErrInvalidArgument)
	ErrInstallmentsOutOfRange   = fmt.Errorf("%w: installments to pay must be between 1 and the pending count", ErrInvalidArgument)
	ErrRenewalPrincipalTooLow   = fmt.Errorf("%w: new principal must exceed the outstanding balance", ErrInvalidArgument)
	ErrRenewalNotAllowed        = fmt.Errorf("%w: too many pending installments to renew", ErrInvalidArgument)
	ErrLoanCompleted            = fmt.Errorf("%w: loan is completed", ErrInvalidArgument)
	ErrActiveLoanExists         = fmt.Errorf("%w: borrower already has an active loan", ErrInvalidArgument)
	ErrBorrowerFieldsRequired   = fmt.Errorf("%w: borrower name and national ID are required", ErrInvalidArgument)
	ErrInvalidCurrency          = fmt.Errorf("%w: currency must be a 3-letter code", ErrInvalidArgument)
	ErrInvalidPaymentMethod     = fmt.Errorf("%w: unknown payment method", ErrInvalidArgument)
	ErrCalendarYearUnknown      = fmt.Errorf("%w: no holiday table for year", ErrInvalidArgument)
	ErrCollectorInactive        = fmt.Errorf("%w: collector is inactive", ErrForbidden)
	ErrAdminRequired            = fmt.Errorf("%w: admin role required", ErrForbidden)
	ErrNotACollector            = fmt.Errorf("%w: user is not a collector", ErrInvalidArgument)
	ErrInvalidPolicy            = fmt.Errorf("%w: invalid collection policy", ErrInvalidArgument)
	ErrLoanNotFound             = fmt.Errorf("%w: loan not found", ErrNotFound)
	ErrUserNotFound             = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrConfigNotFound           = fmt.Errorf("%w: interest config not found", ErrNotFound)
	ErrVersionMismatch          = fmt.Errorf("%w: loan was modified by another request", ErrConflict)
	ErrDelinquencyNotApplicable = fmt.Errorf("%w: loan has no overdue installments", ErrInvalidArgument)
)
