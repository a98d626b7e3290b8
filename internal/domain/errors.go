package domain

import "errors"

var (
	ErrCapacityExceeded = errors.New("maximum 6 cheques allowed per deposit slip")
	ErrNotFound         = errors.New("cheque not found")
	ErrAlreadyDeposited = errors.New("cheque already deposited")
	ErrNothingSelected  = errors.New("no cheques on the deposit slip")
	ErrLineOutOfRange   = errors.New("deposit line index out of range")
	ErrUnknownField     = errors.New("unknown deposit line field")
	ErrDuplicateBranch  = errors.New("branch already exists")
	ErrNothingToExport  = errors.New("no cheques to export")
	ErrInvalidDateRange = errors.New("invalid date range")
	ErrAmountTooLarge   = errors.New("amount exceeds 999,999,999,999,999.99")
)
