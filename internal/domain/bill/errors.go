package bill

import "errors"

var (
	ErrNotFound     = errors.New("bill not found")
	ErrBillSold     = errors.New("bill has already been sold")
	ErrNotAvailable = errors.New("bill is not available")
	ErrInvalidBill  = errors.New("bill amounts must be non-negative and total positive")
)
