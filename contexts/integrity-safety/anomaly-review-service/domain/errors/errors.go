package errors

import "errors"

var (
	ErrInvalidFlagInput    = errors.New("invalid flag input")
	ErrFlagNotFound        = errors.New("anomaly flag not found")
	ErrFlagAlreadyReviewed = errors.New("anomaly flag is already reviewed")
	ErrSheetNotFound       = errors.New("flagged score sheet not found")
)
