package errors

import "errors"

var (
	ErrInvalidScoreInput = errors.New("invalid score input")
	ErrUnknownCriterion  = errors.New("criterion is not in the event catalog")
	ErrScoreOutOfRange   = errors.New("criterion score is out of range")
	ErrSheetNotFound     = errors.New("score sheet not found")
	ErrEventNotFound     = errors.New("event not found in catalog")
	ErrEmptyCriterionSet = errors.New("event catalog has no criteria")
	ErrSheetConflict     = errors.New("score sheet conflict")
)
