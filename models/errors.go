package models

import "errors"

var (
	// ErrInvalidCandle is returned when a candle fails validation before entering a window
	ErrInvalidCandle = errors.New("invalid candle")
	// ErrInsufficientData is returned when a window is too short to score at all
	ErrInsufficientData = errors.New("insufficient data")
	// ErrUnknownPrediction is returned when an outcome refers to a prediction not in the log
	ErrUnknownPrediction = errors.New("unknown prediction")
	// ErrOutcomeRecorded is returned when an outcome is recorded twice for the same prediction
	ErrOutcomeRecorded = errors.New("outcome already recorded")
	// ErrInvalidInterval is returned for prediction intervals outside the supported set
	ErrInvalidInterval = errors.New("invalid prediction interval")
)
