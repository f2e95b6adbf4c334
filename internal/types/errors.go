package types

import "errors"

var (
	// ErrInsufficientHistory means fewer bars exist than a lookback requires.
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrDuplicateEvaluation means the (ticker, date) pair was already processed.
	ErrDuplicateEvaluation = errors.New("duplicate evaluation")
	// ErrInsufficientCash means a qualifying buy could not be funded.
	ErrInsufficientCash = errors.New("insufficient cash")
	// ErrInconsistentState means per-ticker state rows disagree with each other.
	// Never repaired silently; processing for the ticker must halt.
	ErrInconsistentState = errors.New("inconsistent strategy state")
)
