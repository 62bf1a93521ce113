package changepoint

import "errors"

var (
	// ErrEmptySeries is returned when there is nothing to segment.
	ErrEmptySeries = errors.New("changepoint: empty series")

	// ErrInvalidPenalty is returned when the penalty is not a positive finite number.
	ErrInvalidPenalty = errors.New("changepoint: penalty must be positive and finite")

	// ErrInvalidMinSegmentLength is returned when the minimum segment length is below one.
	ErrInvalidMinSegmentLength = errors.New("changepoint: minimum segment length must be at least 1")

	// ErrInfeasibleSegmentation is returned when no partition of the series
	// satisfies the minimum segment length.
	ErrInfeasibleSegmentation = errors.New("changepoint: no segmentation satisfies the minimum segment length")

	// ErrUnknownCostModel is returned for cost model names that are not registered.
	ErrUnknownCostModel = errors.New("changepoint: unknown cost model")
)
