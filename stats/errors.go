package stats

import "errors"

// Errors returned by the stationarity tester and the decomposer. All of them
// are detected before any heavy computation except ErrNumericalInstability,
// which reports a least-squares fit that cannot be trusted.
var (
	// ErrInsufficientData indicates the series is too short for the requested lag order.
	ErrInsufficientData = errors.New("stats: insufficient data")

	// ErrInvalidPeriod indicates a seasonal period outside [2, n).
	ErrInvalidPeriod = errors.New("stats: invalid seasonal period")

	// ErrInvalidWindow indicates a non-positive rolling window.
	ErrInvalidWindow = errors.New("stats: invalid rolling window")

	// ErrInvalidModel indicates an unknown decomposition model or ADF option.
	ErrInvalidModel = errors.New("stats: invalid model")

	// ErrNumericalInstability indicates a singular or ill-conditioned regression,
	// or a multiplicative seasonal pattern that cannot be normalised.
	ErrNumericalInstability = errors.New("stats: numerical instability")
)
