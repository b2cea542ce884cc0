package baseline

import "errors"

// ErrInsufficientData is returned when a training key has fewer observations
// than the configured minimum. The failure is scoped to that key.
var ErrInsufficientData = errors.New("insufficient observations for training")

// ErrNonMonotonicModel is returned when a power-law fit produces a
// non-negative exponent. The model is rejected; callers keep the previously
// stored model for the key.
var ErrNonMonotonicModel = errors.New("fitted exponent is not strictly negative")

// ErrInsufficientHistory is returned when fewer snapshots exist than a trend
// comparison needs. A trend is never fabricated from a single window.
var ErrInsufficientHistory = errors.New("not enough baseline history for a trend")

// ErrUnknownMetric is returned for a metric outside the fixed registry
var ErrUnknownMetric = errors.New("unknown metric")
