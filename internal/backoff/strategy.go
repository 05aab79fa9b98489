package backoff

import (
	"math"
	"time"
)

// DefaultBase is the unit delay multiplied by Multiplier^attempt.
const DefaultBase = 100 * time.Millisecond

// maxAttempt bounds the exponent so the float product stays finite.
const maxAttempt = 62

// Strategy computes the delay to wait before retry number attempt.
type Strategy interface {
	Delay(attempt int) time.Duration
}

// Exponential yields Base * Multiplier^attempt with no jitter, so the delay
// grows strictly with every attempt as long as Multiplier > 1 and Max is
// not reached.
type Exponential struct {
	Base       time.Duration
	Multiplier float64
	// Max caps the delay. Zero leaves it uncapped apart from overflow.
	Max time.Duration
}

// Default returns the 2^attempt x 100ms schedule.
func Default() Exponential {
	return Exponential{Base: DefaultBase, Multiplier: 2}
}

// Delay implements Strategy.
func (e Exponential) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > maxAttempt {
		attempt = maxAttempt
	}

	base := e.Base
	if base <= 0 {
		base = DefaultBase
	}
	multiplier := e.Multiplier
	if multiplier <= 0 {
		multiplier = 2
	}

	result := time.Duration(math.MaxInt64)
	if delay := float64(base) * pow(multiplier, attempt); delay < math.MaxInt64 {
		result = time.Duration(delay)
	}
	if e.Max > 0 && result > e.Max {
		result = e.Max
	}
	return result
}

// pow calculates base^exponent using integer exponentiation.
func pow(base float64, exponent int) float64 {
	result := 1.0
	for i := 0; i < exponent; i++ {
		result *= base
	}
	return result
}
