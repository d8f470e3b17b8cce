package extraction

import (
	"fmt"
	"math"
	"time"
)

// DefaultCorrectionSlope is the empirical smoothing constant for the
// remaining-time correction factor. Linear extrapolation systematically
// underestimates early in a job whose later stages run slower; the
// correction inflates early estimates (3x as completeness approaches 0)
// and converges to the raw linear estimate near completion.
const DefaultCorrectionSlope = 2.0

// Estimator computes remaining-time estimates for an extraction job
// whose true duration is unknown in advance.
type Estimator struct {
	// CorrectionSlope tunes the early-progress inflation. Zero means
	// DefaultCorrectionSlope. Treat as configuration, not a derived value.
	CorrectionSlope float64
}

// Estimate is a point-in-time progress reading for display.
type Estimate struct {
	Completeness float64
	Remaining    time.Duration
	// HasRemaining is false when no estimate can be shown: completeness
	// is zero (undefined), the job is done, or the math degenerates.
	HasRemaining bool
}

// Estimate computes the remaining-time estimate at display time now.
//
//	rawRemaining = elapsed * (1-c) / c
//	remaining    = rawRemaining * (1 + slope*(1-c))
func (e Estimator) Estimate(completeness float64, requestedAt, now time.Time) Estimate {
	est := Estimate{Completeness: completeness}
	if completeness <= 0 || completeness > 1 {
		return est
	}

	slope := e.CorrectionSlope
	if slope == 0 {
		slope = DefaultCorrectionSlope
	}

	elapsed := now.Sub(requestedAt).Seconds()
	raw := elapsed * (1 - completeness) / completeness
	remaining := raw * (1 + slope*(1-completeness))

	if remaining <= 0 || math.IsInf(remaining, 0) || math.IsNaN(remaining) {
		return est
	}

	est.Remaining = time.Duration(remaining * float64(time.Second))
	est.HasRemaining = true
	return est
}

// PercentString renders the completeness to one decimal place. Shown
// regardless of remaining-time availability.
func (est Estimate) PercentString() string {
	return fmt.Sprintf("Completion: %.1f%%", est.Completeness*100)
}

// RemainingString renders the remaining time as whole hours, minutes
// and seconds, or "" when no estimate is available. A higher zero unit
// is omitted; seconds always print so the string is never empty.
func (est Estimate) RemainingString() string {
	if !est.HasRemaining {
		return ""
	}
	return FormatRemaining(est.Remaining)
}

// FormatRemaining decomposes a duration into "1h 2m 3s" display form.
func FormatRemaining(d time.Duration) string {
	total := int(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	s := ""
	if hours != 0 {
		s += fmt.Sprintf("%dh ", hours)
	}
	if hours != 0 || minutes != 0 {
		s += fmt.Sprintf("%dm ", minutes)
	}
	return s + fmt.Sprintf("%ds", seconds)
}
